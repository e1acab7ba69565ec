package handlers

import (
	"bytes"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"timereport/internal/report"
	ui "timereport/web"
)

// publicReport is what the public view reveals about a report.
type publicReport struct {
	Name            string     `json:"name"`
	Slug            string     `json:"slug"`
	ClientName      string     `json:"client_name,omitempty"`
	Description     string     `json:"description,omitempty"`
	ContractedHours *float64   `json:"contracted_hours,omitempty"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
	NextRefreshAt   *time.Time `json:"next_refresh_at,omitempty"`
}

func newPublicReport(c *report.Config) publicReport {
	return publicReport{
		Name:            c.Name,
		Slug:            c.Slug,
		ClientName:      c.ClientName,
		Description:     c.Description,
		ContractedHours: c.ContractedHours,
		LastRefreshedAt: c.LastRefreshedAt,
		NextRefreshAt:   c.NextRefreshAt,
	}
}

type pageData struct {
	Report   publicReport
	Snapshot *report.Snapshot
	Status   report.Status
	Error    string
	Fmt      viewFormat
}

// load resolves the report, its snapshot and status for the public view.
// A failed refresh still yields the previous snapshot with the error noted.
func load(ctx *fasthttp.RequestCtx, reports Reports, log *zap.SugaredLogger) (*pageData, bool) {
	slug := param(ctx, "slug")
	cfg, snap, err := reports.View(ctx, slug)
	if err != nil && cfg == nil {
		writeError(ctx, log, err)
		return nil, false
	}
	data := &pageData{
		Report:   newPublicReport(cfg),
		Snapshot: snap,
		Fmt: viewFormat{
			date: string(ctx.QueryArgs().Peek("date")),
			time: string(ctx.QueryArgs().Peek("time")),
		},
	}
	if err != nil {
		log.Warnw("serving stale report view", "report", slug, "error", err)
		data.Error = "The last refresh failed; showing the previous data."
	}
	status, err := reports.Status(ctx, cfg.ID)
	if err != nil {
		writeError(ctx, log, err)
		return nil, false
	}
	data.Status = status
	return data, true
}

// PublicSnapshot returns the report snapshot as JSON.
func PublicSnapshot(reports Reports, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		data, ok := load(ctx, reports, log)
		if !ok {
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{
			"report":   data.Report,
			"snapshot": data.Snapshot,
			"status":   data.Status,
			"error":    data.Error,
		})
	}
}

// PublicPage renders the report as HTML.
func PublicPage(reports Reports, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		data, ok := load(ctx, reports, log)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := ui.Templates().ExecuteTemplate(&buf, "report.html", data); err != nil {
			log.Errorw("render report page", "report", data.Report.Slug, "error", err)
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to render page")
			return
		}
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBody(buf.Bytes())
	}
}
