package handlers

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	dbpkg "timereport/internal/db"
)

func ListReports(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		reports, err := store.ListReports(ctx)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"reports": reports})
	}
}

func CreateReport(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var in dbpkg.ReportInput
		if !decodeJSON(ctx, &in) {
			return
		}
		r, err := store.CreateReport(ctx, in)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		log.Infow("report created", "report", r.Slug, "id", r.ID)
		jsonResponse(ctx, fasthttp.StatusCreated, r)
	}
}

// GetReport returns a report with its account configs and refresh status.
func GetReport(store *dbpkg.Store, reports Reports, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		r, err := store.FindReport(ctx, param(ctx, "id"))
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		configs, err := store.ListAccountConfigs(ctx, r.ID)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		status, err := reports.Status(ctx, r.ID)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{
			"report":   r,
			"accounts": configs,
			"status":   status,
		})
	}
}

func UpdateReport(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var in dbpkg.ReportInput
		if !decodeJSON(ctx, &in) {
			return
		}
		r, err := store.UpdateReport(ctx, param(ctx, "id"), in)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, r)
	}
}

func DeleteReport(store *dbpkg.Store, reports Reports, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, err := store.DeleteReport(ctx, param(ctx, "id"))
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		reports.Forget(id)
		log.Infow("report deleted", "id", id)
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

// RefreshReport triggers a refresh. ?force=true skips the debounce window.
// A failed refresh answers with the error and the snapshot still in place.
func RefreshReport(reports Reports, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := param(ctx, "id")
		snap, err := reports.Refresh(ctx, id, queryBool(ctx, "force"))
		if err != nil {
			code := statusFor(err)
			if code == fasthttp.StatusNotFound {
				writeError(ctx, log, err)
				return
			}
			log.Errorw("refresh request failed", "report", id, "error", err)
			jsonResponse(ctx, code, map[string]any{"error": err.Error(), "snapshot": snap})
			return
		}
		status, err := reports.Status(ctx, id)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		if snap == nil {
			jsonResponse(ctx, fasthttp.StatusAccepted, map[string]any{"status": status})
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"status": status, "snapshot": snap})
	}
}
