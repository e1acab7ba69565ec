package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	dbpkg "timereport/internal/db"
	"timereport/internal/model"
	"timereport/internal/report"
	"timereport/internal/reportcalc"
	"timereport/internal/source"
)

type fakeReports struct {
	cfg        *report.Config
	snap       *report.Snapshot
	refreshErr error
	viewErr    error
	forced     bool
}

func (f *fakeReports) Refresh(_ context.Context, idOrSlug string, force bool) (*report.Snapshot, error) {
	if idOrSlug != f.cfg.Slug && idOrSlug != f.cfg.ID {
		return nil, report.ErrReportNotFound
	}
	f.forced = force
	return f.snap, f.refreshErr
}

func (f *fakeReports) View(_ context.Context, idOrSlug string) (*report.Config, *report.Snapshot, error) {
	if idOrSlug != f.cfg.Slug && idOrSlug != f.cfg.ID {
		return nil, nil, report.ErrReportNotFound
	}
	return f.cfg, f.snap, f.viewErr
}

func (f *fakeReports) Status(_ context.Context, _ string) (report.Status, error) {
	st := report.StateReady
	if f.snap == nil {
		st = report.StateNoSnapshot
	}
	return report.Status{State: st, LastRefreshedAt: f.cfg.LastRefreshedAt}, nil
}

func (f *fakeReports) Forget(string) {}

func fixture(t *testing.T) *fakeReports {
	t.Helper()
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	stop := start.Add(2 * time.Hour)
	entries := []model.TimeEntry{
		{ID: 1, Description: "Design review", Start: start, Stop: &stop, Duration: 7200, Responsible: "Ana"},
		{ID: 2, Description: "", Start: start.Add(24 * time.Hour), Duration: 3600},
	}
	contracted := 40.0
	res := reportcalc.Compute(entries, reportcalc.Budget{ContractedHours: &contracted}, start.Add(48*time.Hour))
	refreshed := start.Add(48 * time.Hour)
	return &fakeReports{
		cfg: &report.Config{
			ID:              "0b6f6c1e-0000-4000-8000-000000000001",
			Name:            "Acme retainer",
			Slug:            "acme",
			ClientName:      "Acme Corp",
			ContractedHours: &contracted,
			LastRefreshedAt: &refreshed,
		},
		snap: &report.Snapshot{
			ReportID:    "0b6f6c1e-0000-4000-8000-000000000001",
			Entries:     entries,
			Result:      res,
			GeneratedAt: refreshed,
			DataSources: report.DataSources{API: 2},
		},
	}
}

func newCtx(method, uri string, values map[string]string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	for k, v := range values {
		ctx.SetUserValue(k, v)
	}
	return ctx
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &out))
	return out
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"report not found", fmt.Errorf("load: %w", report.ErrReportNotFound), fasthttp.StatusNotFound},
		{"account not found", dbpkg.ErrAccountNotFound, fasthttp.StatusNotFound},
		{"invalid argument", fmt.Errorf("%w: name is required", dbpkg.ErrInvalidArgument), fasthttp.StatusBadRequest},
		{"slug taken", dbpkg.ErrSlugTaken, fasthttp.StatusConflict},
		{"rate limited", &source.RateLimitError{RetryAfter: time.Minute}, fasthttp.StatusTooManyRequests},
		{"auth", &source.AuthError{Status: 403}, fasthttp.StatusBadGateway},
		{"upstream", &source.UpstreamError{Status: 500}, fasthttp.StatusBadGateway},
		{"persistence", fmt.Errorf("%w: write snapshot", report.ErrPersistence), fasthttp.StatusServiceUnavailable},
		{"other", errors.New("boom"), fasthttp.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	ctx := newCtx("GET", "/v1/reports", nil)
	writeError(ctx, zap.NewNop().Sugar(), errors.New("dial tcp: connection refused"))

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Equal(t, "internal error", decodeBody(t, ctx)["error"])
}

func TestFilterByLabel(t *testing.T) {
	label := func(name, value string) *dto.LabelPair {
		return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
	}
	families := []*dto.MetricFamily{
		{
			Name: proto.String("timereport_refresh_total"),
			Metric: []*dto.Metric{
				{Label: []*dto.LabelPair{label("report", "acme"), label("result", "success")}},
				{Label: []*dto.LabelPair{label("report", "other"), label("result", "success")}},
			},
		},
		{
			Name:   proto.String("timereport_snapshot_entries"),
			Metric: []*dto.Metric{{Label: []*dto.LabelPair{label("report", "other")}}},
		},
		{
			Name:   proto.String("go_goroutines"),
			Metric: []*dto.Metric{{}},
		},
	}

	got := filterByLabel(families, "report", "acme")
	require.Len(t, got, 2)
	assert.Equal(t, "timereport_refresh_total", got[0].GetName())
	assert.Len(t, got[0].GetMetric(), 1)
	assert.Equal(t, "go_goroutines", got[1].GetName())
}

func TestRefreshReportForce(t *testing.T) {
	f := fixture(t)
	ctx := newCtx("POST", "/v1/reports/acme/refresh?force=true", map[string]string{"id": "acme"})
	RefreshReport(f, zap.NewNop().Sugar())(ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.True(t, f.forced)
	body := decodeBody(t, ctx)
	assert.Contains(t, body, "snapshot")
	assert.Contains(t, body, "status")
}

func TestRefreshReportInFlightIsAccepted(t *testing.T) {
	f := fixture(t)
	f.snap = nil
	ctx := newCtx("POST", "/v1/reports/acme/refresh", map[string]string{"id": "acme"})
	RefreshReport(f, zap.NewNop().Sugar())(ctx)

	assert.Equal(t, fasthttp.StatusAccepted, ctx.Response.StatusCode())
	assert.False(t, f.forced)
}

func TestRefreshReportFailureKeepsSnapshot(t *testing.T) {
	f := fixture(t)
	f.refreshErr = fmt.Errorf("%w: write snapshot", report.ErrPersistence)
	ctx := newCtx("POST", "/v1/reports/acme/refresh", map[string]string{"id": "acme"})
	RefreshReport(f, zap.NewNop().Sugar())(ctx)

	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	body := decodeBody(t, ctx)
	assert.NotNil(t, body["snapshot"])
	assert.Contains(t, body["error"], "write snapshot")
}

func TestRefreshReportUnknown(t *testing.T) {
	f := fixture(t)
	ctx := newCtx("POST", "/v1/reports/nope/refresh", map[string]string{"id": "nope"})
	RefreshReport(f, zap.NewNop().Sugar())(ctx)

	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestPublicSnapshot(t *testing.T) {
	f := fixture(t)
	ctx := newCtx("GET", "/v1/r/acme", map[string]string{"slug": "acme"})
	PublicSnapshot(f, zap.NewNop().Sugar())(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := decodeBody(t, ctx)
	rep := body["report"].(map[string]any)
	assert.Equal(t, "Acme retainer", rep["name"])
	assert.NotContains(t, rep, "id")
	snap := body["snapshot"].(map[string]any)
	assert.EqualValues(t, 2, snap["total_entries"])
	assert.EqualValues(t, 10800, snap["total_duration"])
}

func TestPublicSnapshotStaleView(t *testing.T) {
	f := fixture(t)
	f.viewErr = &source.UpstreamError{Status: 502}
	ctx := newCtx("GET", "/v1/r/acme", map[string]string{"slug": "acme"})
	PublicSnapshot(f, zap.NewNop().Sugar())(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.NotEmpty(t, decodeBody(t, ctx)["error"])
}

func TestPublicPageRendersReport(t *testing.T) {
	f := fixture(t)
	ctx := newCtx("GET", "/r/acme?date=yyyy-mm-dd", map[string]string{"slug": "acme"})
	PublicPage(f, zap.NewNop().Sugar())(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Header.ContentType()), "text/html")
	body := string(ctx.Response.Body())
	assert.Contains(t, body, "Acme retainer")
	assert.Contains(t, body, "Design review")
	assert.Contains(t, body, reportcalc.NoDescription)
	assert.Contains(t, body, "2024-03-04")
	assert.Contains(t, body, "Mar 2024")
}

func TestPublicPageWithoutSnapshot(t *testing.T) {
	f := fixture(t)
	f.snap = nil
	ctx := newCtx("GET", "/r/acme", map[string]string{"slug": "acme"})
	PublicPage(f, zap.NewNop().Sugar())(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "being generated")
}

func TestPublicPageUnknownSlug(t *testing.T) {
	f := fixture(t)
	ctx := newCtx("GET", "/r/nope", map[string]string{"slug": "nope"})
	PublicPage(f, zap.NewNop().Sugar())(ctx)

	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestViewFormat(t *testing.T) {
	ts := time.Date(2024, 1, 2, 15, 4, 0, 0, time.UTC)
	f := viewFormat{date: "mm-dd-yyyy", time: "12"}
	assert.Equal(t, "01-02-2024 3:04 PM", f.DateTime(&ts))
	assert.Equal(t, "never", f.Date(nil))
	assert.Equal(t, "1h 05m", f.Duration(3900))
	assert.Equal(t, "running", f.Duration(-1))
	assert.Equal(t, "n/a", f.Weeks(nil))
	w := 22.857
	assert.Equal(t, "22.9 weeks", f.Weeks(&w))
}
