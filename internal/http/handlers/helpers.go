package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	dbpkg "timereport/internal/db"
	"timereport/internal/report"
	"timereport/internal/source"
)

// Reports is the part of the report service the handlers use.
type Reports interface {
	Refresh(ctx context.Context, idOrSlug string, force bool) (*report.Snapshot, error)
	View(ctx context.Context, idOrSlug string) (*report.Config, *report.Snapshot, error)
	Status(ctx context.Context, idOrSlug string) (report.Status, error)
	Forget(reportID string)
}

func jsonResponse(ctx *fasthttp.RequestCtx, code int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode response")
		return
	}
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// statusFor maps domain and upstream errors to an HTTP status.
func statusFor(err error) int {
	var (
		auth     *source.AuthError
		limited  *source.RateLimitError
		upstream *source.UpstreamError
	)
	switch {
	case errors.Is(err, report.ErrReportNotFound),
		errors.Is(err, dbpkg.ErrAccountNotFound),
		errors.Is(err, dbpkg.ErrNotFound):
		return fasthttp.StatusNotFound
	case errors.Is(err, dbpkg.ErrInvalidArgument):
		return fasthttp.StatusBadRequest
	case errors.Is(err, dbpkg.ErrSlugTaken):
		return fasthttp.StatusConflict
	case errors.As(err, &limited):
		return fasthttp.StatusTooManyRequests
	case errors.As(err, &auth), errors.As(err, &upstream):
		return fasthttp.StatusBadGateway
	case errors.Is(err, report.ErrPersistence):
		return fasthttp.StatusServiceUnavailable
	default:
		return fasthttp.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Server-side failures are logged
// and their details withheld from the client.
func writeError(ctx *fasthttp.RequestCtx, log *zap.SugaredLogger, err error) {
	code := statusFor(err)
	if code >= fasthttp.StatusInternalServerError {
		log.Errorw("request failed", "method", string(ctx.Method()), "path", string(ctx.Path()), "error", err)
		if code == fasthttp.StatusInternalServerError {
			errResponse(ctx, code, "internal error")
			return
		}
	}
	errResponse(ctx, code, err.Error())
}

func decodeJSON(ctx *fasthttp.RequestCtx, dst any) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func param(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func queryBool(ctx *fasthttp.RequestCtx, name string) bool {
	b, err := strconv.ParseBool(string(ctx.QueryArgs().Peek(name)))
	return err == nil && b
}

// Health answers liveness probes.
func Health() fasthttp.RequestHandler {
	start := time.Now()
	return func(ctx *fasthttp.RequestCtx) {
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{
			"status": "ok",
			"uptime": time.Since(start).Round(time.Second).String(),
		})
	}
}
