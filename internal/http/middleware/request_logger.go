package middleware

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// RequestLogger returns fasthttp middleware that logs method, path, status,
// duration and remote ip of every request.
func RequestLogger(log *zap.SugaredLogger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	log = log.Named("http")
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			status := ctx.Response.StatusCode()
			fields := []any{
				"method", string(ctx.Method()),
				"path", string(ctx.Path()),
				"status", status,
				"duration", time.Since(start),
				"ip", ctx.RemoteIP().String(),
			}
			if status >= fasthttp.StatusInternalServerError {
				log.Warnw("request", fields...)
				return
			}
			log.Infow("request", fields...)
		}
	}
}
