package handlers

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	dbpkg "timereport/internal/db"
)

func ListAccountConfigs(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
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
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"accounts": configs})
	}
}

// PutAccountConfig creates or replaces the filter of one account in a report.
func PutAccountConfig(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var c dbpkg.AccountFilterConfig
		if !decodeJSON(ctx, &c) {
			return
		}
		c.ID = ""
		if err := store.UpsertAccountConfig(ctx, param(ctx, "id"), &c); err != nil {
			writeError(ctx, log, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, c)
	}
}

func DeleteAccountConfig(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if err := store.DeleteAccountConfig(ctx, param(ctx, "id"), param(ctx, "configID")); err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}
