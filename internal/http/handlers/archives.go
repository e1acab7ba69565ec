package handlers

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	dbpkg "timereport/internal/db"
)

func ListArchives(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		archives, err := store.ListArchives(ctx, param(ctx, "id"))
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"archives": archives})
	}
}

// CreateArchive attaches pre-parsed historical entries to a report. A body
// with entries and no status is stored as completed.
func CreateArchive(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var in dbpkg.ArchiveInput
		if !decodeJSON(ctx, &in) {
			return
		}
		a, err := store.CreateArchive(ctx, param(ctx, "id"), in)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		log.Infow("archive attached", "report_id", a.ReportID, "archive", a.ID, "entries", len(a.Entries), "status", a.Status)
		a.Entries = nil
		jsonResponse(ctx, fasthttp.StatusCreated, a)
	}
}

func DeleteArchive(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if err := store.DeleteArchive(ctx, param(ctx, "id"), param(ctx, "archiveID")); err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}
