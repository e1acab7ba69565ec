package handlers

import (
	"context"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	dbpkg "timereport/internal/db"
	"timereport/internal/toggl"
)

type accountRequest struct {
	Name     string `json:"name"`
	APIToken string `json:"api_token"`
}

func ListAccounts(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		accounts, err := store.ListAccounts(ctx)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"accounts": accounts})
	}
}

// CreateAccount registers an account after checking its token upstream.
func CreateAccount(store *dbpkg.Store, tc *toggl.Client, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var in accountRequest
		if !decodeJSON(ctx, &in) {
			return
		}
		if in.APIToken != "" {
			if _, err := tc.Workspaces(ctx, in.APIToken); err != nil {
				writeError(ctx, log, err)
				return
			}
		}
		a, err := store.CreateAccount(ctx, in.Name, in.APIToken)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		log.Infow("account registered", "account", a.Name, "id", a.ID)
		jsonResponse(ctx, fasthttp.StatusCreated, a)
	}
}

func DeleteAccount(store *dbpkg.Store, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if err := store.DeleteAccount(ctx, param(ctx, "id")); err != nil {
			writeError(ctx, log, err)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

// Workspaces lists the workspaces visible to an account.
func Workspaces(store *dbpkg.Store, tc *toggl.Client, log *zap.SugaredLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		cred, err := store.Credential(ctx, param(ctx, "id"))
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		ws, err := tc.Workspaces(ctx, cred.APIToken)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{"workspaces": ws})
	}
}

// WorkspaceItems lists clients, projects or tags of one workspace, for
// building account filters.
func WorkspaceItems(store *dbpkg.Store, tc *toggl.Client, log *zap.SugaredLogger) fasthttp.RequestHandler {
	listers := map[string]func(ctx context.Context, token string, wid int64) (any, error){
		"clients": func(ctx context.Context, token string, wid int64) (any, error) {
			return tc.Clients(ctx, token, wid)
		},
		"projects": func(ctx context.Context, token string, wid int64) (any, error) {
			return tc.Projects(ctx, token, wid)
		},
		"tags": func(ctx context.Context, token string, wid int64) (any, error) {
			return tc.Tags(ctx, token, wid)
		},
	}
	return func(ctx *fasthttp.RequestCtx) {
		kind := param(ctx, "kind")
		list, ok := listers[kind]
		if !ok {
			errResponse(ctx, fasthttp.StatusNotFound, "unknown listing "+kind)
			return
		}
		wid, err := strconv.ParseInt(param(ctx, "wid"), 10, 64)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid workspace id")
			return
		}
		cred, err := store.Credential(ctx, param(ctx, "id"))
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		items, err := list(ctx, cred.APIToken, wid)
		if err != nil {
			writeError(ctx, log, err)
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, map[string]any{kind: items})
	}
}
