package toggl_test

import (
	"context"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"timereport/internal/source"
	"timereport/internal/toggl"
)

const entriesJSON = `[
 {"id":1,"workspace_id":10,"project_id":100,"description":"Build","start":"2024-01-02T09:00:00Z","stop":"2024-01-02T10:00:00Z","duration":3600,"tags":["backend"],"tag_ids":[7]},
 {"id":2,"workspace_id":10,"project_id":200,"description":"Call","start":"2024-01-03T09:00:00Z","stop":"2024-01-03T09:30:00Z","duration":1800,"tags":[]},
 {"id":3,"workspace_id":99,"project_id":300,"description":"Other ws","start":"2024-01-04T09:00:00Z","duration":-1704358800}
]`

// serve starts an in-memory Toggl stub and returns a client wired to it.
func serve(t *testing.T, handler fasthttp.RequestHandler) *toggl.Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { _ = srv.Shutdown() })

	hc := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	return toggl.New("http://toggl.test/api/v9", 1000, time.Second, toggl.WithHTTPClient(hc))
}

func stub(t *testing.T, seen *[]string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		*seen = append(*seen, string(ctx.RequestURI()))
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("tok:api_token"))
		if string(ctx.Request.Header.Peek("Authorization")) != want {
			ctx.SetStatusCode(fasthttp.StatusForbidden)
			return
		}
		ctx.SetContentType("application/json")
		switch string(ctx.Path()) {
		case "/api/v9/me/time_entries":
			ctx.SetBodyString(entriesJSON)
		case "/api/v9/me":
			ctx.SetBodyString(`{"fullname":"","email":"ana@example.com"}`)
		case "/api/v9/workspaces/10/projects":
			ctx.SetBodyString(`[{"id":100,"name":"Platform","client_id":5},{"id":200,"name":"Sales","client_id":6}]`)
		case "/api/v9/workspaces/10/clients":
			ctx.SetBodyString(`[{"id":5,"name":"Acme"},{"id":6,"name":"Globex"}]`)
		case "/api/v9/workspaces/10/tags":
			ctx.SetBodyString(`[{"id":7,"name":"backend"}]`)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString("no route")
		}
	}
}

var cred = source.Credential{AccountID: "acc-1", AccountName: "main", APIToken: "tok"}

func TestListEntriesWithoutFilters(t *testing.T) {
	var seen []string
	c := serve(t, stub(t, &seen))

	entries, err := c.ListEntries(context.Background(), cred, source.Filter{})

	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "acc-1", entries[0].AccountID)
	require.Equal(t, "main", entries[0].AccountName)
	require.Equal(t, int64(-1704358800), entries[2].Duration)
	require.Zero(t, entries[2].Seconds())
	require.Equal(t, []string{"/api/v9/me/time_entries"}, seen)
}

func TestListEntriesWorkspaceEnrichmentAndClientFilter(t *testing.T) {
	var seen []string
	c := serve(t, stub(t, &seen))
	ws, client := int64(10), int64(5)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	entries, err := c.ListEntries(context.Background(), cred, source.Filter{
		WorkspaceID: &ws, ClientID: &client, Start: &start, End: &end,
	})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Platform", entries[0].Project)
	require.Equal(t, "Acme", entries[0].Client)
	require.Contains(t, seen, "/api/v9/me/time_entries?start_date=2024-01-01&end_date=2024-02-01")
}

func TestListEntriesTagFilter(t *testing.T) {
	var seen []string
	c := serve(t, stub(t, &seen))
	ws, tag := int64(10), int64(7)

	entries, err := c.ListEntries(context.Background(), cred, source.Filter{WorkspaceID: &ws, TagID: &tag})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Build", entries[0].Description)
}

func TestResolveIdentityFallsBackToEmail(t *testing.T) {
	var seen []string
	c := serve(t, stub(t, &seen))

	id, err := c.ResolveIdentity(context.Background(), cred)

	require.NoError(t, err)
	require.Equal(t, "ana@example.com", id.DisplayName)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"auth", fasthttp.StatusUnauthorized, func(t *testing.T, err error) {
			var e *source.AuthError
			require.ErrorAs(t, err, &e)
		}},
		{"rate limit", fasthttp.StatusTooManyRequests, func(t *testing.T, err error) {
			var e *source.RateLimitError
			require.ErrorAs(t, err, &e)
			require.Equal(t, 30*time.Second, e.RetryAfter)
		}},
		{"upstream", fasthttp.StatusBadGateway, func(t *testing.T, err error) {
			var e *source.UpstreamError
			require.ErrorAs(t, err, &e)
			require.Equal(t, fasthttp.StatusBadGateway, e.Status)
			require.Equal(t, "boom", e.Body)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := serve(t, func(ctx *fasthttp.RequestCtx) {
				ctx.Response.Header.Set("Retry-After", "30")
				ctx.SetStatusCode(tt.status)
				ctx.SetBodyString("boom")
			})
			_, err := c.ListEntries(context.Background(), cred, source.Filter{})
			tt.check(t, err)
		})
	}
}

func TestWorkspaceListings(t *testing.T) {
	var seen []string
	c := serve(t, stub(t, &seen))
	ctx := context.Background()

	projects, err := c.Projects(ctx, "tok", 10)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	require.Equal(t, int64(5), *projects[0].ClientID)

	tags, err := c.Tags(ctx, "tok", 10)
	require.NoError(t, err)
	require.Equal(t, []toggl.Tag{{ID: 7, Name: "backend"}}, tags)

	_, err = c.Workspaces(ctx, "bad")
	var authErr *source.AuthError
	require.ErrorAs(t, err, &authErr)
}
