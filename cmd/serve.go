package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"timereport/internal/db"
	"timereport/internal/http/handlers"
	appmw "timereport/internal/http/middleware"
	ui "timereport/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the background refresh scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := db.Migrate(a.db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db.StartCachePurgeWorker(ctx, a.db, time.Hour, a.log)
	a.reports.StartScheduler(ctx, a.cfg.RefreshPoll)

	server := &fasthttp.Server{
		Handler:      appmw.RequestLogger(a.log)(a.routes().Handler),
		Name:         "timereport",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("timereport listening", "addr", a.cfg.ListenAddr)
		errCh <- server.ListenAndServe(a.cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.log.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.ShutdownWithContext(shutdownCtx)
	}
}

func (a *app) routes() *router.Router {
	r := router.New()
	log := a.log

	r.GET("/healthz", handlers.Health())
	r.GET("/metrics", handlers.Metrics(prometheus.DefaultGatherer))
	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/v1/accounts", handlers.ListAccounts(a.store, log))
	r.POST("/v1/accounts", handlers.CreateAccount(a.store, a.toggl, log))
	r.DELETE("/v1/accounts/{id}", handlers.DeleteAccount(a.store, log))
	r.GET("/v1/accounts/{id}/workspaces", handlers.Workspaces(a.store, a.toggl, log))
	r.GET("/v1/accounts/{id}/workspaces/{wid}/{kind}", handlers.WorkspaceItems(a.store, a.toggl, log))

	r.GET("/v1/reports", handlers.ListReports(a.store, log))
	r.POST("/v1/reports", handlers.CreateReport(a.store, log))
	r.GET("/v1/reports/{id}", handlers.GetReport(a.store, a.reports, log))
	r.PUT("/v1/reports/{id}", handlers.UpdateReport(a.store, log))
	r.DELETE("/v1/reports/{id}", handlers.DeleteReport(a.store, a.reports, log))

	r.GET("/v1/reports/{id}/accounts", handlers.ListAccountConfigs(a.store, log))
	r.PUT("/v1/reports/{id}/accounts", handlers.PutAccountConfig(a.store, log))
	r.DELETE("/v1/reports/{id}/accounts/{configID}", handlers.DeleteAccountConfig(a.store, log))

	r.GET("/v1/reports/{id}/archives", handlers.ListArchives(a.store, log))
	r.POST("/v1/reports/{id}/archives", handlers.CreateArchive(a.store, log))
	r.DELETE("/v1/reports/{id}/archives/{archiveID}", handlers.DeleteArchive(a.store, log))

	r.POST("/v1/reports/{id}/refresh", handlers.RefreshReport(a.reports, log))
	r.GET("/v1/reports/{id}/metrics", handlers.ReportMetrics(a.store, prometheus.DefaultGatherer, log))

	r.GET("/v1/r/{slug}", handlers.PublicSnapshot(a.reports, log))
	r.GET("/r/{slug}", handlers.PublicPage(a.reports, log))

	return r
}
