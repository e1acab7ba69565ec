package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"timereport/internal/config"
	"timereport/internal/db"
	"timereport/internal/logger"
	"timereport/internal/report"
	"timereport/internal/secret"
	"timereport/internal/source"
	"timereport/internal/toggl"
)

// app wires the shared dependencies of every subcommand.
type app struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	db      *gorm.DB
	store   *db.Store
	toggl   *toggl.Client
	reports *report.Service
}

func newApp() (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	box, err := secret.NewBox(cfg.TokenSecret)
	if err != nil {
		return nil, err
	}

	tc := toggl.New(cfg.TogglBaseURL, cfg.TogglRatePerSecond, cfg.FetchTimeout)
	store := db.NewStore(gdb, box, log)
	entries := source.Cached(tc, db.NewCache(gdb), cfg.CacheTTL, log)

	svc := report.NewService(store, entries, store, report.NewMetrics(prometheus.DefaultRegisterer), log, report.Options{
		Debounce:     cfg.RefreshDebounce,
		Concurrency:  cfg.FetchConcurrency,
		FetchTimeout: cfg.FetchTimeout,
	})

	return &app{
		cfg:     cfg,
		log:     log,
		db:      gdb,
		store:   store,
		toggl:   tc,
		reports: svc,
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
