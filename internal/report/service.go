package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"timereport/internal/model"
	"timereport/internal/reportcalc"
	"timereport/internal/source"
)

const (
	DefaultDebounce     = 60 * time.Second
	defaultConcurrency  = 4
	defaultFetchTimeout = 30 * time.Second
)

type Options struct {
	Debounce     time.Duration
	Concurrency  int
	FetchTimeout time.Duration
	// Now is the clock used for debounce, projections and timestamps.
	Now func() time.Time
}

type reportState struct {
	state       State
	inFlight    bool
	lastSuccess time.Time
	lastErr     error
}

// Service refreshes and serves report snapshots.
type Service struct {
	store    Store
	entries  source.EntrySource
	archives source.ArchiveSource
	metrics  *Metrics
	log      *zap.SugaredLogger

	debounce     time.Duration
	concurrency  int
	fetchTimeout time.Duration
	now          func() time.Time

	mu     sync.Mutex
	states map[string]*reportState
}

func NewService(store Store, entries source.EntrySource, archives source.ArchiveSource, metrics *Metrics, log *zap.SugaredLogger, opts Options) *Service {
	s := &Service{
		store:        store,
		entries:      entries,
		archives:     archives,
		metrics:      metrics,
		log:          log.Named("report"),
		debounce:     opts.Debounce,
		concurrency:  opts.Concurrency,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Now,
		states:       make(map[string]*reportState),
	}
	if s.debounce <= 0 {
		s.debounce = DefaultDebounce
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultConcurrency
	}
	if s.fetchTimeout <= 0 {
		s.fetchTimeout = defaultFetchTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// stateFor must be called with s.mu held.
func (s *Service) stateFor(id string) *reportState {
	st, ok := s.states[id]
	if !ok {
		st = &reportState{state: StateNoSnapshot}
		s.states[id] = st
	}
	return st
}

// Refresh regenerates the snapshot of a report. Triggers arriving within the
// debounce window of the last successful refresh, or while a refresh is in
// flight, return the current snapshot untouched. force skips the debounce but
// never runs two generations of the same report at once.
//
// On failure the previous snapshot (possibly nil) is returned together with
// the error. When only the timestamp update failed, the snapshot just stored
// is returned instead and still anchors the debounce window.
func (s *Service) Refresh(ctx context.Context, idOrSlug string, force bool) (*Snapshot, error) {
	cfg, err := s.store.GetReport(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	now := s.now()

	s.mu.Lock()
	st := s.stateFor(cfg.ID)
	last := st.lastSuccess
	if cfg.LastRefreshedAt != nil && cfg.LastRefreshedAt.After(last) {
		last = *cfg.LastRefreshedAt
	}
	switch {
	case st.inFlight:
		s.mu.Unlock()
		s.log.Debugw("refresh already running", "report", cfg.Slug)
		s.metrics.refreshes.WithLabelValues(cfg.Slug, "skipped").Inc()
		return s.current(ctx, cfg.ID)
	case !force && !last.IsZero() && now.Sub(last) < s.debounce:
		s.mu.Unlock()
		s.log.Debugw("refresh debounced", "report", cfg.Slug, "last_refreshed_at", last)
		s.metrics.refreshes.WithLabelValues(cfg.Slug, "debounced").Inc()
		return s.current(ctx, cfg.ID)
	}
	st.inFlight = true
	st.state = StateGenerating
	s.mu.Unlock()

	// A started refresh runs to completion even if the trigger goes away.
	snap, err := s.generate(context.WithoutCancel(ctx), cfg, now)

	if err != nil {
		prev := snap
		var readErr error
		if prev == nil {
			prev, readErr = s.store.ReadSnapshot(ctx, cfg.ID)
		}
		s.mu.Lock()
		st.inFlight = false
		st.lastErr = err
		if snap != nil {
			st.lastSuccess = now
		}
		if readErr == nil && prev != nil {
			st.state = StateReadyStale
		} else {
			st.state = StateNoSnapshot
		}
		s.mu.Unlock()
		s.metrics.refreshes.WithLabelValues(cfg.Slug, "error").Inc()
		s.log.Errorw("refresh failed", "report", cfg.Slug, "error", err)
		return prev, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st.inFlight = false
	st.state = StateReady
	st.lastErr = nil
	st.lastSuccess = now
	s.metrics.refreshes.WithLabelValues(cfg.Slug, "success").Inc()
	return snap, nil
}

func (s *Service) current(ctx context.Context, reportID string) (*Snapshot, error) {
	snap, err := s.store.ReadSnapshot(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %v", ErrPersistence, err)
	}
	return snap, nil
}

func (s *Service) generate(ctx context.Context, cfg *Config, now time.Time) (*Snapshot, error) {
	started := time.Now()
	defer func() {
		s.metrics.duration.WithLabelValues(cfg.Slug).Observe(time.Since(started).Seconds())
	}()

	accounts, err := s.store.AccountSources(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: load accounts: %v", ErrPersistence, err)
	}

	fetched, failures := s.fetchAll(ctx, cfg, accounts)

	var failed []string
	for _, f := range failures {
		s.metrics.fetchErrors.WithLabelValues(cfg.Slug, f.Kind()).Inc()
		s.log.Warnw("account left out of snapshot",
			"report", cfg.Slug, "account", f.AccountName, "kind", f.Kind(), "error", f.Err)
		failed = append(failed, f.AccountName)
	}

	merged := make([]model.TimeEntry, 0, len(fetched))
	merged = append(merged, fetched...)

	archived := 0
	archives, err := s.archives.ListCompletedArchives(ctx, cfg.ID)
	if err != nil {
		s.metrics.fetchErrors.WithLabelValues(cfg.Slug, "archive").Inc()
		s.log.Warnw("archives left out of snapshot", "report", cfg.Slug, "error", err)
	}
	for _, a := range archives {
		merged = append(merged, a.Entries...)
		archived += len(a.Entries)
	}

	reportcalc.SortByStart(merged)

	snap := &Snapshot{
		ReportID: cfg.ID,
		Entries:  merged,
		Result: reportcalc.Compute(merged, reportcalc.Budget{
			ContractedHours: cfg.ContractedHours,
			ContractStart:   cfg.ContractStart,
		}, now),
		GeneratedAt:    now,
		DataSources:    DataSources{API: len(fetched), Archives: archived},
		FailedAccounts: failed,
	}
	if cfg.RangeStart != nil && cfg.RangeEnd != nil {
		snap.DateRange = &DateRange{Start: *cfg.RangeStart, End: *cfg.RangeEnd}
	}

	if err := s.store.UpsertSnapshot(ctx, cfg.ID, snap); err != nil {
		return nil, fmt.Errorf("%w: upsert snapshot: %v", ErrPersistence, err)
	}
	s.metrics.entries.WithLabelValues(cfg.Slug).Set(float64(len(merged)))

	interval := cfg.RefreshIntervalHours
	if interval <= 0 {
		interval = DefaultIntervalHours
	}
	next := now.Add(time.Duration(interval) * time.Hour)
	if err := s.store.UpdateReportTimestamps(ctx, cfg.ID, now, next); err != nil {
		// The new snapshot is already stored and visible.
		return snap, fmt.Errorf("%w: update timestamps: %v", ErrPersistence, err)
	}

	s.log.Infow("snapshot generated",
		"report", cfg.Slug, "entries", len(merged), "api", len(fetched), "archives", archived,
		"failed_accounts", len(failed))
	return snap, nil
}

// fetchAll lists entries of every account concurrently and waits for all of
// them. Failed accounts are returned separately and contribute no entries.
func (s *Service) fetchAll(ctx context.Context, cfg *Config, accounts []AccountSource) ([]model.TimeEntry, []*PerAccountFetchError) {
	results := make([][]model.TimeEntry, len(accounts))
	errs := make([]*PerAccountFetchError, len(accounts))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, acc := range accounts {
		i, acc := i, acc
		g.Go(func() error {
			entries, err := s.fetchAccount(ctx, cfg, acc)
			if err != nil {
				errs[i] = &PerAccountFetchError{
					AccountID:   acc.Credential.AccountID,
					AccountName: acc.Credential.AccountName,
					Err:         err,
				}
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	var (
		all      []model.TimeEntry
		failures []*PerAccountFetchError
	)
	for i := range accounts {
		if errs[i] != nil {
			failures = append(failures, errs[i])
			continue
		}
		all = append(all, results[i]...)
	}
	return all, failures
}

func (s *Service) fetchAccount(ctx context.Context, cfg *Config, acc AccountSource) ([]model.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	f := acc.Filter
	if f.Start == nil {
		f.Start = cfg.RangeStart
	}
	if f.End == nil {
		f.End = cfg.RangeEnd
	}

	entries, err := s.entries.ListEntries(ctx, acc.Credential, f)
	if err != nil {
		return nil, err
	}

	responsible := acc.Credential.AccountName
	if id, err := s.entries.ResolveIdentity(ctx, acc.Credential); err != nil {
		s.log.Warnw("identity lookup failed, using account name",
			"report", cfg.Slug, "account", acc.Credential.AccountName, "error", err)
	} else if id.DisplayName != "" {
		responsible = id.DisplayName
	}

	out := make([]model.TimeEntry, len(entries))
	for i, e := range entries {
		if e.Responsible == "" {
			e.Responsible = responsible
		}
		if e.AccountID == "" {
			e.AccountID = acc.Credential.AccountID
			e.AccountName = acc.Credential.AccountName
		}
		out[i] = e
	}
	return out, nil
}

// View returns the snapshot of a report. A report without a snapshot is
// generated on first view; the result is nil while that generation is
// already running elsewhere.
func (s *Service) View(ctx context.Context, idOrSlug string) (*Config, *Snapshot, error) {
	cfg, err := s.store.GetReport(ctx, idOrSlug)
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.current(ctx, cfg.ID)
	if err != nil {
		return cfg, nil, err
	}
	if snap != nil {
		return cfg, snap, nil
	}
	snap, err = s.Refresh(ctx, cfg.ID, false)
	if err != nil {
		return cfg, snap, err
	}
	// Timestamps changed with the refresh.
	if fresh, err := s.store.GetReport(ctx, cfg.ID); err == nil {
		cfg = fresh
	}
	return cfg, snap, nil
}

// Status reports the lifecycle state of a report.
func (s *Service) Status(ctx context.Context, idOrSlug string) (Status, error) {
	cfg, err := s.store.GetReport(ctx, idOrSlug)
	if err != nil {
		return Status{}, err
	}
	out := Status{LastRefreshedAt: cfg.LastRefreshedAt, NextRefreshAt: cfg.NextRefreshAt}

	s.mu.Lock()
	st, tracked := s.states[cfg.ID]
	if tracked {
		out.State = st.state
		if st.lastErr != nil {
			out.LastError = st.lastErr.Error()
		}
	}
	s.mu.Unlock()
	if tracked {
		return out, nil
	}

	snap, err := s.current(ctx, cfg.ID)
	if err != nil {
		return Status{}, err
	}
	out.State = StateNoSnapshot
	if snap != nil {
		out.State = StateReady
	}
	return out, nil
}

// Forget drops the in-memory lifecycle state of a deleted report.
func (s *Service) Forget(reportID string) {
	s.mu.Lock()
	delete(s.states, reportID)
	s.mu.Unlock()
}

// RefreshDue refreshes every auto-refresh report whose next refresh time has
// passed and returns how many were attempted. A failing report does not stop
// the pass; Refresh already logs it.
func (s *Service) RefreshDue(ctx context.Context) (int, error) {
	ids, err := s.store.DueReports(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: due reports: %v", ErrPersistence, err)
	}
	for _, id := range ids {
		if _, err := s.Refresh(ctx, id, false); errors.Is(err, ErrReportNotFound) {
			s.log.Debugw("due report vanished", "report_id", id)
		}
	}
	return len(ids), nil
}
