package report

import (
	"context"
	"time"
)

// StartScheduler refreshes due reports once at startup and then on every
// tick of poll until ctx is cancelled. The debounce still applies, so a tick
// that coincides with a manual refresh does no extra work.
func (s *Service) StartScheduler(ctx context.Context, poll time.Duration) {
	go func() {
		s.runDue(ctx, "startup")

		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runDue(ctx, "tick")
			}
		}
	}()
}

func (s *Service) runDue(ctx context.Context, trigger string) {
	n, err := s.RefreshDue(ctx)
	if err != nil {
		s.log.Errorw("scheduled refresh pass failed", "trigger", trigger, "error", err)
		return
	}
	if n > 0 {
		s.log.Infow("scheduled refresh pass", "trigger", trigger, "reports", n)
	}
}
