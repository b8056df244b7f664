package jobs

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/services"
)

// Sweeper runs the periodic maintenance passes: expiring stale PENDING
// requests, decaying and ending inactive partnerships, and flagging stagnant
// goals. Every pass is idempotent, so overlapping or repeated runs are
// harmless.
type Sweeper struct {
	log           *logger.Logger
	partnerships  services.PartnershipService
	goals         services.GoalService
	interval      time.Duration
	stagnantAfter int
}

func NewSweeper(
	baseLog *logger.Logger,
	partnerships services.PartnershipService,
	goals services.GoalService,
	interval time.Duration,
	stagnantAfterDays int,
) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if stagnantAfterDays < 1 {
		stagnantAfterDays = 7
	}
	return &Sweeper{
		log:           baseLog.With("component", "Sweeper"),
		partnerships:  partnerships,
		goals:         goals,
		interval:      interval,
		stagnantAfter: stagnantAfterDays,
	}
}

// Start launches the ticker goroutine. Stop by cancelling ctx.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("sweeper stopped")
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce runs the three sweeps concurrently. A failing sweep is logged and
// never aborts the others.
func (s *Sweeper) RunOnce(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		expired, err := s.partnerships.ExpirePendingRequests(gctx)
		if err != nil {
			s.log.Warn("pending-request sweep failed", "error", err)
			return nil
		}
		if expired > 0 {
			s.log.Info("pending-request sweep done", "expired", expired)
		}
		return nil
	})
	g.Go(func() error {
		touched, err := s.partnerships.SweepInactive(gctx)
		if err != nil {
			s.log.Warn("inactivity sweep failed", "error", err)
			return nil
		}
		if touched > 0 {
			s.log.Info("inactivity sweep done", "touched", touched)
		}
		return nil
	})
	g.Go(func() error {
		flagged, err := s.goals.SweepStagnantGoals(gctx, s.stagnantAfter)
		if err != nil {
			s.log.Warn("stagnant-goal sweep failed", "error", err)
			return nil
		}
		if flagged > 0 {
			s.log.Info("stagnant-goal sweep done", "flagged", flagged)
		}
		return nil
	})

	_ = g.Wait()
}
