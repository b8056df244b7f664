package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/focushive/buddy-service/internal/logger"
	"github.com/focushive/buddy-service/internal/services"
)

type stubPartnerships struct {
	services.PartnershipService
	expireCalls  atomic.Int64
	inactiveRuns atomic.Int64
	expireErr    error
	inactiveErr  error
}

func (s *stubPartnerships) ExpirePendingRequests(ctx context.Context) (int, error) {
	s.expireCalls.Add(1)
	if s.expireErr != nil {
		return 0, s.expireErr
	}
	return 1, nil
}

func (s *stubPartnerships) SweepInactive(ctx context.Context) (int, error) {
	s.inactiveRuns.Add(1)
	if s.inactiveErr != nil {
		return 0, s.inactiveErr
	}
	return 2, nil
}

type stubGoals struct {
	services.GoalService
	sweepCalls atomic.Int64
	threshold  atomic.Int64
	sweepErr   error
}

func (s *stubGoals) SweepStagnantGoals(ctx context.Context, daysThreshold int) (int, error) {
	s.sweepCalls.Add(1)
	s.threshold.Store(int64(daysThreshold))
	if s.sweepErr != nil {
		return 0, s.sweepErr
	}
	return 1, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init test logger: %v", err)
	}
	return log
}

func TestRunOnceRunsAllSweeps(t *testing.T) {
	partnerships := &stubPartnerships{}
	goals := &stubGoals{}
	sweeper := NewSweeper(testLogger(t), partnerships, goals, time.Minute, 9)

	sweeper.RunOnce(context.Background())

	if got := partnerships.expireCalls.Load(); got != 1 {
		t.Fatalf("expected 1 expire pass, got %d", got)
	}
	if got := partnerships.inactiveRuns.Load(); got != 1 {
		t.Fatalf("expected 1 inactivity pass, got %d", got)
	}
	if got := goals.sweepCalls.Load(); got != 1 {
		t.Fatalf("expected 1 goal pass, got %d", got)
	}
	if got := goals.threshold.Load(); got != 9 {
		t.Fatalf("expected configured threshold 9, got %d", got)
	}
}

func TestRunOnceIsolatesFailures(t *testing.T) {
	partnerships := &stubPartnerships{expireErr: errors.New("db down")}
	goals := &stubGoals{sweepErr: errors.New("db down")}
	sweeper := NewSweeper(testLogger(t), partnerships, goals, time.Minute, 7)

	// A failing sweep is absorbed; the others still run.
	sweeper.RunOnce(context.Background())

	if got := partnerships.inactiveRuns.Load(); got != 1 {
		t.Fatalf("expected inactivity pass despite sibling failures, got %d runs", got)
	}
	if got := goals.sweepCalls.Load(); got != 1 {
		t.Fatalf("expected goal pass attempted, got %d runs", got)
	}
}

func TestStartTicksUntilCancelled(t *testing.T) {
	partnerships := &stubPartnerships{}
	goals := &stubGoals{}
	sweeper := NewSweeper(testLogger(t), partnerships, goals, 5*time.Millisecond, 7)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)

	deadline := time.After(2 * time.Second)
	for partnerships.expireCalls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweeper never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	// After cancellation the ticker goroutine stops making calls.
	time.Sleep(20 * time.Millisecond)
	settled := partnerships.expireCalls.Load()
	time.Sleep(30 * time.Millisecond)
	if got := partnerships.expireCalls.Load(); got != settled {
		t.Fatalf("expected no passes after cancel, got %d then %d", settled, got)
	}
}

func TestNewSweeperDefaults(t *testing.T) {
	sweeper := NewSweeper(testLogger(t), &stubPartnerships{}, &stubGoals{}, 0, 0)
	if sweeper.interval != 5*time.Minute {
		t.Fatalf("expected default interval 5m, got %v", sweeper.interval)
	}
	if sweeper.stagnantAfter != 7 {
		t.Fatalf("expected default threshold 7, got %d", sweeper.stagnantAfter)
	}
}
