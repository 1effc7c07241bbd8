package retention

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"chartvault.io/vault/internal/config"
	"chartvault.io/vault/internal/ledger"
	"chartvault.io/vault/internal/pkg/logger"
	"chartvault.io/vault/internal/pkg/worker"
)

const (
	// retryBackoff delays the next due-check after a failed run so a
	// persistently failing cleanup does not spin.
	retryBackoff = 5 * time.Minute
)

// Scheduler runs periodic full cleanups on the maintenance pool. It wakes
// every CheckPeriod, runs when the last successful run is older than
// Interval, and stops when the service context is cancelled.
type Scheduler struct {
	coordinator *Coordinator
	ledger      *ledger.Ledger
	cfg         config.CleanupConfig

	mu      sync.Mutex
	lastRun time.Time
	running bool
	stopped chan struct{}
}

// NewScheduler creates a Scheduler. Start must be called to begin the loop.
func NewScheduler(c *Coordinator, l *ledger.Ledger, cfg config.CleanupConfig) *Scheduler {
	return &Scheduler{
		coordinator: c,
		ledger:      l,
		cfg:         cfg,
		stopped:     make(chan struct{}),
	}
}

// Start submits the scheduler loop to the maintenance pool. A disabled
// configuration is a no-op.
func (s *Scheduler) Start(pools *worker.Pools) error {
	if !s.cfg.Enabled {
		logger.Info("Cleanup scheduler disabled by configuration")
		close(s.stopped)
		return nil
	}
	return pools.SubmitDetached("maintenance", s.loop)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.stopped)

	checkPeriod := s.cfg.CheckPeriod
	if checkPeriod <= 0 {
		checkPeriod = time.Minute
	}

	logger.Info("Cleanup scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("check_period", checkPeriod),
	)

	ticker := time.NewTicker(checkPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup scheduler stopping")
			return
		case <-ticker.C:
			s.runIfDue(ctx)
		}
	}
}

func (s *Scheduler) runIfDue(ctx context.Context) {
	s.mu.Lock()
	due := !s.running && time.Since(s.lastRun) >= s.cfg.Interval
	if due {
		s.running = true
	}
	s.mu.Unlock()
	if !due {
		return
	}

	_, err := s.RunNow(ctx)

	s.mu.Lock()
	s.running = false
	if err != nil {
		// Back off instead of retrying on the very next tick.
		s.lastRun = time.Now().Add(retryBackoff - s.cfg.Interval)
	} else {
		s.lastRun = time.Now()
	}
	s.mu.Unlock()
}

// RunNow triggers one full cleanup immediately using the ledger's current
// retention policy. Safe to call from operator tooling while the loop runs.
func (s *Scheduler) RunNow(ctx context.Context) (*CompositeResult, error) {
	years := s.ledger.Retention()
	result, err := s.coordinator.RunFullCleanup(ctx, years, ledger.SystemActor)
	if err != nil {
		logger.Error("Scheduled cleanup failed", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// Preview reports what a cleanup run would remove without removing anything.
func (s *Scheduler) Preview(ctx context.Context) (*CleanupPreview, error) {
	years := s.ledger.Retention()
	return s.coordinator.Preview(ctx, years)
}

// LastRun reports when the scheduler last completed a run. Zero before the
// first run.
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// Stopped is closed when the scheduler loop has exited.
func (s *Scheduler) Stopped() <-chan struct{} {
	return s.stopped
}
