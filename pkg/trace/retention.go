package trace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/predicate/pkg/config"
)

// Scheduler prunes old trace runs on a cron schedule.
type Scheduler struct {
	store   *Store
	cfg     config.TraceConfig
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a retention scheduler for the given store.
func NewScheduler(store *Store, cfg config.TraceConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:  store,
		cfg:    cfg,
		cron:   cron.New(),
		logger: logger.With("component", "trace.scheduler"),
	}
}

// Start begins scheduled pruning. An empty schedule disables it. The
// scheduler stops when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.PruneSchedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.cfg.PruneSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.cfg.PruneSchedule, err)
	}

	_, err := s.cron.AddFunc(s.cfg.PruneSchedule, func() {
		s.runPruning(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule trace pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("trace retention scheduler started",
		"schedule", s.cfg.PruneSchedule,
		"retention", s.cfg.Retention,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduled pruning and waits for an in-flight prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("trace retention scheduler stopped")
}

func (s *Scheduler) runPruning(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Retention)
	deleted, err := s.store.PruneBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("trace pruning failed", "error", err)
		return
	}
	s.logger.Info("trace pruning complete", "runs_deleted", deleted, "cutoff", cutoff)
}
