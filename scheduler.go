package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"wallgen/engine"
	"wallgen/logging"
	"wallgen/shutdown"
	"wallgen/store"
)

// Scheduler triggers a generation of the selected prompt on a fixed
// interval. A tick that lands while the previous generation is still
// running is skipped; the engine is strictly single-flight.
type Scheduler struct {
	engine   *engine.Engine
	store    *store.Store
	interval time.Duration
	manager  *shutdown.Manager
	logger   *logging.Logger
}

// NewScheduler creates a Scheduler. It does not start ticking until Run.
func NewScheduler(eng *engine.Engine, st *store.Store, interval time.Duration, manager *shutdown.Manager, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		engine:   eng,
		store:    st,
		interval: interval,
		manager:  manager,
		logger:   logger.Named("scheduler"),
	}
}

// Run generates once immediately, then on every interval tick, until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	err := s.manager.WrapOperation(ctx, "generate", s.generateSelected)
	switch {
	case err == nil:
	case errors.Is(err, shutdown.ErrTrackerClosed), errors.Is(err, context.Canceled):
	default:
		var busy *engine.AlreadyGeneratingError
		if errors.As(err, &busy) {
			s.logger.Info("tick skipped, generation still running",
				zap.Stringer("status", busy.Status))
			return
		}
		s.logger.Error("scheduled generation failed", zap.Error(err))
	}
}

func (s *Scheduler) generateSelected(ctx context.Context) error {
	promptID, err := s.store.SelectedPromptID(ctx)
	if err != nil {
		return err
	}
	if promptID == "" {
		s.logger.Info("no prompt selected, skipping tick")
		return nil
	}

	s.logger.Info("starting scheduled generation", zap.String("prompt_id", promptID))
	return s.engine.Generate(ctx, promptID)
}
