// Package refresh keeps the store in step with writes made by other
// processes sharing the same repository.
package refresh

import (
	"context"
	"time"

	"rental-inventory/internal/repository"
	"rental-inventory/internal/store"

	"go.uber.org/zap"
)

type Scheduler struct {
	store    *store.Store
	repo     repository.Repository
	interval time.Duration
	log      *zap.Logger
	stopCh   chan struct{}
	done     chan struct{}
}

func NewScheduler(st *store.Store, repo repository.Repository, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		store:    st,
		repo:     repo,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start loads the store once and then reloads it every interval until Stop
// is called or ctx is done. The initial load error is returned.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info("starting store refresh", zap.Duration("interval", s.interval))
	if err := s.RunOnceNow(ctx); err != nil {
		close(s.done)
		return err
	}
	go s.run(ctx)
	return nil
}

func (s *Scheduler) Stop() {
	s.log.Info("stopping store refresh")
	close(s.stopCh)
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.RunOnceNow(ctx); err != nil {
				s.log.Error("store refresh failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("store refresh stopped")
			return
		case <-ctx.Done():
			s.log.Info("store refresh cancelled")
			return
		}
	}
}

func (s *Scheduler) RunOnceNow(ctx context.Context) error {
	start := time.Now()
	if err := s.store.Refresh(ctx, s.repo); err != nil {
		return err
	}
	s.log.Debug("store refreshed",
		zap.Uint64("generation", s.store.Generation()),
		zap.Duration("took", time.Since(start)))
	return nil
}
