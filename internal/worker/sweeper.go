package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dei-rnl/thesis-service/internal/service"
)

// Sweeper periodically moves scheduled defenses whose date has passed into
// review. Runs as a single goroutine; each sweep is independent and
// idempotent, so a missed or doubled tick is harmless.
type Sweeper struct {
	defenses service.DefenseWorkflowService
	interval time.Duration
	logger   zerolog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewSweeper(defenses service.DefenseWorkflowService, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		defenses: defenses,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info().Dur("interval", s.interval).Msg("Defense status sweeper started")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	updated, err := s.defenses.UpdateDefenseStatuses(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Defense status sweep failed")
		return
	}

	if updated > 0 {
		s.logger.Info().Int("updated", updated).Msg("Defense status sweep completed")
	}
}

func (s *Sweeper) Stop() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()

	s.logger.Info().Msg("Defense status sweeper stopped")
}
