// Package sweeper cancels stale duels. The state machine itself has no
// timeout policy; this is the external scheduler collaborator that sweeps
// non-terminal duels past their expiry through the engine's CancelDuel hook.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Hippes/valentine-duel-bot/internal/duel"
	"github.com/Hippes/valentine-duel-bot/internal/models"
)

// StaleDuelFinder lists duels that have sat in a non-terminal state since
// before the cutoff.
type StaleDuelFinder interface {
	ListStaleDuels(ctx context.Context, cutoff time.Time) ([]models.Duel, error)
}

// Sweeper periodically cancels duels older than MaxAge.
type Sweeper struct {
	finder  StaleDuelFinder
	service *duel.Service
	logger  *logrus.Logger

	Interval time.Duration
	MaxAge   time.Duration

	scheduler gocron.Scheduler
}

func New(finder StaleDuelFinder, service *duel.Service, logger *logrus.Logger, interval, maxAge time.Duration) *Sweeper {
	if logger == nil {
		logger = logrus.New()
	}
	return &Sweeper{
		finder:   finder,
		service:  service,
		logger:   logger,
		Interval: interval,
		MaxAge:   maxAge,
	}
}

// Start schedules the sweep. Call Stop to shut it down.
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(s.Interval),
		gocron.NewTask(func() {
			s.SweepOnce(context.Background())
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()
	return nil
}

func (s *Sweeper) Stop() {
	if s.scheduler != nil {
		_ = s.scheduler.Shutdown()
	}
}

// SweepOnce cancels every stale duel and returns the ids it cancelled.
// Cancellation failures for individual duels are logged and do not stop the
// sweep; the conditional cancel makes a duel that completed in the meantime
// a benign skip.
func (s *Sweeper) SweepOnce(ctx context.Context) []uuid.UUID {
	cutoff := time.Now().Add(-s.MaxAge)
	stale, err := s.finder.ListStaleDuels(ctx, cutoff)
	if err != nil {
		s.logger.Warnf("stale duel sweep failed: %v", err)
		return nil
	}

	var cancelled []uuid.UUID
	for _, d := range stale {
		if _, err := s.service.CancelDuel(ctx, d.ID); err != nil {
			if errors.Is(err, duel.ErrAlreadyCompleted) || errors.Is(err, duel.ErrIllegalStateTransition) {
				continue
			}
			s.logger.WithField("duel_id", d.ID).Warnf("failed to cancel stale duel: %v", err)
			continue
		}
		cancelled = append(cancelled, d.ID)
	}
	if len(cancelled) > 0 {
		s.logger.WithField("count", len(cancelled)).Info("cancelled stale duels")
	}
	return cancelled
}
