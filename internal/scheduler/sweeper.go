package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
	"github.com/rs/zerolog"
)

type expiredSessionLister interface {
	ListExpiredCompletionPending(ctx context.Context, now time.Time) ([]models.Session, error)
}

type sessionCompleter interface {
	CompleteExpired(ctx context.Context, sessionID int64) (*models.Session, error)
}

// Sweeper force-completes sessions whose confirmation deadline has elapsed
// without student action. Each completion is an atomic conditional
// transition, so overlapping sweeps degrade to no-ops rather than double
// settlements.
type Sweeper struct {
	sessions expiredSessionLister
	service  sessionCompleter
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewSweeper(
	sessions expiredSessionLister,
	service sessionCompleter,
	interval time.Duration,
	log zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		service:  service,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// WithClock replaces the time source, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.log.Error().Err(err).Msg("completion sweep failed")
			}
		}
	}
}

// Sweep completes every past-deadline session found as of the injected
// clock. Individual failures are logged and do not stop the sweep.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now().UTC()
	expired, err := s.sessions.ListExpiredCompletionPending(ctx, now)
	if err != nil {
		return err
	}

	completed := 0
	for _, session := range expired {
		if _, err := s.service.CompleteExpired(ctx, session.ID); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.log.Warn().Err(err).Int64("session_id", session.ID).
				Msg("automatic completion failed")
			continue
		}
		completed++
	}

	if len(expired) > 0 {
		s.log.Info().Int("expired", len(expired)).Int("completed", completed).
			Msg("automatic session completion processed")
	}
	return nil
}
