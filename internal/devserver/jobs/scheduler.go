package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"clubhub/client/internal/devserver/repository"
)

// Scheduler sweeps expired verification codes and refresh sessions.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	codes    *repository.CodeRepository
	sessions *repository.SessionRepository
	log      zerolog.Logger
}

func NewScheduler(spec string, codes *repository.CodeRepository, sessions *repository.SessionRepository, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		spec:     spec,
		codes:    codes,
		sessions: sessions,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.spec == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.cleanup); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", s.spec, err)
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for a running sweep to finish.
func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("cleanup still running at shutdown")
	}
}

func (s *Scheduler) cleanup() {
	codes, sessions := s.Sweep(context.Background(), time.Now())
	if codes > 0 || sessions > 0 {
		s.log.Info().
			Int("codes", codes).
			Int("sessions", sessions).
			Msg("expired credentials removed")
	}
}

// Sweep removes everything that expired at or before now.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (codes int, sessions int) {
	return s.codes.DeleteExpired(ctx, now), s.sessions.DeleteExpired(ctx, now)
}
