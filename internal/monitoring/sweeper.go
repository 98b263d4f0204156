package monitoring

import (
	"context"
	"time"

	"github.com/groupdesk/groupdesk-be/internal/tokenstore"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Used reset tokens and freshly expired ones are kept around for a week so
// a late redeem attempt still gets a precise TOKEN_EXPIRED / ALREADY_USED
// answer instead of TOKEN_NOT_FOUND.
const resetTokenRetention = 7 * 24 * time.Hour

// Sweeper periodically purges expired sessions and stale password-reset
// tokens.
type Sweeper struct {
	sessions tokenstore.SessionStore
	resets   tokenstore.ResetTokenStore
	schedule cron.Schedule
	nextRun  time.Time
	ticker   *time.Ticker
	done     chan bool
}

// NewSweeper creates a sweeper from a standard cron expression.
func NewSweeper(sessions tokenstore.SessionStore, resets tokenstore.ResetTokenStore, cronExpr string) (*Sweeper, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &Sweeper{
		sessions: sessions,
		resets:   resets,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run starts the sweeper's ticking loop.
func (s *Sweeper) Run() {
	log.Info().Msg("Starting token sweeper...")
	s.ticker = time.NewTicker(1 * time.Minute)
	defer s.ticker.Stop()

	// Sweep once immediately on start
	s.sweep()
	s.nextRun = s.schedule.Next(time.Now())

	for {
		select {
		case <-s.done:
			log.Info().Msg("Stopping token sweeper.")
			return
		case now := <-s.ticker.C:
			if now.After(s.nextRun) {
				s.sweep()
				s.nextRun = s.schedule.Next(now)
			}
		}
	}
}

// Stop halts the sweeper.
func (s *Sweeper) Stop() {
	s.done <- true
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()
	sessions, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Sweeper: failed to purge expired sessions")
	}

	resets, err := s.resets.DeleteExpiredBefore(ctx, now.Add(-resetTokenRetention))
	if err != nil {
		log.Error().Err(err).Msg("Sweeper: failed to purge stale reset tokens")
	}

	if sessions > 0 || resets > 0 {
		log.Info().Int64("sessions", sessions).Int64("reset_tokens", resets).Msg("Sweeper: purged expired tokens")
	}
}
