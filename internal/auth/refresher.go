package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Refresher renews the session shortly before its access token expires.
type Refresher struct {
	cron     *cron.Cron
	gateway  *Gateway
	interval time.Duration
	margin   time.Duration
	log      zerolog.Logger
}

func NewRefresher(gateway *Gateway, interval, margin time.Duration, log zerolog.Logger) *Refresher {
	return &Refresher{
		cron:     cron.New(),
		gateway:  gateway,
		interval: interval,
		margin:   margin,
		log:      log,
	}
}

func (r *Refresher) Start() error {
	if r.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", r.interval)
	}
	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), r.tick); err != nil {
		return fmt.Errorf("schedule session refresh: %w", err)
	}
	r.cron.Start()
	return nil
}

// Stop halts scheduling and waits up to five seconds for a running tick.
func (r *Refresher) Stop() {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		r.log.Warn().Msg("session refresh still running at shutdown")
	}
}

func (r *Refresher) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := r.RefreshIfDue(ctx); err != nil {
		r.log.Error().Err(err).Msg("session refresh failed")
	}
}

// RefreshIfDue refreshes the session when it expires within the margin.
// It reports whether a refresh was attempted.
func (r *Refresher) RefreshIfDue(ctx context.Context) (bool, error) {
	session, err := r.gateway.loadSession(ctx)
	if err != nil {
		return false, err
	}
	if session == nil || !session.ExpiresWithin(r.gateway.now(), r.margin) {
		return false, nil
	}

	if _, err := r.gateway.RefreshSession(ctx); err != nil {
		return true, err
	}
	r.log.Debug().Msg("session refreshed ahead of expiry")
	return true, nil
}
