// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/auth"
)

// SessionCleanupService sweeps auth's session store on an interval, evicting
// sessions past their expiry so a long-lived process doesn't accumulate
// stale entries between logins.
type SessionCleanupService struct {
	Store    auth.SessionStore
	Interval time.Duration
	Log      zerolog.Logger
}

func (s *SessionCleanupService) String() string { return "session-cleanup" }

// Serve runs until ctx is canceled, sweeping every Interval.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.Store.CleanupExpired(ctx, time.Now().UnixMilli())
			if err != nil {
				s.Log.Warn().Err(err).Msg("session cleanup sweep failed")
				continue
			}
			if n > 0 {
				s.Log.Debug().Int("removed", n).Msg("expired sessions cleaned up")
			}
		}
	}
}
