// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/api"
	"github.com/gomarkereditor/markereditor/internal/cache"
)

// ConfigSnapshot is the slice of live config the auto-suspend ticker polls
// on every tick, so a hot-applied setLogSettings/setServerConfig change
// (spec §4.6) takes effect on the ticker's very next check without the
// supervisor needing to restart this service.
type ConfigSnapshot func() (enabled bool, timeout time.Duration)

// AutoSuspendService transitions the lifecycle state machine to Suspended
// once the server has seen no command dispatch for the configured timeout
// (spec §4.8). It is a no-op ticker while auto-suspend is disabled.
type AutoSuspendService struct {
	State    *api.StateMachine
	Activity *cache.ActivityTracker
	Config   ConfigSnapshot
	Log      zerolog.Logger
}

func (a *AutoSuspendService) String() string { return "auto-suspend" }

// Serve polls every 10 seconds; this is deliberately much finer than any
// reasonable auto-suspend timeout since the cost of a poll is a handful of
// atomic reads.
func (a *AutoSuspendService) Serve(ctx context.Context) error {
	const pollInterval = 10 * time.Second

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.checkOnce()
		}
	}
}

func (a *AutoSuspendService) checkOnce() {
	enabled, timeout := a.Config()
	if !enabled || timeout <= 0 {
		return
	}
	if a.State.Current() != api.Running {
		return
	}
	if !a.Activity.IdleFor() {
		return
	}
	if err := a.State.Transition(api.Suspended); err != nil {
		a.Log.Warn().Err(err).Msg("auto-suspend transition rejected")
		return
	}
	a.Log.Info().Dur("timeout", timeout).Msg("server auto-suspended after idle timeout")
}
