// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/api"
	"github.com/gomarkereditor/markereditor/internal/cache"
	"github.com/gomarkereditor/markereditor/internal/events"
)

// appLifecycle implements api.Lifecycle. It is the one piece of process
// control the dispatcher needs but must not own directly: only main knows
// how the process was started and what "restart" should mean for it.
type appLifecycle struct {
	cancel context.CancelFunc
	state  *api.StateMachine
	cache  *cache.Cache
	bus    *events.Bus
	log    zerolog.Logger
}

// Shutdown cancels the root context, which unwinds the supervisor tree and
// lets main return. The state machine is already in ShuttingDown by the
// time this runs (handleShutdown transitions it before calling us).
func (l *appLifecycle) Shutdown(ctx context.Context) error {
	l.log.Info().Msg("shutdown requested")
	l.cancel()
	return nil
}

// Restart implements the two flavors of C8's restart command. A soft
// restart rebuilds the in-memory marker cache from the host database and
// returns to Running without dropping the HTTP listener, matching the
// "reinit" row of spec §4.8's lifecycle table. A hard restart asks the
// process to exit 0 after a graceful shutdown, relying on an external
// process supervisor (systemd, a container restart policy) to start a
// fresh process, since a Go binary has no portable way to re-exec itself
// with its original arguments and environment intact.
func (l *appLifecycle) Restart(ctx context.Context, hard bool) error {
	if hard {
		l.log.Info().Msg("hard restart requested, exiting for external supervisor to restart")
		if err := l.bus.Publish(ctx, events.HardRestart); err != nil {
			l.log.Warn().Err(err).Msg("HardRestart subscribers reported errors")
		}
		l.cancel()
		go func() {
			time.Sleep(2 * time.Second)
			os.Exit(0)
		}()
		return nil
	}

	l.log.Info().Msg("soft restart: rebuilding marker cache")
	if err := l.bus.Publish(ctx, events.SoftRestart); err != nil {
		l.log.Warn().Err(err).Msg("SoftRestart subscribers reported errors")
	}
	if err := l.cache.Build(ctx); err != nil {
		l.log.Error().Err(err).Msg("cache rebuild failed during soft restart")
		_ = l.state.Transition(api.ShuttingDown)
		l.cancel()
		return err
	}
	return l.state.Transition(api.Running)
}
