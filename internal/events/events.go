// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

// Event is one of a closed set of server-lifecycle and cache-invalidation
// notifications. There is no mechanism to publish or subscribe to a name
// outside this set.
type Event string

const (
	// SoftRestart asks subscribers to reload their in-memory state without
	// dropping the HTTP listener.
	SoftRestart Event = "SoftRestart"
	// HardRestart precedes a full process restart.
	HardRestart Event = "HardRestart"
	// AutoSuspend fires when the idle-suspend timer elapses.
	AutoSuspend Event = "AutoSuspend"
	// AutoSuspendChanged fires when the auto-suspend config setting itself
	// changes, so the ticker can be rearmed with a new interval.
	AutoSuspendChanged Event = "AutoSuspendChanged"
	// ReloadThumbnailManager asks C4 to drop its cached thumbnails; its
	// settings are applied separately through SetConfig.
	ReloadThumbnailManager Event = "ReloadThumbnailManager"
	// ReloadMarkerStats asks C3 to rebuild its tree from the host database.
	ReloadMarkerStats Event = "ReloadMarkerStats"
	// RebuildPurgedCache asks C5 to recompute its per-section purge counts.
	RebuildPurgedCache Event = "RebuildPurgedCache"
)

var knownEvents = map[Event]bool{
	SoftRestart:            true,
	HardRestart:            true,
	AutoSuspend:            true,
	AutoSuspendChanged:     true,
	ReloadThumbnailManager: true,
	ReloadMarkerStats:      true,
	RebuildPurgedCache:     true,
}

// Handler reacts to a published Event. A returned error is logged and
// joined into Publish's return value, but never stops later subscribers
// for the same publish from running.
type Handler func(ctx context.Context) error

// Bus dispatches events to subscribers registered for them. The zero value
// is not usable; construct one with New.
type Bus struct {
	mu   sync.RWMutex
	log  zerolog.Logger
	subs map[Event][]Handler
}

// New returns an empty Bus.
func New(log zerolog.Logger) *Bus {
	return &Bus{
		log:  log.With().Str("component", "events").Logger(),
		subs: make(map[Event][]Handler),
	}
}

// Subscribe registers h to run on every future Publish of event. Handlers
// run in the order they were subscribed.
func (b *Bus) Subscribe(event Event, h Handler) error {
	if !knownEvents[event] {
		return apperr.InvalidInput("unknown event %q", event)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[event] = append(b.subs[event], h)
	return nil
}

// Publish runs every subscriber for event in turn, blocking until the last
// one returns. A subscriber's error does not prevent later subscribers
// from running; all errors are joined and returned together.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if !knownEvents[event] {
		return apperr.InvalidInput("unknown event %q", event)
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[event]...)
	b.mu.RUnlock()

	b.log.Debug().Str("event", string(event)).Int("subscribers", len(handlers)).Msg("publishing event")

	var errs []error
	for i, h := range handlers {
		if err := h(ctx); err != nil {
			b.log.Error().Err(err).Str("event", string(event)).Int("subscriber", i).Msg("event subscriber failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SubscriberCount reports how many handlers are registered for event, used
// by tests and diagnostics.
func (b *Bus) SubscriberCount(event Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[event])
}
