// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// loginThrottle limits login attempts per username, independent of
// whether the attempt succeeds or fails. There is only ever one real
// username, but keying by username (rather than a single global limiter)
// keeps a burst of mistyped usernames from being able to throttle out the
// legitimate one.
type loginThrottle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

// newLoginThrottle allows burst attempts immediately, refilling at r per
// second thereafter.
func newLoginThrottle(r rate.Limit, burst int) *loginThrottle {
	return &loginThrottle{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		burst:    burst,
	}
}

// allow reports whether another login attempt for username may proceed
// right now, consuming a token if so.
func (t *loginThrottle) allow(username string) bool {
	t.mu.Lock()
	lim, ok := t.limiters[username]
	if !ok {
		lim = rate.NewLimiter(t.r, t.burst)
		t.limiters[username] = lim
	}
	t.mu.Unlock()
	return lim.Allow()
}
