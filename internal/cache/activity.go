// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"sync"
	"time"
)

// ActivityTracker counts recent command dispatches in a sliding window, so
// the auto-suspend ticker can ask "has anything happened in the last N
// minutes" without keeping a single last-request timestamp that a single
// slow request right at the boundary could wrongly reset or miss.
//
// The window is divided into buckets; Touch bumps the current bucket and
// IdleFor reports whether every bucket is empty.
type ActivityTracker struct {
	mu         sync.Mutex
	buckets    []int64
	bucketSize time.Duration
	numBuckets int
	current    int
	lastUpdate time.Time
}

// NewActivityTracker divides window into numBuckets equal buckets. A zero or
// negative numBuckets defaults to 10; a zero or negative window defaults to
// 5 minutes.
func NewActivityTracker(window time.Duration, numBuckets int) *ActivityTracker {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &ActivityTracker{
		buckets:    make([]int64, numBuckets),
		bucketSize: window / time.Duration(numBuckets),
		numBuckets: numBuckets,
		lastUpdate: time.Now(),
	}
}

// SetWindow changes the tracked window going forward, without clearing
// recorded activity, so a config reload that changes the auto-suspend
// timeout (spec §4.6, hot-apply) takes effect without losing track of
// recent activity.
func (a *ActivityTracker) SetWindow(window time.Duration) {
	if window <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bucketSize = window / time.Duration(a.numBuckets)
}

// Touch records one unit of activity in the current bucket.
func (a *ActivityTracker) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advance()
	a.buckets[a.current]++
}

// IdleFor reports whether the tracker has recorded zero activity across its
// entire window, meaning the server has been idle for at least that long.
func (a *ActivityTracker) IdleFor() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advance()
	for _, count := range a.buckets {
		if count > 0 {
			return false
		}
	}
	return true
}

// advance must be called with the lock held.
func (a *ActivityTracker) advance() {
	now := time.Now()
	elapsed := now.Sub(a.lastUpdate)
	bucketsElapsed := int(elapsed / a.bucketSize)
	if bucketsElapsed <= 0 {
		return
	}
	if bucketsElapsed >= a.numBuckets {
		for i := range a.buckets {
			a.buckets[i] = 0
		}
		a.current = 0
	} else {
		for i := 0; i < bucketsElapsed; i++ {
			a.current = (a.current + 1) % a.numBuckets
			a.buckets[a.current] = 0
		}
	}
	a.lastUpdate = now
}
