// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

// BreakdownKeyBase is B in key(intros, credits) = intros*B + credits. It
// must exceed the largest credits count ever observed in one base item;
// 1024 gives ample headroom since a base item has at most a handful of
// credits markers.
const BreakdownKeyBase = 1024

// BreakdownKey encodes an (introCount, creditsCount) pair into a single
// bijective integer, reconstructible by DecodeBreakdownKey.
func BreakdownKey(intros, credits int) int64 {
	return int64(intros)*BreakdownKeyBase + int64(credits)
}

// DecodeBreakdownKey inverts BreakdownKey.
func DecodeBreakdownKey(key int64) (intros, credits int) {
	intros = int(key / BreakdownKeyBase)
	credits = int(key % BreakdownKeyBase)
	return intros, credits
}

// Breakdown is a multiset of intro/credits keys plus an independent
// commercial count map, held by every node in the cache tree (base item,
// season, show, section). Grouping nodes hold the sum of their children's
// Breakdowns; base items hold a single-key Breakdown (at most one active
// key, since a base item has one intro count and one credits count).
//
// Commercials are tracked separately per the decision in SPEC_FULL.md: they
// do not participate in the bijective key so that key stays reconstructible
// for exactly the pair it was designed for.
type Breakdown struct {
	Counts      map[int64]int // intro/credits key -> number of base items with that key
	Commercials map[int]int   // commercial count per base item -> number of base items with that count
}

// NewBreakdown returns an empty Breakdown ready for use.
func NewBreakdown() Breakdown {
	return Breakdown{Counts: make(map[int64]int), Commercials: make(map[int]int)}
}

// Add increments the count for key by delta, pruning the entry if it drops
// to zero so empty keys don't accumulate forever.
func (b *Breakdown) Add(key int64, delta int) {
	if b.Counts == nil {
		b.Counts = make(map[int64]int)
	}
	b.Counts[key] += delta
	if b.Counts[key] <= 0 {
		delete(b.Counts, key)
	}
}

// AddCommercial increments the commercial-count bucket by delta.
func (b *Breakdown) AddCommercial(count int, delta int) {
	if b.Commercials == nil {
		b.Commercials = make(map[int]int)
	}
	b.Commercials[count] += delta
	if b.Commercials[count] <= 0 {
		delete(b.Commercials, count)
	}
}

// Merge folds other into b, used when rolling a child node's breakdown into
// its parent during build or propagation.
func (b *Breakdown) Merge(other Breakdown) {
	for k, v := range other.Counts {
		b.Add(k, v)
	}
	for k, v := range other.Commercials {
		b.AddCommercial(k, v)
	}
}

// Total returns the number of base items represented in b.
func (b Breakdown) Total() int {
	total := 0
	for _, v := range b.Counts {
		total += v
	}
	return total
}

// Equal reports whether b and other hold the same counts, used by tests
// asserting the sum-of-children invariant.
func (b Breakdown) Equal(other Breakdown) bool {
	if len(b.Counts) != len(other.Counts) || len(b.Commercials) != len(other.Commercials) {
		return false
	}
	for k, v := range b.Counts {
		if other.Counts[k] != v {
			return false
		}
	}
	for k, v := range b.Commercials {
		if other.Commercials[k] != v {
			return false
		}
	}
	return true
}
