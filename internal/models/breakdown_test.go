// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "testing"

func TestBreakdownKeyBijection(t *testing.T) {
	for intros := 0; intros < 5; intros++ {
		for credits := 0; credits < 5; credits++ {
			key := BreakdownKey(intros, credits)
			gotIntros, gotCredits := DecodeBreakdownKey(key)
			if gotIntros != intros || gotCredits != credits {
				t.Errorf("BreakdownKey(%d,%d)=%d decoded to (%d,%d)", intros, credits, key, gotIntros, gotCredits)
			}
		}
	}
}

func TestBreakdownAddIntroIncrementsByBase(t *testing.T) {
	key := BreakdownKey(1, 2)
	shifted := key + BreakdownKeyBase
	intros, credits := DecodeBreakdownKey(shifted)
	if intros != 2 || credits != 2 {
		t.Errorf("adding an intro should only change intros: got (%d,%d)", intros, credits)
	}
}

func TestBreakdownMergeSumsChildren(t *testing.T) {
	parent := NewBreakdown()
	childA := NewBreakdown()
	childA.Add(BreakdownKey(0, 1), 1)
	childB := NewBreakdown()
	childB.Add(BreakdownKey(0, 1), 2)
	childB.Add(BreakdownKey(1, 0), 1)

	parent.Merge(childA)
	parent.Merge(childB)

	want := NewBreakdown()
	want.Add(BreakdownKey(0, 1), 3)
	want.Add(BreakdownKey(1, 0), 1)

	if !parent.Equal(want) {
		t.Errorf("parent breakdown = %+v, want %+v", parent, want)
	}
	if parent.Total() != 4 {
		t.Errorf("Total() = %d, want 4", parent.Total())
	}
}

func TestBreakdownAddPrunesZero(t *testing.T) {
	b := NewBreakdown()
	b.Add(5, 1)
	b.Add(5, -1)
	if _, ok := b.Counts[5]; ok {
		t.Error("zeroed key should be pruned")
	}
}

func TestBreakdownCommercialsIndependentOfKey(t *testing.T) {
	b := NewBreakdown()
	b.Add(BreakdownKey(1, 1), 1)
	b.AddCommercial(3, 1)
	if b.Counts[BreakdownKey(1, 1)] != 1 {
		t.Error("commercial add should not affect the intro/credits key")
	}
	if b.Commercials[3] != 1 {
		t.Error("commercial count not recorded")
	}
}

func TestMarkerOverlapsBoundaryTouching(t *testing.T) {
	a := Marker{StartMs: 100, EndMs: 200}
	b := Marker{StartMs: 200, EndMs: 300}
	if !a.Overlaps(b) {
		t.Error("touching boundaries must count as overlap per the tie-break rule")
	}
	c := Marker{StartMs: 201, EndMs: 300}
	if a.Overlaps(c) {
		t.Error("non-touching, non-intersecting ranges must not overlap")
	}
}
