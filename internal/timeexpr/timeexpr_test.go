// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package timeexpr

import (
	"testing"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/models"
)

func testContext() Context {
	return Context{
		DurationMs: 1_800_000,
		Markers: []models.Marker{
			{Index: 0, MarkerType: models.MarkerTypeIntro, StartMs: 0, EndMs: 30_000},
			{Index: 1, MarkerType: models.MarkerTypeCredits, StartMs: 1_700_000, EndMs: 1_800_000},
			{Index: 2, MarkerType: models.MarkerTypeCommercial, StartMs: 600_000, EndMs: 630_000},
		},
		Chapters: []models.Chapter{
			{Index: 0, Name: "Prologue", StartMs: 0, EndMs: 30_000},
			{Index: 1, Name: "Act One", StartMs: 30_000, EndMs: 900_000},
			{Index: 2, Name: "Act Two: The Return", StartMs: 900_000, EndMs: 1_700_000},
		},
	}
}

func TestEvaluatePlainForms(t *testing.T) {
	ctx := testContext()
	tests := []struct {
		name string
		expr string
		role Role
		want int64
	}{
		{"bare milliseconds", "12345", StartField, 12345},
		{"clock hms", "00:01:30", StartField, 90_000},
		{"clock with fraction", "00:00:01.500", StartField, 1500},
		{"negative offset from end", "-60000", EndField, 1_740_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, ctx, tt.role)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateMarkerReference(t *testing.T) {
	ctx := testContext()
	tests := []struct {
		name string
		expr string
		role Role
		want int64
	}{
		{"start field defaults to end of ref", "=I@M1", StartField, 30_000},
		{"end field defaults to start of ref", "=C@M1", EndField, 1_700_000},
		{"explicit start side with offset", "=I@M1S+5000", StartField, 5000},
		{"negative ordinal counts from end", "=C@M-1", EndField, 1_700_000},
		{"offset after reference", "=I@M1E+00:01:00", StartField, 90_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, ctx, tt.role)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateChapterReference(t *testing.T) {
	ctx := testContext()
	tests := []struct {
		name string
		expr string
		role Role
		want int64
	}{
		{"chapter by index", "=I@Ch3", StartField, 1_700_000},
		{"chapter by exact name", "=I@Ch(Prologue)", StartField, 30_000},
		{"chapter by wildcard name", "=I@Ch(Act*)", StartField, 900_000},
		{"chapter by regex", "=I@Ch(/^act one$/i)", StartField, 900_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, ctx, tt.role)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %d, want %d", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	ctx := testContext()
	tests := []struct {
		name string
		expr string
		role Role
	}{
		{"empty expression", "", StartField},
		{"garbage", "not-a-time", StartField},
		{"marker ordinal zero", "=I@M0", StartField},
		{"marker ordinal out of range", "=I@M99", StartField},
		{"unknown chapter name", "=I@Ch(Nonexistent)", StartField},
		{"malformed regex", "=I@Ch(/[/i)", StartField},
		{"unknown marker type letter", "=X@M1", StartField},
		{"reference subtraction is not a valid grammar form", "1:00 - M1", StartField},
		{"negative combined result", "=I@M1S-10000", StartField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, ctx, tt.role)
			if err == nil {
				t.Fatalf("Evaluate(%q) expected an error", tt.expr)
			}
		})
	}
}

func TestEvaluateChapterOutOfRangeIsInvalidInputKind(t *testing.T) {
	ctx := testContext()
	_, err := Evaluate("=I@Ch99", ctx, StartField)
	if err == nil {
		t.Fatal("expected error")
	}
	if !apperr.Is(err, apperr.KindInvalidInput) {
		t.Errorf("error kind = %v, want InvalidInput", err)
	}
}

func FuzzEvaluate(f *testing.F) {
	seeds := []string{
		"12345",
		"-12345",
		"00:01:30",
		"00:01:30.500",
		"=I@M1",
		"=C@M-1S+1000",
		"=A@Ch3E-500",
		"=I@Ch(Prologue)",
		"=I@Ch(Act*)",
		"=I@Ch(/^act.*$/i)",
		"",
		"=Z@M1",
		"garbage",
	}
	for _, s := range seeds {
		f.Add(s)
	}
	ctx := testContext()
	f.Fuzz(func(t *testing.T, expr string) {
		// Evaluate must never panic on arbitrary input; errors are fine.
		_, _ = Evaluate(expr, ctx, StartField)
		_, _ = Evaluate(expr, ctx, EndField)
	})
}
