// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", InvalidInput("bad param"), http.StatusBadRequest},
		{"invalid bounds", InvalidBounds("start >= end"), http.StatusBadRequest},
		{"overlap", Overlap("collides with marker 4"), http.StatusConflict},
		{"not found", NotFound("marker 9"), http.StatusNotFound},
		{"unauthorized", Unauthorized("no session"), http.StatusUnauthorized},
		{"forbidden", Forbidden("not allowed"), http.StatusForbidden},
		{"suspended", Suspended("server suspended"), http.StatusServiceUnavailable},
		{"shutting down", ShuttingDown("draining"), http.StatusServiceUnavailable},
		{"config invalid", ConfigInvalid("bad path"), http.StatusServiceUnavailable},
		{"backend", Backend(errors.New("disk full"), "write failed"), http.StatusInternalServerError},
		{"external", External(errors.New("exit 1"), "tool failed"), http.StatusBadGateway},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Status(tc.err); got != tc.want {
				t.Errorf("Status() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSafeMessageHidesUnsafeKinds(t *testing.T) {
	if got := SafeMessage(NotFound("marker 9")); got != "marker 9" {
		t.Errorf("safe kind message = %q, want passthrough", got)
	}
	if got := SafeMessage(Backend(errors.New("disk full"), "write failed")); got != "internal error" {
		t.Errorf("unsafe kind message = %q, want generic", got)
	}
	if got := SafeMessage(errors.New("plain")); got != "internal error" {
		t.Errorf("non-Error message = %q, want generic", got)
	}
}

func TestShouldLogAsError(t *testing.T) {
	if ShouldLogAsError(NotFound("x")) {
		t.Error("NotFound should not log as error")
	}
	if ShouldLogAsError(Overlap("x")) {
		t.Error("Overlap should not log as error")
	}
	if !ShouldLogAsError(Backend(errors.New("x"), "y")) {
		t.Error("Backend should log as error")
	}
	if !ShouldLogAsError(External(errors.New("x"), "y")) {
		t.Error("External should log as error")
	}
}

func TestIsAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Backend(cause, "write failed")
	if !Is(err, KindBackend) {
		t.Error("Is(KindBackend) should be true")
	}
	if Is(err, KindExternal) {
		t.Error("Is(KindExternal) should be false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through to the wrapped cause")
	}
}

func TestErrorStringIncludesKindAndMessage(t *testing.T) {
	err := InvalidInput("missing field %q", "startMs")
	msg := err.Error()
	if msg != `InvalidInput: missing field "startMs"` {
		t.Errorf("Error() = %q", msg)
	}
}
