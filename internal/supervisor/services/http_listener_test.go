// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHTTPListenerServiceShutsDownOnContextCancel(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	svc := &HTTPListenerService{Server: server, ShutdownTimeout: time.Second, Log: zerolog.Nop()}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case err := <-errCh:
		if err != nil && err != context.DeadlineExceeded {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not shut down in time")
	}
}

func TestHTTPListenerServiceString(t *testing.T) {
	svc := &HTTPListenerService{}
	if svc.String() != "http-listener" {
		t.Errorf("got %q", svc.String())
	}
}
