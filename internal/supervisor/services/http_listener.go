// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPListenerService runs the command dispatcher's HTTP server under
// supervision: a crash inside http.Server (panics are already recovered by
// chi's Recoverer further down the chain, so this is a last line of
// defense) gets it restarted by the api-layer supervisor instead of taking
// the whole process down.
type HTTPListenerService struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
	Log             zerolog.Logger
}

func (h *HTTPListenerService) String() string { return "http-listener" }

// Serve blocks until ctx is canceled, then drains in-flight requests within
// ShutdownTimeout before returning.
func (h *HTTPListenerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := h.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.Server.Shutdown(shutdownCtx); err != nil {
		h.Log.Warn().Err(err).Msg("http listener did not shut down cleanly")
		return err
	}
	return ctx.Err()
}
