// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package supervisor provides process supervision using suture v4.

It implements a two-layer supervisor tree that manages the lifecycle of every
long-running service the server runs outside of handling individual HTTP
requests. It provides Erlang/OTP-style supervision with automatic restart,
failure isolation, and graceful shutdown.

# Overview

The supervisor tree organizes services into two layers for failure isolation:

	RootSupervisor ("markereditor")
	├── BackgroundSupervisor ("background-layer")
	│   ├── session store cleanup sweep
	│   ├── auto-suspend idle ticker
	│   └── periodic purge-cache rebuild
	└── APISupervisor ("api-layer")
	    └── HTTP listener (command dispatcher)

This hierarchy ensures that a crash in the purge-cache rebuild loop, say,
doesn't take the HTTP listener down with it, and vice versa.

# Usage Example

Basic setup in main.go:

	import (
	    "log/slog"
	    "github.com/gomarkereditor/markereditor/internal/supervisor"
	)

	func main() {
	    logger := slog.Default()
	    config := supervisor.DefaultTreeConfig()

	    tree, err := supervisor.NewSupervisorTree(logger, config)
	    if err != nil {
	        log.Fatal(err)
	    }

	    tree.AddBackgroundService(sessionCleanup)
	    tree.AddBackgroundService(autoSuspendTicker)
	    tree.AddBackgroundService(purgeCacheRebuilder)
	    tree.AddAPIService(httpListener)

	    ctx := context.Background()
	    if err := tree.Serve(ctx); err != nil {
	        log.Printf("supervisor stopped: %v", err)
	    }
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,              // Failures before backoff
	    FailureDecay:     30.0,             // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Default values match suture's own production-ready defaults.

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return nil for a clean stop (no restart), an error to trigger a restart, and
return promptly once the context is canceled.

# Debugging Shutdown Issues

If services don't stop within the timeout:

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("service didn't stop: %v", svc)
	}

# See Also

  - internal/supervisor/services: background service implementations
  - github.com/thejerf/suture/v4: underlying supervision library
*/
package supervisor
