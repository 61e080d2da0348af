// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later


/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression, performance
monitoring and request ID tracking. These components work alongside the
authentication middleware to create a complete middleware stack for HTTP
request processing. CORS and Prometheus metrics are not part of this package.

Key Components:

  - Compression: Gzip compression for every response when the client accepts it
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing

Middleware Stack:

The middleware in this package can be stacked like this:

	http.HandleFunc("/api/v1/endpoint",
	    middleware.Compression(    // Layer 1: Gzip
	        middleware.RequestID(  // Layer 2: Request tracking
	            handler,           // Layer 3: Business logic
	        ),
	    ),
	)

Usage Example - Compression:

	import "github.com/gomarkereditor/markereditor/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/data",
	    middleware.Compression(handler),
	)

	// Responses of any size are compressed
	// Accept-Encoding: gzip header is required

Usage Example - Performance Monitoring:

	// Create performance monitor keeping the 1000 most recent samples
	perfMon := middleware.NewPerformanceMonitor(1000)

	// Wrap handler
	http.Handle("/api/v1/stats",
	    perfMon.Middleware(handler),
	)

	// Get per-endpoint performance statistics
	for _, s := range perfMon.GetStats() {
	    fmt.Printf("%s p50: %dms, p95: %dms, p99: %dms\n",
	        s.Path, s.P50Duration, s.P95Duration, s.P99Duration)
	}

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Compression: 70-90% size reduction for JSON (text/json mime types)
  - Compression overhead: ~1-2ms for typical responses
  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)
  - Performance monitor: mutex-guarded sliding window of latency samples

Compression Details:

The compression middleware:
  - Compresses every response, whatever its size or content type
  - Supports gzip encoding (Accept-Encoding: gzip); WebSocket upgrades are skipped
  - Automatically sets Content-Encoding header and removes Content-Length
  - Has no Flush support for streaming responses

Performance Monitor:

The performance monitor tracks:
  - Request count and total duration per endpoint (method + path)
  - Latency percentiles (p50, p95, p99)
  - Rolling window of the maxMetrics most recent requests
  - Thread-safe concurrent access with RWMutex

Thread Safety:

All middleware components are thread-safe:
  - Compression uses per-request gzip writers
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)

See Also:

  - internal/auth: Authentication middleware
  - internal/api: HTTP handlers wrapped by middleware, and Prometheus metrics definitions (metrics.go)
*/
package middleware
