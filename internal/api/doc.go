// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP command dispatcher (C8): a chi router exposing
// the command table as JSON-over-POST endpoints, static asset/thumbnail/SVG
// GET routes, and the server's five-state lifecycle machine that gates
// which commands are accepted in which state.
package api
