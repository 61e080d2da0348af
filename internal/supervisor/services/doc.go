// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package services holds the suture.Service implementations run by
// internal/supervisor's two layers: session store cleanup, the auto-suspend
// idle ticker, and the purge-cache sweep run in the background layer, and
// the HTTP listener run in the API layer.
package services
