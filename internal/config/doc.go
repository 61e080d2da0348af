// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config implements the typed, validated settings store (C6):
// layered loading (defaults, an optional JSON file, environment overrides),
// live single-field validation for UI feedback, and a two-step
// validate-then-apply update that classifies every changed setting as
// hot-apply, soft-reload, or full-restart per spec §4.6.
package config
