// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package thumbnail is the thumbnail manager (C4). It resolves a
(baseItemId, timestampMs) pair to JPEG bytes in one of two modes: index
mode reads the host's precomputed BIF-format thumbnail index and returns
whichever frame covers the requested timestamp; precise mode invokes an
external media tool to extract an exact frame from the source file,
guarded by a circuit breaker so a wedged tool can't stack up timeouts.

Results are cached in memory by rounded timestamp and dropped whenever C9
publishes ReloadThumbnailManager, which happens when the precise-thumbnails
setting changes. A path-mapping change does not drop the cache.
*/
package thumbnail
