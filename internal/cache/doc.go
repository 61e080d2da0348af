// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache holds the in-memory Section -> {Show -> Season -> Episode |
// Movie} tree. Every node carries a models.Breakdown, kept coherent with its
// children on every mutation. The whole tree is guarded by a single
// sync.RWMutex: reads (query API) take the read lock, writes (the mutation
// API called by internal/markers after a committed host-db transaction)
// take the write lock. A bloomFilter gives markerExists/baseItemExists a
// cheap "definitely absent" short-circuit ahead of a tree walk.
package cache
