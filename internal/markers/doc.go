// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package markers is the query manager (C2): every host-database mutation
that produces a legal marker set goes through here. Every write runs
inside a hostdb.Gateway transaction and returns the resulting marker rows
in canonical form.

Responsibilities: add, edit, delete, bulkShift, bulkAdd, bulkDelete,
nukeSection, reindexParent, markerStatsForSection. The manager also derives
host schema quirks — the marker tag id and the extra_data encoding — since
callers should never need to know the host's internal row layout.
*/
package markers
