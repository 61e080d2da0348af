// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backup implements the action-log write-ahead backup and purge
// reconciliation described in spec §4.5: a second SQLite database holding
// one append-only "actions" row per host-db marker mutation, recorded
// pending before the host-db transaction and flipped to committed after,
// so the two databases can never observably diverge. ParentContentSignature
// identifies the owning base item by its content rather than its host row
// id, since the host can purge and rescan a library section, handing out a
// new id to what is otherwise the same episode or movie.
package backup
