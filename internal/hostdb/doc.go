// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package hostdb is the single-writer gateway to the host media server's
SQLite database (C1).

It exposes four operations — All, Get, Run, Transaction — and nothing
else: every caller goes through one of these four so that writes are always
serialized and reads that feed a write's pre-image always happen inside the
same transaction as the write (spec §5).

The gateway can be suspended: Suspend closes the underlying *sql.DB
connection and the next call transparently reopens it. Nothing closes the
connection on idleness by itself; the idleTimeout passed to Open is stored
but not consulted. Reopen failure fails that call with a Backend error; it
does not panic or retry silently.
*/
package hostdb
