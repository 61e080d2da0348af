// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package hostdb

import "strings"

// isConnectionError reports whether err indicates the underlying connection
// was lost and a reopen should be attempted rather than surfacing the raw
// driver error to the caller.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "sql: database is closed") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "driver: bad connection") ||
		strings.Contains(msg, "broken pipe")
}

// isBusyError reports whether err is a SQLite "database is locked"/"busy"
// condition, which callers may choose to retry once rather than fail
// outright, since the host application can briefly hold the write lock
// during its own scans.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
