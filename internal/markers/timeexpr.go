// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package markers

import (
	"context"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/timeexpr"
)

// ResolveTimeExpr evaluates a user-entered start/end expression for
// parentID (C11, spec §4.11) against that item's current markers,
// chapters, and media duration, returning an absolute millisecond
// timestamp. A plain numeric or clock-format string resolves without
// needing any of that context; a "=I@..."-style reference does.
func (m *Manager) ResolveTimeExpr(ctx context.Context, parentID int64, expr string, role timeexpr.Role) (int64, error) {
	row, ok, err := m.db.Get(ctx, `SELECT duration FROM `+itemsTable+` WHERE id = ?`, parentID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperr.NotFound("base item %d", parentID)
	}
	var duration int64
	if err := row.Scan(&duration); err != nil {
		return 0, apperr.Backend(err, "scan duration")
	}

	markers, err := m.Query(ctx, parentID)
	if err != nil {
		return 0, err
	}
	chapters, err := m.Chapters(ctx, parentID)
	if err != nil {
		return 0, err
	}

	return timeexpr.Evaluate(expr, timeexpr.Context{
		DurationMs: duration,
		Markers:    markers,
		Chapters:   chapters,
	}, role)
}
