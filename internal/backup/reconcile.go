// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"context"
	"time"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

// ReconcileStalePending resolves actions still marked pending after olderThan
// has elapsed since they were recorded: a process crash between RecordPending
// and Commit leaves such a row behind. If the host row it describes exists,
// the mutation evidently succeeded and the action is promoted (committed);
// otherwise it is rolled back (deleted), matching spec §4.5/§7's two-database
// atomicity description. Called once on startup, before the HTTP listener
// accepts traffic.
func (m *Manager) ReconcileStalePending(ctx context.Context, olderThan time.Duration) error {
	cutoff := nowMs() - olderThan.Milliseconds()
	rows, err := m.db.All(ctx, `SELECT id, marker_id FROM `+actionsTable+` WHERE pending = 1 AND timestamp_epoch_ms < ?`, cutoff)
	if err != nil {
		return err
	}
	for _, row := range rows {
		var actionID, markerID int64
		if err := row.Scan(&actionID, &markerID); err != nil {
			return apperr.Backend(err, "scan stale pending action")
		}
		exists, err := m.hostMarkerExists(ctx, markerID)
		if err != nil {
			return err
		}
		if exists {
			if err := m.Commit(ctx, actionID); err != nil {
				return err
			}
			m.log.Warn().Int64("action_id", actionID).Msg("promoted stale pending backup action: host row exists")
			continue
		}
		if err := m.Abort(ctx, actionID); err != nil {
			return err
		}
		m.log.Warn().Int64("action_id", actionID).Msg("rolled back stale pending backup action: host row missing")
	}
	return nil
}

// existenceChecker is the slice of the marker cache (C3) RebuildPurgeCache
// needs; declared here so the backup package never imports internal/cache.
type existenceChecker interface {
	MarkerExists(markerID int64) bool
}

// RebuildPurgeCache cross-references every latest-state action for each of
// sectionIDs against cache (the in-memory marker cache, not the host
// database), precomputing a per-section purge count so clients can display
// an indicator without triggering a CheckForPurges scan on every request.
func (m *Manager) RebuildPurgeCache(ctx context.Context, sectionIDs []int64, cache existenceChecker) error {
	next := make(map[int64]int, len(sectionIDs))
	for _, sectionID := range sectionIDs {
		rows, err := m.loadActionsForSection(ctx, sectionID)
		if err != nil {
			return err
		}
		count := 0
		for _, r := range latestPerMarker(rows) {
			if r.IsLatestState() && !cache.MarkerExists(r.MarkerID) {
				count++
			}
		}
		next[sectionID] = count
	}
	m.purgeMu.Lock()
	m.purgeCache = next
	m.purgeMu.Unlock()
	return nil
}

// PurgedCount returns the precomputed purge count for sectionID, populated
// by the last RebuildPurgeCache call.
func (m *Manager) PurgedCount(sectionID int64) (int, bool) {
	m.purgeMu.RLock()
	defer m.purgeMu.RUnlock()
	n, ok := m.purgeCache[sectionID]
	return n, ok
}
