// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"context"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// actionRow is the full actions-table row, scanned once and reused by both
// CheckForPurges and the startup reconciliation pass.
type actionRow struct {
	models.BackupAction
}

func (m *Manager) loadActionsForSection(ctx context.Context, sectionID int64) ([]actionRow, error) {
	rows, err := m.db.All(ctx,
		`SELECT id, section_id, action_kind, marker_id, parent_content_signature, start_ms, end_ms, marker_type,
		        created_by_user, timestamp_epoch_ms, restored_from_action_id, ignored, pending
		 FROM `+actionsTable+` WHERE section_id = ? ORDER BY timestamp_epoch_ms DESC`, sectionID)
	if err != nil {
		return nil, err
	}
	out := make([]actionRow, 0, len(rows))
	for _, row := range rows {
		var a actionRow
		var createdByUser, ignored, pending int
		var kind, mtype string
		if err := row.Scan(&a.ActionID, &a.SectionID, &kind, &a.MarkerID, &a.ParentContentSignature,
			&a.StartMs, &a.EndMs, &mtype, &createdByUser, &a.TimestampEpochMs, &a.RestoredFromActionID,
			&ignored, &pending); err != nil {
			return nil, apperr.Backend(err, "scan action row")
		}
		a.ActionKind = models.ActionKind(kind)
		a.MarkerType = models.MarkerType(mtype)
		a.CreatedByUser = createdByUser != 0
		a.Ignored = ignored != 0
		a.Pending = pending != 0
		out = append(out, a)
	}
	return out, nil
}

// latestPerMarker reduces rows (already ordered newest-first) to one entry
// per marker_id lineage: the most recent action recorded against it.
func latestPerMarker(rows []actionRow) []actionRow {
	seen := make(map[int64]bool, len(rows))
	out := make([]actionRow, 0, len(rows))
	for _, r := range rows {
		if seen[r.MarkerID] {
			continue
		}
		seen[r.MarkerID] = true
		out = append(out, r)
	}
	return out
}

// CheckForPurges scans every action recorded under sectionID whose latest
// state should exist (an add/edit/restore not superseded by a delete, not
// ignored) and reports those whose marker no longer survives on the host:
// a purge. Candidates are scanned oldest-first via a min-heap, matching
// the intuition that a host rescan purges its oldest untouched content
// first. Survival is checked by signature, not by the literal
// marker/tagging id, since a rescan that purges and recreates a base
// item's metadata row also invalidates every tagging id under it — the
// signature is what survives that churn, and is used first to find the
// item's current (possibly new) id before checking whether this specific
// marker still lives under it.
func (m *Manager) CheckForPurges(ctx context.Context, sectionID int64) ([]models.BackupAction, error) {
	rows, err := m.loadActionsForSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	h := newTimeHeap(func(a, b actionRow) bool { return a.TimestampEpochMs < b.TimestampEpochMs })
	for _, r := range latestPerMarker(rows) {
		if r.IsLatestState() {
			h.Push(r)
		}
	}

	var purged []models.BackupAction
	for h.Len() > 0 {
		candidate := h.Pop()
		survives, err := m.markerSurvives(ctx, sectionID, candidate.BackupAction)
		if err != nil {
			return nil, err
		}
		if !survives {
			purged = append(purged, candidate.BackupAction)
		}
	}
	return purged, nil
}

// markerSurvives resolves action's parent by content signature and, if
// the parent still exists, checks whether a tagging matching its
// start/end offsets and marker type is still present under that id.
func (m *Manager) markerSurvives(ctx context.Context, sectionID int64, action models.BackupAction) (bool, error) {
	parentID, ok, err := m.resolveParentBySignature(ctx, sectionID, action.ParentContentSignature)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return m.parentHasMarker(ctx, parentID, action.StartMs, action.EndMs, string(action.MarkerType))
}

// hostMarkerExists checks for a literal tagging id. Only appropriate right
// after a single mutation whose id cannot yet have churned (reconcile.go's
// crash-recovery pass); CheckForPurges above must not use this, since a
// host rescan invalidates ids wholesale and that is exactly the case
// purge detection needs to survive.
func (m *Manager) hostMarkerExists(ctx context.Context, markerID int64) (bool, error) {
	_, ok, err := m.host.Get(ctx, `SELECT 1 FROM `+hostTaggingsTable+` WHERE id = ?`, markerID)
	return ok, err
}

// resolveParentBySignature finds the base item currently holding sig,
// scoped to sectionID, by recomputing every candidate's signature. Used by
// Restore to find where a purged marker's base item now lives under its
// (possibly new) host id.
func (m *Manager) resolveParentBySignature(ctx context.Context, sectionID int64, sig string) (int64, bool, error) {
	rows, err := m.host.All(ctx,
		`SELECT id, parent_id, duration FROM `+hostItemsTable+` WHERE library_section_id = ? AND metadata_type IN (?, ?)`,
		sectionID, metadataTypeMovie, metadataTypeEpisode)
	if err != nil {
		return 0, false, err
	}
	for _, row := range rows {
		var id, seasonID, duration int64
		if err := row.Scan(&id, &seasonID, &duration); err != nil {
			return 0, false, apperr.Backend(err, "scan candidate parent")
		}
		candidateSig, err := computeSignature(ctx, m.host, id, sectionID, seasonID, duration)
		if err != nil {
			return 0, false, err
		}
		if candidateSig == sig {
			return id, true, nil
		}
	}
	return 0, false, nil
}
