// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"context"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/hostdb"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// RestoreResult is the outcome of restoring one purged action.
type RestoreResult struct {
	ActionID int64
	Marker   models.Marker
	Err      error
}

// RestoreMarkers re-inserts host rows for each purged action, resolving the
// current parent by content signature. Per-marker failures (parent no
// longer exists) are reported in the result slice rather than aborting the
// whole batch, matching spec §7's per-item bulk semantics.
func (m *Manager) RestoreMarkers(ctx context.Context, actionIDs []int64, sectionID int64) ([]RestoreResult, error) {
	results := make([]RestoreResult, 0, len(actionIDs))
	for _, actionID := range actionIDs {
		row, ok, err := m.db.Get(ctx,
			`SELECT section_id, marker_id, parent_content_signature, start_ms, end_ms, marker_type, created_by_user
			 FROM `+actionsTable+` WHERE id = ?`, actionID)
		if err != nil {
			return nil, err
		}
		if !ok {
			results = append(results, RestoreResult{ActionID: actionID, Err: apperr.NotFound("backup action %d", actionID)})
			continue
		}
		var secID, markerID int64
		var sig, mtype string
		var startMs, endMs int64
		var createdByUser int
		if err := row.Scan(&secID, &markerID, &sig, &startMs, &endMs, &mtype, &createdByUser); err != nil {
			return nil, apperr.Backend(err, "scan action %d", actionID)
		}

		parentID, ok, err := m.resolveParentBySignature(ctx, sectionID, sig)
		if err != nil {
			return nil, err
		}
		if !ok {
			results = append(results, RestoreResult{ActionID: actionID, Err: apperr.NotFound("no surviving parent for action %d (signature %s)", actionID, sig)})
			continue
		}

		existing, err := m.parentHasMarker(ctx, parentID, startMs, endMs, mtype)
		if err != nil {
			return nil, err
		}
		if existing {
			results = append(results, RestoreResult{ActionID: actionID})
			continue
		}

		var restored models.Marker
		err = m.host.Transaction(ctx, func(tx *hostdb.Tx) error {
			tagID, err := tagIDForType(ctx, tx, mtype)
			if err != nil {
				return err
			}
			count, err := countMarkers(ctx, tx, parentID)
			if err != nil {
				return err
			}
			res, err := tx.Run(ctx,
				`INSERT INTO `+hostTaggingsTable+` (metadata_item_id, tag_id, time_offset, end_time_offset, "index", created_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				parentID, tagID, startMs, endMs, count, nowMs())
			if err != nil {
				return apperr.Backend(err, "insert restored marker")
			}
			restored = models.Marker{
				ID:            res.LastInsertRowID,
				ParentID:      parentID,
				StartMs:       startMs,
				EndMs:         endMs,
				MarkerType:    models.MarkerType(mtype),
				Index:         count,
				CreatedByUser: createdByUser != 0,
			}
			return nil
		})
		if err != nil {
			results = append(results, RestoreResult{ActionID: actionID, Err: err})
			continue
		}

		newSig, err := m.ContentSignature(ctx, parentID)
		if err != nil {
			return nil, err
		}
		restoreActionID, err := m.RecordPending(ctx, models.BackupAction{
			SectionID:              sectionID,
			ActionKind:             models.ActionRestore,
			MarkerID:               restored.ID,
			ParentContentSignature: newSig,
			StartMs:                startMs,
			EndMs:                  endMs,
			MarkerType:             models.MarkerType(mtype),
			CreatedByUser:          createdByUser != 0,
			TimestampEpochMs:       nowMs(),
			RestoredFromActionID:   actionID,
		})
		if err != nil {
			return nil, err
		}
		if err := m.Commit(ctx, restoreActionID); err != nil {
			return nil, err
		}

		results = append(results, RestoreResult{ActionID: actionID, Marker: restored})
	}
	return results, nil
}

// IgnorePurgedMarkers flags actionIDs as ignored so CheckForPurges no
// longer reports them.
func (m *Manager) IgnorePurgedMarkers(ctx context.Context, actionIDs []int64, sectionID int64) error {
	for _, id := range actionIDs {
		if _, err := m.db.Run(ctx, `UPDATE `+actionsTable+` SET ignored = 1 WHERE id = ? AND section_id = ?`, id, sectionID); err != nil {
			return apperr.Backend(err, "ignore purged action %d", id)
		}
	}
	return nil
}

func (m *Manager) parentHasMarker(ctx context.Context, parentID, startMs, endMs int64, markerType string) (bool, error) {
	_, ok, err := m.host.Get(ctx,
		`SELECT tg.id FROM `+hostTaggingsTable+` tg JOIN `+hostTagsTable+` t ON t.id = tg.tag_id
		 WHERE tg.metadata_item_id = ? AND tg.time_offset = ? AND tg.end_time_offset = ? AND t.tag = ? AND t.tag_type = ?`,
		parentID, startMs, endMs, markerType, hostMarkerTagType)
	return ok, err
}

func tagIDForType(ctx context.Context, tx *hostdb.Tx, markerType string) (int64, error) {
	tagName := markerTypeTagName[markerType]
	row, ok, err := tx.Get(ctx, `SELECT id FROM `+hostTagsTable+` WHERE tag_type = ? AND tag = ?`, hostMarkerTagType, tagName)
	if err != nil {
		return 0, err
	}
	if ok {
		var id int64
		if err := row.Scan(&id); err != nil {
			return 0, apperr.Backend(err, "scan tag id")
		}
		return id, nil
	}
	res, err := tx.Run(ctx, `INSERT INTO `+hostTagsTable+` (tag_type, tag) VALUES (?, ?)`, hostMarkerTagType, tagName)
	if err != nil {
		return 0, apperr.Backend(err, "create tag row for %s", markerType)
	}
	return res.LastInsertRowID, nil
}

func countMarkers(ctx context.Context, tx *hostdb.Tx, parentID int64) (int, error) {
	rows, err := tx.All(ctx, `SELECT id FROM `+hostTaggingsTable+` WHERE metadata_item_id = ?`, parentID)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
