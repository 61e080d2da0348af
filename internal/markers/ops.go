// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package markers

import (
	"context"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/hostdb"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// Add inserts a new marker under parentID. See spec §4.2.
func (m *Manager) Add(ctx context.Context, parentID, startMs, endMs int64, markerType models.MarkerType, isFinal bool) (models.Marker, error) {
	if !markerType.Valid() {
		return models.Marker{}, apperr.InvalidInput("unknown marker type %q", markerType)
	}

	var created models.Marker
	err := m.db.Transaction(ctx, func(tx *hostdb.Tx) error {
		duration, err := m.durationForParent(ctx, tx, parentID)
		if err != nil {
			return err
		}
		if err := validateBounds(startMs, endMs, duration); err != nil {
			return err
		}

		siblings, err := m.fetchSiblings(ctx, tx, parentID)
		if err != nil {
			return err
		}
		for _, s := range siblings {
			if overlaps(startMs, endMs, s.StartMs, s.EndMs) {
				return apperr.Overlap("range [%d,%d) overlaps marker %d [%d,%d)", startMs, endMs, s.ID, s.StartMs, s.EndMs)
			}
		}

		tagID, err := m.tagIDForType(ctx, tx, markerType)
		if err != nil {
			return err
		}

		now := nowMs()
		res, err := tx.Run(ctx,
			`INSERT INTO `+taggingsTable+` (metadata_item_id, tag_id, time_offset, end_time_offset, "index", created_at)
			 VALUES (?, ?, ?, ?, 0, ?)`,
			parentID, tagID, startMs, endMs, now)
		if err != nil {
			return apperr.Backend(err, "insert marker")
		}
		markerID := res.LastInsertRowID

		reindexed, err := m.reindexParent(ctx, tx, parentID)
		if err != nil {
			return err
		}
		for _, r := range reindexed {
			if r.ID == markerID {
				created = r
				created.CreatedByUser = true
				created.IsFinal = isFinal
				break
			}
		}

		m.writeExtraData(ctx, tx, markerID, isFinal)

		sig, err := m.backup.ContentSignature(ctx, parentID)
		if err != nil {
			return err
		}
		actionID, err := m.backup.RecordPending(ctx, models.BackupAction{
			ActionKind:             models.ActionAdd,
			MarkerID:               markerID,
			ParentContentSignature: sig,
			StartMs:                startMs,
			EndMs:                  endMs,
			MarkerType:             markerType,
			CreatedByUser:          true,
			TimestampEpochMs:       now,
		})
		if err != nil {
			return err
		}
		return m.backup.Commit(ctx, actionID)
	})
	if err != nil {
		return models.Marker{}, err
	}

	m.cache.AddMarker(created)
	return created, nil
}

// Edit mutates an existing marker's bounds/type/final flag.
func (m *Manager) Edit(ctx context.Context, id, startMs, endMs int64, markerType models.MarkerType, isFinal bool) (models.Marker, error) {
	if !markerType.Valid() {
		return models.Marker{}, apperr.InvalidInput("unknown marker type %q", markerType)
	}

	var old, updated models.Marker
	err := m.db.Transaction(ctx, func(tx *hostdb.Tx) error {
		row, ok, err := tx.Get(ctx,
			`SELECT tg.metadata_item_id, tg.time_offset, tg.end_time_offset, t.tag
			 FROM `+taggingsTable+` tg JOIN `+tagsTable+` t ON t.id = tg.tag_id WHERE tg.id = ?`, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("marker %d", id)
		}
		var parentID, oldStart, oldEnd int64
		var oldTag string
		if err := row.Scan(&parentID, &oldStart, &oldEnd, &oldTag); err != nil {
			return apperr.Backend(err, "scan marker %d", id)
		}
		old = models.Marker{ID: id, ParentID: parentID, StartMs: oldStart, EndMs: oldEnd, MarkerType: models.MarkerType(tagNameToMarkerType[oldTag])}

		duration, err := m.durationForParent(ctx, tx, parentID)
		if err != nil {
			return err
		}
		if err := validateBounds(startMs, endMs, duration); err != nil {
			return err
		}

		siblings, err := m.fetchSiblings(ctx, tx, parentID)
		if err != nil {
			return err
		}
		for _, s := range siblings {
			if s.ID == id {
				continue
			}
			if overlaps(startMs, endMs, s.StartMs, s.EndMs) {
				return apperr.Overlap("range [%d,%d) overlaps marker %d [%d,%d)", startMs, endMs, s.ID, s.StartMs, s.EndMs)
			}
		}

		tagID, err := m.tagIDForType(ctx, tx, markerType)
		if err != nil {
			return err
		}
		now := nowMs()
		if _, err := tx.Run(ctx,
			`UPDATE `+taggingsTable+` SET time_offset = ?, end_time_offset = ?, tag_id = ? WHERE id = ?`,
			startMs, endMs, tagID, id); err != nil {
			return apperr.Backend(err, "update marker %d", id)
		}

		reindexed, err := m.reindexParent(ctx, tx, parentID)
		if err != nil {
			return err
		}
		for _, r := range reindexed {
			if r.ID == id {
				updated = r
				updated.CreatedByUser = true
				updated.ModifiedAtEpochMs = now
				updated.IsFinal = isFinal
				break
			}
		}

		m.writeExtraData(ctx, tx, id, isFinal)

		sig, err := m.backup.ContentSignature(ctx, parentID)
		if err != nil {
			return err
		}
		actionID, err := m.backup.RecordPending(ctx, models.BackupAction{
			ActionKind:             models.ActionEdit,
			MarkerID:               id,
			ParentContentSignature: sig,
			StartMs:                startMs,
			EndMs:                  endMs,
			MarkerType:             markerType,
			CreatedByUser:          true,
			TimestampEpochMs:       now,
		})
		if err != nil {
			return err
		}
		return m.backup.Commit(ctx, actionID)
	})
	if err != nil {
		return models.Marker{}, err
	}

	m.cache.RemoveMarker(old.ParentID, old.ID)
	m.cache.AddMarker(updated)
	return updated, nil
}

// Delete removes a marker and reindexes its remaining siblings.
func (m *Manager) Delete(ctx context.Context, id int64) (models.Marker, error) {
	var deleted models.Marker
	err := m.db.Transaction(ctx, func(tx *hostdb.Tx) error {
		row, ok, err := tx.Get(ctx,
			`SELECT tg.metadata_item_id, tg.time_offset, tg.end_time_offset, t.tag
			 FROM `+taggingsTable+` tg JOIN `+tagsTable+` t ON t.id = tg.tag_id WHERE tg.id = ?`, id)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("marker %d", id)
		}
		var parentID, start, end int64
		var tag string
		if err := row.Scan(&parentID, &start, &end, &tag); err != nil {
			return apperr.Backend(err, "scan marker %d", id)
		}
		deleted = models.Marker{ID: id, ParentID: parentID, StartMs: start, EndMs: end, MarkerType: models.MarkerType(tagNameToMarkerType[tag])}

		if _, err := tx.Run(ctx, `DELETE FROM `+taggingsTable+` WHERE id = ?`, id); err != nil {
			return apperr.Backend(err, "delete marker %d", id)
		}
		if _, err := m.reindexParent(ctx, tx, parentID); err != nil {
			return err
		}

		sig, err := m.backup.ContentSignature(ctx, parentID)
		if err != nil {
			return err
		}
		actionID, err := m.backup.RecordPending(ctx, models.BackupAction{
			ActionKind:             models.ActionDelete,
			MarkerID:               id,
			ParentContentSignature: sig,
			StartMs:                start,
			EndMs:                  end,
			MarkerType:             deleted.MarkerType,
			TimestampEpochMs:       nowMs(),
		})
		if err != nil {
			return err
		}
		return m.backup.Commit(ctx, actionID)
	})
	if err != nil {
		return models.Marker{}, err
	}

	m.cache.RemoveMarker(deleted.ParentID, deleted.ID)
	return deleted, nil
}

// tagIDForType resolves (or lazily creates) the host tags-table row id for
// markerType, matching the host's own generic tagging scheme.
func (m *Manager) tagIDForType(ctx context.Context, tx *hostdb.Tx, markerType models.MarkerType) (int64, error) {
	tagName := markerTypeTagName[string(markerType)]
	row, ok, err := tx.Get(ctx, `SELECT id FROM `+tagsTable+` WHERE tag_type = ? AND tag = ?`, markerTagType, tagName)
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
	res, err := tx.Run(ctx, `INSERT INTO `+tagsTable+` (tag_type, tag) VALUES (?, ?)`, markerTagType, tagName)
	if err != nil {
		return 0, apperr.Backend(err, "create tag row for %s", markerType)
	}
	return res.LastInsertRowID, nil
}
