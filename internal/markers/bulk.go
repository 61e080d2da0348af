// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package markers

import (
	"context"
	"errors"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/hostdb"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// OverlapPolicy controls how bulkShift and bulkAdd resolve collisions.
type OverlapPolicy string

const (
	OverlapMerge     OverlapPolicy = "merge"
	OverlapSkip      OverlapPolicy = "skip"
	OverlapForce     OverlapPolicy = "forceOverlap"
	OverlapIgnore    OverlapPolicy = "ignore"
	OverlapOverwrite OverlapPolicy = "overwrite"
)

// ItemResult is one entry in a bulk operation's per-item result list
// (spec §7: "bulk operations surface a per-item result list").
type ItemResult struct {
	ParentID int64
	Marker   models.Marker
	Err      error
}

// scopeBaseItems resolves every base item id under parentScopeId, which may
// itself be a show, season, or movie id (spec's "bulk scope").
func (m *Manager) scopeBaseItems(ctx context.Context, tx *hostdb.Tx, scopeID int64) ([]int64, error) {
	// A movie scope IS a base item.
	if row, ok, err := tx.Get(ctx, `SELECT id FROM `+itemsTable+` WHERE id = ? AND metadata_type = 1`, scopeID); err != nil {
		return nil, err
	} else if ok {
		var id int64
		if err := row.Scan(&id); err != nil {
			return nil, apperr.Backend(err, "scan base item")
		}
		return []int64{id}, nil
	}

	// Otherwise treat scopeID as a show or season id: episodes whose
	// parent_id (season) or season's parent_id (show) matches.
	rows, err := tx.All(ctx,
		`SELECT id FROM `+itemsTable+` WHERE metadata_type = 4 AND (parent_id = ? OR parent_id IN (
			SELECT id FROM `+itemsTable+` WHERE parent_id = ? AND metadata_type = 3
		))`, scopeID, scopeID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		var id int64
		if err := r.Scan(&id); err != nil {
			return nil, apperr.Backend(err, "scan episode id")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BulkShift shifts every marker under scopeID whose type is in
// applyToTypes by deltaMs, honoring overlapPolicy for collisions created by
// the shift. excludedIds are left untouched.
func (m *Manager) BulkShift(ctx context.Context, scopeID int64, deltaMs int64, applyToTypes []models.MarkerType, policy OverlapPolicy, excludedIDs []int64) ([]ItemResult, error) {
	excluded := make(map[int64]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	typeSet := make(map[models.MarkerType]bool, len(applyToTypes))
	for _, t := range applyToTypes {
		typeSet[t] = true
	}

	var results []ItemResult
	err := m.db.Transaction(ctx, func(tx *hostdb.Tx) error {
		items, err := m.scopeBaseItems(ctx, tx, scopeID)
		if err != nil {
			return err
		}
		for _, parentID := range items {
			if err := m.shiftOneItem(ctx, tx, parentID, deltaMs, typeSet, policy, excluded, &results); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (m *Manager) shiftOneItem(ctx context.Context, tx *hostdb.Tx, parentID, deltaMs int64, typeSet map[models.MarkerType]bool, policy OverlapPolicy, excluded map[int64]bool, results *[]ItemResult) error {
	duration, err := m.durationForParent(ctx, tx, parentID)
	if err != nil {
		return err
	}
	siblings, err := m.fetchSiblings(ctx, tx, parentID)
	if err != nil {
		return err
	}

	shifted := make([]models.Marker, 0, len(siblings))
	var untouched []models.Marker
	for _, s := range siblings {
		if excluded[s.ID] || !typeSet[s.MarkerType] {
			untouched = append(untouched, s)
			continue
		}
		newStart := clamp(s.StartMs+deltaMs, 0, duration)
		newEnd := clamp(s.EndMs+deltaMs, 0, duration)
		if newStart >= newEnd {
			// dropped: shifted range collapsed to empty
			if _, err := tx.Run(ctx, `DELETE FROM `+taggingsTable+` WHERE id = ?`, s.ID); err != nil {
				return apperr.Backend(err, "delete collapsed marker %d", s.ID)
			}
			*results = append(*results, ItemResult{ParentID: parentID, Marker: s})
			continue
		}
		s.StartMs, s.EndMs = newStart, newEnd
		shifted = append(shifted, s)
	}

	merged, err := resolveShiftOverlaps(shifted, untouched, policy)
	if err != nil {
		*results = append(*results, ItemResult{ParentID: parentID, Err: err})
		return nil // per-item failure does not roll back the whole scope (spec §7)
	}

	for _, mk := range merged {
		if _, err := tx.Run(ctx, `UPDATE `+taggingsTable+` SET time_offset = ?, end_time_offset = ? WHERE id = ?`, mk.StartMs, mk.EndMs, mk.ID); err != nil {
			return apperr.Backend(err, "update shifted marker %d", mk.ID)
		}
		*results = append(*results, ItemResult{ParentID: parentID, Marker: mk})
	}
	if _, err := m.reindexParent(ctx, tx, parentID); err != nil {
		return err
	}

	sig, err := m.backup.ContentSignature(ctx, parentID)
	if err != nil {
		return err
	}
	for _, mk := range merged {
		actionID, err := m.backup.RecordPending(ctx, models.BackupAction{
			ActionKind:             models.ActionEdit,
			MarkerID:               mk.ID,
			ParentContentSignature: sig,
			StartMs:                mk.StartMs,
			EndMs:                  mk.EndMs,
			MarkerType:             mk.MarkerType,
			CreatedByUser:          true,
			TimestampEpochMs:       nowMs(),
		})
		if err != nil {
			return err
		}
		if err := m.backup.Commit(ctx, actionID); err != nil {
			return err
		}
		m.cache.RemoveMarker(parentID, mk.ID)
		m.cache.AddMarker(mk)
	}
	return nil
}

// resolveShiftOverlaps applies policy to the shifted set against itself and
// against the untouched siblings it now may collide with.
func resolveShiftOverlaps(shifted, untouched []models.Marker, policy OverlapPolicy) ([]models.Marker, error) {
	all := append(append([]models.Marker{}, untouched...), shifted...)
	switch policy {
	case OverlapForce:
		return shifted, nil
	case OverlapSkip:
		var kept []models.Marker
		for _, s := range shifted {
			collides := false
			for _, o := range all {
				if o.ID == s.ID {
					continue
				}
				if s.Overlaps(o) {
					collides = true
					break
				}
			}
			if !collides {
				kept = append(kept, s)
			}
		}
		return kept, nil
	case OverlapMerge, "":
		return mergeOverlapping(shifted, untouched), nil
	default:
		return nil, apperr.InvalidInput("unknown overlap policy %q", policy)
	}
}

// mergeOverlapping unions the ranges of any shifted marker that now
// overlaps another shifted marker or an untouched sibling, keeping the
// lowest-id marker of each merged group and expanding its bounds.
func mergeOverlapping(shifted, untouched []models.Marker) []models.Marker {
	reindexOrder(shifted)
	merged := make([]models.Marker, 0, len(shifted))
	for _, s := range shifted {
		placed := false
		for i := range merged {
			if merged[i].Overlaps(s) {
				if s.StartMs < merged[i].StartMs {
					merged[i].StartMs = s.StartMs
				}
				if s.EndMs > merged[i].EndMs {
					merged[i].EndMs = s.EndMs
				}
				placed = true
				break
			}
		}
		if !placed {
			merged = append(merged, s)
		}
	}
	// Also union against any untouched sibling the merged range now covers.
	for i := range merged {
		for _, u := range untouched {
			if merged[i].Overlaps(u) {
				if u.StartMs < merged[i].StartMs {
					merged[i].StartMs = u.StartMs
				}
				if u.EndMs > merged[i].EndMs {
					merged[i].EndMs = u.EndMs
				}
			}
		}
	}
	return merged
}

// errPreviewOnly forces a preview transaction to roll back; it is never
// returned to a caller outside this file.
var errPreviewOnly = errors.New("markers: preview only, rolling back")

// CheckBulkAdd previews BulkAdd's outcome against the current host-database
// state without committing: same scope resolution and overlap policy, no
// INSERT and no backup append. Used by the "checkBulkAdd" command so the
// client can show a confirmation dialog before bulkAdd actually runs.
func (m *Manager) CheckBulkAdd(ctx context.Context, scopeID, startMs, endMs int64, markerType models.MarkerType, policy OverlapPolicy) ([]ItemResult, error) {
	var results []ItemResult
	err := m.db.Transaction(ctx, func(tx *hostdb.Tx) error {
		items, err := m.scopeBaseItems(ctx, tx, scopeID)
		if err != nil {
			return err
		}
		for _, parentID := range items {
			siblings, err := m.fetchSiblings(ctx, tx, parentID)
			if err != nil {
				return err
			}
			results = append(results, previewAddOutcome(parentID, startMs, endMs, markerType, policy, siblings))
		}
		return errPreviewOnly
	})
	if err != nil && !errors.Is(err, errPreviewOnly) {
		return nil, err
	}
	return results, nil
}

func previewAddOutcome(parentID, startMs, endMs int64, markerType models.MarkerType, policy OverlapPolicy, siblings []models.Marker) ItemResult {
	newStart, newEnd := startMs, endMs
	for _, s := range siblings {
		if !overlaps(newStart, newEnd, s.StartMs, s.EndMs) {
			continue
		}
		switch policy {
		case OverlapIgnore, "":
			return ItemResult{ParentID: parentID, Err: apperr.Overlap("would skip: overlaps marker %d", s.ID)}
		case OverlapMerge:
			if s.StartMs < newStart {
				newStart = s.StartMs
			}
			if s.EndMs > newEnd {
				newEnd = s.EndMs
			}
		case OverlapOverwrite:
			// would replace s; preview does not simulate further overlaps
			// against an already-replaced marker.
		default:
			return ItemResult{ParentID: parentID, Err: apperr.InvalidInput("unknown overlap policy %q", policy)}
		}
	}
	return ItemResult{ParentID: parentID, Marker: models.Marker{ParentID: parentID, StartMs: newStart, EndMs: newEnd, MarkerType: markerType}}
}

// CheckBulkDelete previews BulkDelete's outcome: which markers under
// scopeID match applyToTypes and are not excluded, without deleting them.
func (m *Manager) CheckBulkDelete(ctx context.Context, scopeID int64, applyToTypes []models.MarkerType, excludedIDs []int64) ([]ItemResult, error) {
	excluded := make(map[int64]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	typeSet := make(map[models.MarkerType]bool, len(applyToTypes))
	for _, t := range applyToTypes {
		typeSet[t] = true
	}

	var results []ItemResult
	err := m.db.Transaction(ctx, func(tx *hostdb.Tx) error {
		items, err := m.scopeBaseItems(ctx, tx, scopeID)
		if err != nil {
			return err
		}
		for _, parentID := range items {
			siblings, err := m.fetchSiblings(ctx, tx, parentID)
			if err != nil {
				return err
			}
			for _, s := range siblings {
				if excluded[s.ID] || !typeSet[s.MarkerType] {
					continue
				}
				results = append(results, ItemResult{ParentID: parentID, Marker: s})
			}
		}
		return errPreviewOnly
	})
	if err != nil && !errors.Is(err, errPreviewOnly) {
		return nil, err
	}
	return results, nil
}

// BulkAdd attempts to add the same [startMs,endMs) range to every base item
// under scopeID, per spec §4.2's bulkAdd overlap policy (ignore/merge/overwrite).
func (m *Manager) BulkAdd(ctx context.Context, scopeID, startMs, endMs int64, markerType models.MarkerType, policy OverlapPolicy) ([]ItemResult, error) {
	var results []ItemResult
	err := m.db.Transaction(ctx, func(tx *hostdb.Tx) error {
		items, err := m.scopeBaseItems(ctx, tx, scopeID)
		if err != nil {
			return err
		}
		for _, parentID := range items {
			if err := m.addOneItemBulk(ctx, tx, parentID, startMs, endMs, markerType, policy, &results); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (m *Manager) addOneItemBulk(ctx context.Context, tx *hostdb.Tx, parentID, startMs, endMs int64, markerType models.MarkerType, policy OverlapPolicy, results *[]ItemResult) error {
	siblings, err := m.fetchSiblings(ctx, tx, parentID)
	if err != nil {
		return err
	}

	newStart, newEnd := startMs, endMs
	for _, s := range siblings {
		if !overlaps(newStart, newEnd, s.StartMs, s.EndMs) {
			continue
		}
		switch policy {
		case OverlapIgnore, "":
			*results = append(*results, ItemResult{ParentID: parentID, Err: apperr.Overlap("skipped: overlaps marker %d", s.ID)})
			return nil
		case OverlapMerge:
			if s.StartMs < newStart {
				newStart = s.StartMs
			}
			if s.EndMs > newEnd {
				newEnd = s.EndMs
			}
		case OverlapOverwrite:
			if _, err := tx.Run(ctx, `DELETE FROM `+taggingsTable+` WHERE id = ?`, s.ID); err != nil {
				return apperr.Backend(err, "overwrite-delete marker %d", s.ID)
			}
		default:
			return apperr.InvalidInput("unknown overlap policy %q", policy)
		}
	}

	tagID, err := m.tagIDForType(ctx, tx, markerType)
	if err != nil {
		return err
	}
	now := nowMs()
	res, err := tx.Run(ctx,
		`INSERT INTO `+taggingsTable+` (metadata_item_id, tag_id, time_offset, end_time_offset, "index", created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`, parentID, tagID, newStart, newEnd, now)
	if err != nil {
		return apperr.Backend(err, "bulk insert marker")
	}
	markerID := res.LastInsertRowID
	if _, err := m.reindexParent(ctx, tx, parentID); err != nil {
		return err
	}

	sig, err := m.backup.ContentSignature(ctx, parentID)
	if err != nil {
		return err
	}
	actionID, err := m.backup.RecordPending(ctx, models.BackupAction{
		ActionKind: models.ActionAdd, MarkerID: markerID, ParentContentSignature: sig,
		StartMs: newStart, EndMs: newEnd, MarkerType: markerType, CreatedByUser: true, TimestampEpochMs: now,
	})
	if err != nil {
		return err
	}
	if err := m.backup.Commit(ctx, actionID); err != nil {
		return err
	}

	created := models.Marker{ID: markerID, ParentID: parentID, StartMs: newStart, EndMs: newEnd, MarkerType: markerType, CreatedByUser: true, CreatedAtEpochMs: now}
	m.cache.AddMarker(created)
	*results = append(*results, ItemResult{ParentID: parentID, Marker: created})
	return nil
}

// BulkDelete deletes every marker under scopeID matching applyToTypes,
// excluding excludedIDs.
func (m *Manager) BulkDelete(ctx context.Context, scopeID int64, applyToTypes []models.MarkerType, excludedIDs []int64) ([]ItemResult, error) {
	excluded := make(map[int64]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	typeSet := make(map[models.MarkerType]bool, len(applyToTypes))
	for _, t := range applyToTypes {
		typeSet[t] = true
	}

	var results []ItemResult
	err := m.db.Transaction(ctx, func(tx *hostdb.Tx) error {
		items, err := m.scopeBaseItems(ctx, tx, scopeID)
		if err != nil {
			return err
		}
		for _, parentID := range items {
			siblings, err := m.fetchSiblings(ctx, tx, parentID)
			if err != nil {
				return err
			}
			sig, err := m.backup.ContentSignature(ctx, parentID)
			if err != nil {
				return err
			}
			changed := false
			for _, s := range siblings {
				if excluded[s.ID] || !typeSet[s.MarkerType] {
					continue
				}
				if _, err := tx.Run(ctx, `DELETE FROM `+taggingsTable+` WHERE id = ?`, s.ID); err != nil {
					return apperr.Backend(err, "delete marker %d", s.ID)
				}
				actionID, err := m.backup.RecordPending(ctx, models.BackupAction{
					ActionKind: models.ActionDelete, MarkerID: s.ID, ParentContentSignature: sig,
					StartMs: s.StartMs, EndMs: s.EndMs, MarkerType: s.MarkerType, TimestampEpochMs: nowMs(),
				})
				if err != nil {
					return err
				}
				if err := m.backup.Commit(ctx, actionID); err != nil {
					return err
				}
				m.cache.RemoveMarker(parentID, s.ID)
				results = append(results, ItemResult{ParentID: parentID, Marker: s})
				changed = true
			}
			if changed {
				if _, err := m.reindexParent(ctx, tx, parentID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// NukeSection deletes every marker of the listed types across an entire
// section in one transaction.
func (m *Manager) NukeSection(ctx context.Context, sectionID int64, applyToTypes []models.MarkerType) (int, error) {
	typeNames := make([]string, 0, len(applyToTypes))
	for _, t := range applyToTypes {
		typeNames = append(typeNames, markerTypeTagName[string(t)])
	}

	deleted := m.cache.SectionMarkers(sectionID, applyToTypes)
	count := 0
	err := m.db.Transaction(ctx, func(tx *hostdb.Tx) error {
		for _, mk := range deleted {
			if _, err := tx.Run(ctx, `DELETE FROM `+taggingsTable+` WHERE id = ?`, mk.ID); err != nil {
				return apperr.Backend(err, "nuke delete marker %d", mk.ID)
			}
			sig, err := m.backup.ContentSignature(ctx, mk.ParentID)
			if err != nil {
				return err
			}
			actionID, err := m.backup.RecordPending(ctx, models.BackupAction{
				ActionKind: models.ActionDelete, MarkerID: mk.ID, ParentContentSignature: sig,
				StartMs: mk.StartMs, EndMs: mk.EndMs, MarkerType: mk.MarkerType, TimestampEpochMs: nowMs(),
			})
			if err != nil {
				return err
			}
			if err := m.backup.Commit(ctx, actionID); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	// Only now, after the host-db transaction committed, does the cache
	// forget these markers (spec §4.3/§5: cache mutations follow the
	// host-db commit, never precede it).
	m.cache.NukeSection(deleted)
	m.log.Warn().Int64("section_id", sectionID).Int("deleted", count).Msg("section marker nuke")
	return count, nil
}

// SectionStats is the aggregate used during cache rebuild.
type SectionStats struct {
	BaseItemCount int
	MarkerCount   int
}

// MarkerStatsForSection returns counts used during cache rebuild.
func (m *Manager) MarkerStatsForSection(ctx context.Context, sectionID int64) (SectionStats, error) {
	row, ok, err := m.db.Get(ctx, `SELECT COUNT(*) FROM `+itemsTable+` WHERE library_section_id = ? AND metadata_type IN (1,4)`, sectionID)
	if err != nil {
		return SectionStats{}, err
	}
	var stats SectionStats
	if ok {
		if err := row.Scan(&stats.BaseItemCount); err != nil {
			return SectionStats{}, apperr.Backend(err, "scan base item count")
		}
	}
	row, ok, err = m.db.Get(ctx,
		`SELECT COUNT(*) FROM `+taggingsTable+` tg JOIN `+tagsTable+` t ON t.id = tg.tag_id
		 JOIN `+itemsTable+` i ON i.id = tg.metadata_item_id
		 WHERE t.tag_type = ? AND i.library_section_id = ?`, markerTagType, sectionID)
	if err != nil {
		return SectionStats{}, err
	}
	if ok {
		if err := row.Scan(&stats.MarkerCount); err != nil {
			return SectionStats{}, apperr.Backend(err, "scan marker count")
		}
	}
	return stats, nil
}
