// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package markers

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/hostdb"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// CacheUpdater is the slice of the marker cache (C3) the query manager
// needs. Implemented by *cache.Cache; declared here, not there, since the
// consumer owns the interface.
type CacheUpdater interface {
	AddMarker(m models.Marker)
	RemoveMarker(parentID, markerID int64)
	SectionMarkers(sectionID int64, types []models.MarkerType) []models.Marker
	NukeSection(markers []models.Marker)
}

// BackupRecorder is the slice of the backup manager (C5) the query manager
// needs, implementing the two-phase pending/committed append described in
// spec §5.
type BackupRecorder interface {
	RecordPending(ctx context.Context, action models.BackupAction) (actionID int64, err error)
	Commit(ctx context.Context, actionID int64) error
	Abort(ctx context.Context, actionID int64) error
	ContentSignature(ctx context.Context, parentID int64) (string, error)
}

// Manager is the query manager (C2).
type Manager struct {
	db            *hostdb.Gateway
	cache         CacheUpdater
	backup        BackupRecorder
	writeExtra    bool
	log           zerolog.Logger
	extraVersion  schemaVersion
}

// Config controls optional behavior of the manager.
type Config struct {
	WriteExtraData bool
}

// NewManager builds a Manager over db, delegating cache deltas to cache and
// backup-log appends to backup.
func NewManager(db *hostdb.Gateway, cache CacheUpdater, backup BackupRecorder, cfg Config, log zerolog.Logger) *Manager {
	return &Manager{
		db:         db,
		cache:      cache,
		backup:     backup,
		writeExtra: cfg.WriteExtraData,
		log:        log.With().Str("component", "markers").Logger(),
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }

// validateBounds enforces spec §4.2's InvalidBounds rule: start in
// [0, duration), start < end, and (per the overlap rule) zero-length
// markers are rejected outright.
func validateBounds(startMs, endMs, durationMs int64) error {
	if startMs < 0 {
		return apperr.InvalidBounds("start %d is negative", startMs)
	}
	if durationMs > 0 && startMs >= durationMs {
		return apperr.InvalidBounds("start %d exceeds media duration %d", startMs, durationMs)
	}
	if startMs >= endMs {
		return apperr.InvalidBounds("start %d must be less than end %d", startMs, endMs)
	}
	return nil
}

// overlaps implements the tie-break rule from spec §4.2: touching
// boundaries count as overlap.
func overlaps(aStart, aEnd, bStart, bEnd int64) bool {
	if bStart < aStart {
		aStart, aEnd, bStart, bEnd = bStart, bEnd, aStart, aEnd
	}
	return aEnd >= bStart
}

const markerSelectColumns = `tg.id, tg.metadata_item_id, tg.time_offset, tg.end_time_offset, t.tag,
		        tg."index", tg.created_at, tg.extra_data`

const markerSelectFrom = `FROM ` + taggingsTable + ` tg JOIN ` + tagsTable + ` t ON t.id = tg.tag_id
		 WHERE tg.metadata_item_id = ? AND t.tag_type = ?`

// fetchSiblings returns every marker belonging to parentID, in whatever
// order the host returns them (reindex re-sorts). Runs inside tx since
// every write path needs siblings as its pre-image (spec §5).
func (m *Manager) fetchSiblings(ctx context.Context, tx *hostdb.Tx, parentID int64) ([]models.Marker, error) {
	rows, err := tx.All(ctx, `SELECT `+markerSelectColumns+` `+markerSelectFrom, parentID, markerTagType)
	if err != nil {
		return nil, err
	}
	return scanMarkerRows(rows)
}

// Query returns every marker belonging to parentID for the "query" read
// command (C8). Unlike fetchSiblings this is a standalone read, not part
// of a write's pre-image, so it goes straight through the gateway.
func (m *Manager) Query(ctx context.Context, parentID int64) ([]models.Marker, error) {
	rows, err := m.db.All(ctx, `SELECT `+markerSelectColumns+` `+markerSelectFrom, parentID, markerTagType)
	if err != nil {
		return nil, apperr.Backend(err, "query markers for parent %d", parentID)
	}
	return scanMarkerRows(rows)
}

func scanMarkerRows(rows []hostdb.Row) ([]models.Marker, error) {
	markers := make([]models.Marker, 0, len(rows))
	for _, r := range rows {
		var id, itemID, start, end, idx, created int64
		var tag string
		var extra []byte
		if err := r.Scan(&id, &itemID, &start, &end, &tag, &idx, &created, &extra); err != nil {
			return nil, apperr.Backend(err, "scan marker row")
		}
		mt, ok := tagNameToMarkerType[tag]
		if !ok {
			continue
		}
		markers = append(markers, models.Marker{
			ID:                id,
			ParentID:          itemID,
			MarkerType:        models.MarkerType(mt),
			StartMs:           start,
			EndMs:             end,
			Index:             int(idx),
			CreatedAtEpochMs:  created,
			ModifiedAtEpochMs: created,
			CreatedByUser:     true,
			IsFinal:           isFinalBlob(extra),
		})
	}
	reindexOrder(markers)
	return markers, nil
}

// reindexOrder sorts markers per spec §4.2's index tie-break rule: startMs
// ascending, then range length ascending, then id ascending.
func reindexOrder(markers []models.Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		a, b := markers[i], markers[j]
		if a.StartMs != b.StartMs {
			return a.StartMs < b.StartMs
		}
		la, lb := a.EndMs-a.StartMs, b.EndMs-b.StartMs
		if la != lb {
			return la < lb
		}
		return a.ID < b.ID
	})
}

// reindexParent recomputes and persists contiguous {0..n-1} indexes for
// every marker belonging to parentID, in start-time order.
func (m *Manager) reindexParent(ctx context.Context, tx *hostdb.Tx, parentID int64) ([]models.Marker, error) {
	siblings, err := m.fetchSiblings(ctx, tx, parentID)
	if err != nil {
		return nil, err
	}
	reindexOrder(siblings)
	for i := range siblings {
		if siblings[i].Index == i {
			continue
		}
		siblings[i].Index = i
		if _, err := tx.Run(ctx, `UPDATE `+taggingsTable+` SET "index" = ? WHERE id = ?`, i, siblings[i].ID); err != nil {
			return nil, apperr.Backend(err, "reindex marker %d", siblings[i].ID)
		}
	}
	return siblings, nil
}

// durationForParent looks up the media duration used to bound-check new
// marker timestamps.
func (m *Manager) durationForParent(ctx context.Context, tx *hostdb.Tx, parentID int64) (int64, error) {
	row, ok, err := tx.Get(ctx, `SELECT duration FROM `+itemsTable+` WHERE id = ?`, parentID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperr.NotFound("base item %d", parentID)
	}
	var dur int64
	if err := row.Scan(&dur); err != nil {
		return 0, apperr.Backend(err, "scan duration")
	}
	return dur, nil
}
