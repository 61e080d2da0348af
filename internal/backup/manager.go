// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/hostdb"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// Manager is the backup/purge-reconciliation subsystem (C5). It owns a
// second SQLite database (via the same single-writer gateway host-db
// uses) holding the append-only actions log, and holds the host gateway,
// which it reads to compute content signatures and check for purges and
// writes to when restoring purged markers.
type Manager struct {
	db   *hostdb.Gateway // backup database
	host *hostdb.Gateway // host database: read for signatures and purge checks, written by restores
	log  zerolog.Logger

	purgeMu    sync.RWMutex
	purgeCache map[int64]int // sectionID -> precomputed purge count
}

// Open opens (creating if necessary) the backup database at path and
// returns a ready Manager. host is the already-open host-db gateway.
func Open(ctx context.Context, path string, host *hostdb.Gateway, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		db:   hostdb.Open(path, 0, log),
		host: host,
		log:        log.With().Str("component", "backup").Logger(),
		purgeCache: make(map[int64]int),
	}
	if _, err := m.db.Run(ctx,
		`CREATE TABLE IF NOT EXISTS `+actionsTable+` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			section_id INTEGER NOT NULL,
			action_kind TEXT NOT NULL,
			marker_id INTEGER NOT NULL,
			parent_content_signature TEXT NOT NULL,
			start_ms INTEGER NOT NULL,
			end_ms INTEGER NOT NULL,
			marker_type TEXT NOT NULL,
			created_by_user INTEGER NOT NULL DEFAULT 0,
			timestamp_epoch_ms INTEGER NOT NULL,
			restored_from_action_id INTEGER NOT NULL DEFAULT 0,
			ignored INTEGER NOT NULL DEFAULT 0,
			pending INTEGER NOT NULL DEFAULT 1,
			correlation_id TEXT NOT NULL DEFAULT ''
		)`); err != nil {
		return nil, apperr.Backend(err, "create actions table")
	}
	if _, err := m.db.Run(ctx, `CREATE INDEX IF NOT EXISTS idx_actions_section ON `+actionsTable+` (section_id)`); err != nil {
		return nil, apperr.Backend(err, "create section index")
	}
	return m, nil
}

// Close releases the backup database handle.
func (m *Manager) Close() error { return m.db.Close() }

// RecordPending appends action with pending=true, returning its assigned id.
// Each row also carries a generated correlation id, logged alongside the
// action so a pending row stuck across a crash can be traced back through
// the structured logs that recorded its RecordPending/Commit pair.
func (m *Manager) RecordPending(ctx context.Context, action models.BackupAction) (int64, error) {
	correlationID := uuid.NewString()
	res, err := m.db.Run(ctx,
		`INSERT INTO `+actionsTable+`
		 (section_id, action_kind, marker_id, parent_content_signature, start_ms, end_ms, marker_type, created_by_user, timestamp_epoch_ms, restored_from_action_id, ignored, pending, correlation_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 1, ?)`,
		action.SectionID, string(action.ActionKind), action.MarkerID, action.ParentContentSignature,
		action.StartMs, action.EndMs, string(action.MarkerType), boolToInt(action.CreatedByUser),
		action.TimestampEpochMs, action.RestoredFromActionID, correlationID)
	if err != nil {
		return 0, apperr.Backend(err, "record pending backup action")
	}
	m.log.Debug().Int64("action_id", res.LastInsertRowID).Str("correlation_id", correlationID).Str("kind", string(action.ActionKind)).Msg("recorded pending backup action")
	return res.LastInsertRowID, nil
}

// Commit flips actionID's pending flag to false.
func (m *Manager) Commit(ctx context.Context, actionID int64) error {
	if _, err := m.db.Run(ctx, `UPDATE `+actionsTable+` SET pending = 0 WHERE id = ?`, actionID); err != nil {
		return apperr.Backend(err, "commit backup action %d", actionID)
	}
	return nil
}

// Abort deletes a pending action row, used when the caller's host-db
// mutation fails after the action was recorded.
func (m *Manager) Abort(ctx context.Context, actionID int64) error {
	if _, err := m.db.Run(ctx, `DELETE FROM `+actionsTable+` WHERE id = ?`, actionID); err != nil {
		return apperr.Backend(err, "abort backup action %d", actionID)
	}
	return nil
}

// ContentSignature derives a stable identity for parentID from its
// section/show/season lineage, duration, and on-disk media file path,
// rather than its host row id, since a host library rescan can purge and
// recreate the metadata row (new id) for what is otherwise the same
// episode or movie.
func (m *Manager) ContentSignature(ctx context.Context, parentID int64) (string, error) {
	row, ok, err := m.host.Get(ctx, `SELECT library_section_id, parent_id, duration FROM `+hostItemsTable+` WHERE id = ?`, parentID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.NotFound("metadata item %d", parentID)
	}
	var sectionID, seasonID, duration int64
	if err := row.Scan(&sectionID, &seasonID, &duration); err != nil {
		return "", apperr.Backend(err, "scan metadata item %d", parentID)
	}
	return computeSignature(ctx, m.host, parentID, sectionID, seasonID, duration)
}

// mediaFilePath looks up the first media part's on-disk path for a base
// item, the same join internal/markers/mediapath.go uses for C4. A
// duration/lineage match alone collides across same-length episodes; the
// file path is what actually identifies a specific piece of content.
func mediaFilePath(ctx context.Context, host *hostdb.Gateway, parentID int64) (string, error) {
	row, ok, err := host.Get(ctx,
		`SELECT mp.file FROM media_parts mp
		 JOIN media_items mi ON mi.id = mp.media_item_id
		 WHERE mi.metadata_item_id = ?
		 ORDER BY mp.id LIMIT 1`, parentID)
	if err != nil {
		return "", apperr.Backend(err, "resolve media path for item %d", parentID)
	}
	if !ok {
		return "", nil
	}
	var path string
	if err := row.Scan(&path); err != nil {
		return "", apperr.Backend(err, "scan media path")
	}
	return path, nil
}

func computeSignature(ctx context.Context, host *hostdb.Gateway, parentID, sectionID, seasonID, duration int64) (string, error) {
	var showID int64
	if seasonID != 0 {
		srow, ok, err := host.Get(ctx, `SELECT parent_id FROM `+hostItemsTable+` WHERE id = ?`, seasonID)
		if err != nil {
			return "", err
		}
		if ok {
			if err := srow.Scan(&showID); err != nil {
				return "", apperr.Backend(err, "scan season %d", seasonID)
			}
		}
	}
	filePath, err := mediaFilePath(ctx, host, parentID)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%d|%d|%s", sectionID, showID, seasonID, duration, filePath)))
	return hex.EncodeToString(sum[:]), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowMs() int64 { return time.Now().UnixMilli() }
