// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/backup"
	"github.com/gomarkereditor/markereditor/internal/cache"
	"github.com/gomarkereditor/markereditor/internal/hostdb"
	"github.com/gomarkereditor/markereditor/internal/markers"
)

// testEnv bundles the real, sqlite-backed components a full dispatcher
// needs, seeded with one single-file movie so marker/backup handlers have
// something to operate on.
type testEnv struct {
	host    *hostdb.Gateway
	cache   *cache.Cache
	backup  *backup.Manager
	markers *markers.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	host := hostdb.Open(filepath.Join(dir, "host.db"), 0, zerolog.Nop())
	t.Cleanup(func() { _ = host.Close() })

	schema := []string{
		`CREATE TABLE metadata_items (id INTEGER PRIMARY KEY, library_section_id INTEGER, metadata_type INTEGER, parent_id INTEGER, duration INTEGER)`,
		`CREATE TABLE tags (id INTEGER PRIMARY KEY, tag_type INTEGER, tag TEXT)`,
		`CREATE TABLE taggings (id INTEGER PRIMARY KEY, metadata_item_id INTEGER, tag_id INTEGER, time_offset INTEGER, end_time_offset INTEGER, "index" INTEGER, created_at INTEGER, extra_data BLOB)`,
		`CREATE TABLE chapters (id INTEGER PRIMARY KEY, metadata_item_id INTEGER, "index" INTEGER, tag TEXT, time_offset INTEGER, end_time_offset INTEGER)`,
		`CREATE TABLE media_items (id INTEGER PRIMARY KEY, metadata_item_id INTEGER)`,
		`CREATE TABLE media_parts (id INTEGER PRIMARY KEY, media_item_id INTEGER, file TEXT)`,
	}
	for _, s := range schema {
		if _, err := host.Run(ctx, s); err != nil {
			t.Fatalf("host schema: %v", err)
		}
	}
	if _, err := host.Run(ctx, `INSERT INTO metadata_items (id, library_section_id, metadata_type, duration) VALUES (1, 1, 1, 1000000)`); err != nil {
		t.Fatalf("seed movie: %v", err)
	}
	if _, err := host.Run(ctx,
		`INSERT INTO chapters (metadata_item_id, "index", tag, time_offset, end_time_offset) VALUES (1, 1, 'Chapter 1', 0, 60000)`); err != nil {
		t.Fatalf("seed chapter: %v", err)
	}
	if _, err := host.Run(ctx, `INSERT INTO media_items (id, metadata_item_id) VALUES (1, 1)`); err != nil {
		t.Fatalf("seed media item: %v", err)
	}
	if _, err := host.Run(ctx, `INSERT INTO media_parts (id, media_item_id, file) VALUES (1, 1, '/media/movie.mkv')`); err != nil {
		t.Fatalf("seed media part: %v", err)
	}

	backupMgr, err := backup.Open(ctx, filepath.Join(dir, "backup.db"), host, zerolog.Nop())
	if err != nil {
		t.Fatalf("backup.Open: %v", err)
	}
	t.Cleanup(func() { _ = backupMgr.Close() })

	c := cache.New(host, zerolog.Nop())
	if err := c.Build(ctx); err != nil {
		t.Fatalf("cache.Build: %v", err)
	}

	markerMgr := markers.NewManager(host, c, backupMgr, markers.Config{}, zerolog.Nop())

	return &testEnv{host: host, cache: c, backup: backupMgr, markers: markerMgr}
}

// dispatcher builds a Dispatcher wired to this env's real components, in
// the Running state and ready to drive handlers directly.
func (e *testEnv) dispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d := &Dispatcher{
		Markers: e.markers,
		Cache:   e.cache,
		Backup:  e.backup,
		State:   NewStateMachine(),
		Log:     zerolog.Nop(),
	}
	d.State.Transition(Running)
	return d
}
