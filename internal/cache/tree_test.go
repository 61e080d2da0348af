// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/hostdb"
	"github.com/gomarkereditor/markereditor/internal/models"
)

func newTestCache(t *testing.T) (*Cache, *hostdb.Gateway) {
	t.Helper()
	dir := t.TempDir()
	db := hostdb.Open(filepath.Join(dir, "host.db"), 0, zerolog.Nop())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	schema := []string{
		`CREATE TABLE metadata_items (id INTEGER PRIMARY KEY, library_section_id INTEGER, metadata_type INTEGER, parent_id INTEGER, duration INTEGER)`,
		`CREATE TABLE tags (id INTEGER PRIMARY KEY, tag_type INTEGER, tag TEXT)`,
		`CREATE TABLE taggings (id INTEGER PRIMARY KEY, metadata_item_id INTEGER, tag_id INTEGER, time_offset INTEGER, end_time_offset INTEGER, "index" INTEGER, created_at INTEGER, extra_data BLOB)`,
	}
	for _, s := range schema {
		if _, err := db.Run(ctx, s); err != nil {
			t.Fatalf("schema: %v", err)
		}
	}
	return New(db, zerolog.Nop()), db
}

// seedShow builds section 1 -> show 10 -> season 100 -> episodes 1000,1001
// with one intro tag and sufficient taggings rows for Build to exercise the
// full join.
func seedShow(t *testing.T, ctx context.Context, db *hostdb.Gateway) {
	t.Helper()
	stmts := []string{
		`INSERT INTO metadata_items (id, library_section_id, metadata_type, parent_id, duration) VALUES (10, 1, 2, NULL, NULL)`,
		`INSERT INTO metadata_items (id, library_section_id, metadata_type, parent_id, duration) VALUES (100, 1, 3, 10, NULL)`,
		`INSERT INTO metadata_items (id, library_section_id, metadata_type, parent_id, duration) VALUES (1000, 1, 4, 100, 600000)`,
		`INSERT INTO metadata_items (id, library_section_id, metadata_type, parent_id, duration) VALUES (1001, 1, 4, 100, 600000)`,
		`INSERT INTO tags (id, tag_type, tag) VALUES (1, 302, 'intro')`,
		`INSERT INTO tags (id, tag_type, tag) VALUES (2, 302, 'credits')`,
		`INSERT INTO taggings (id, metadata_item_id, tag_id, time_offset, end_time_offset, "index") VALUES (5000, 1000, 1, 0, 30000, 0)`,
		`INSERT INTO taggings (id, metadata_item_id, tag_id, time_offset, end_time_offset, "index") VALUES (5001, 1000, 2, 570000, 600000, 1)`,
	}
	for _, s := range stmts {
		if _, err := db.Run(ctx, s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestBuildPopulatesTreeAndBreakdowns(t *testing.T) {
	c, db := newTestCache(t)
	ctx := context.Background()
	seedShow(t, ctx, db)

	if err := c.Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !c.BaseItemExists(1000) || !c.BaseItemExists(1001) {
		t.Fatal("expected both episodes to be known")
	}
	if !c.MarkerExists(5000) || !c.MarkerExists(5001) {
		t.Fatal("expected both markers to be known")
	}

	bd, ok := c.TopLevelStats(1000)
	if !ok {
		t.Fatal("expected base item 1000 stats")
	}
	wantKey := models.BreakdownKey(1, 1)
	if bd.Counts[wantKey] != 1 {
		t.Errorf("episode 1000 breakdown = %+v, want key %d -> 1", bd.Counts, wantKey)
	}

	secBD, ok := c.SectionOverview(1)
	if !ok {
		t.Fatal("expected section 1 overview")
	}
	if secBD.Counts[wantKey] != 1 {
		t.Errorf("section breakdown = %+v, want key %d -> 1 (episode 1001 has no markers, key 0)", secBD.Counts, wantKey)
	}
	if secBD.Counts[models.BreakdownKey(0, 0)] != 1 {
		t.Errorf("expected episode 1001's empty breakdown to appear in section, got %+v", secBD.Counts)
	}
}

func TestAddMarkerPropagatesUpTree(t *testing.T) {
	c, db := newTestCache(t)
	ctx := context.Background()
	seedShow(t, ctx, db)
	if err := c.Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}

	c.AddMarker(models.Marker{ID: 9999, ParentID: 1001, SeasonID: 100, ShowID: 10, SectionID: 1, StartMs: 0, EndMs: 1000, MarkerType: models.MarkerTypeIntro, Index: 0})

	bd, ok := c.TopLevelStats(1001)
	if !ok {
		t.Fatal("expected base item 1001 stats")
	}
	if bd.Counts[models.BreakdownKey(1, 0)] != 1 {
		t.Errorf("episode 1001 breakdown after add = %+v, want intro=1", bd.Counts)
	}

	showBD, ok := c.SeasonStats(10, 100)
	if !ok {
		t.Fatal("expected season stats")
	}
	if showBD.Counts[models.BreakdownKey(1, 1)] != 1 || showBD.Counts[models.BreakdownKey(1, 0)] != 1 {
		t.Errorf("season breakdown after add = %+v, want one (1,1) and one (1,0)", showBD.Counts)
	}
	if !c.MarkerExists(9999) {
		t.Error("expected newly added marker to be known")
	}
}

func TestRemoveMarkerPropagatesUpTree(t *testing.T) {
	c, db := newTestCache(t)
	ctx := context.Background()
	seedShow(t, ctx, db)
	if err := c.Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}

	c.RemoveMarker(1000, 5001) // remove the credits marker

	bd, _ := c.TopLevelStats(1000)
	if bd.Counts[models.BreakdownKey(1, 0)] != 1 {
		t.Errorf("episode 1000 breakdown after remove = %+v, want intro-only key", bd.Counts)
	}

	sec, _ := c.SectionOverview(1)
	if sec.Counts[models.BreakdownKey(1, 1)] != 0 {
		t.Errorf("section should no longer have a (1,1) item, got %+v", sec.Counts)
	}
}

func TestNukeSectionRemovesMatchingTypes(t *testing.T) {
	c, db := newTestCache(t)
	ctx := context.Background()
	seedShow(t, ctx, db)
	if err := c.Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}

	found := c.SectionMarkers(1, []models.MarkerType{models.MarkerTypeIntro})
	if len(found) != 1 || found[0].ID != 5000 {
		t.Fatalf("expected to find only the intro marker, got %+v", found)
	}
	if !c.MarkerExists(5000) {
		t.Error("SectionMarkers must not mutate the cache")
	}

	c.NukeSection(found)
	if c.MarkerExists(5000) {
		t.Error("expected intro marker gone after nuke")
	}
	if !c.MarkerExists(5001) {
		t.Error("expected credits marker to survive a type-scoped nuke")
	}
}

func TestSumOfChildrenInvariant(t *testing.T) {
	c, db := newTestCache(t)
	ctx := context.Background()
	seedShow(t, ctx, db)
	if err := c.Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}

	sh := c.shows[10]
	summed := models.NewBreakdown()
	for _, se := range sh.Seasons {
		summed.Merge(se.Breakdown)
	}
	if !summed.Equal(sh.Breakdown) {
		t.Errorf("show breakdown %+v does not equal sum of season breakdowns %+v", sh.Breakdown, summed)
	}
}
