// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"sort"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// AddMarker inserts m into its parent base item's marker list and folds the
// resulting breakdown delta up through season, show, and section. Called
// by internal/markers strictly after the host-db transaction committed.
func (c *Cache) AddMarker(m models.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	bi, ok := c.baseItems[m.ParentID]
	if !ok {
		c.log.Warn().Int64("marker_id", m.ID).Int64("parent_id", m.ParentID).Msg("AddMarker: parent not in cache, dropping")
		return
	}

	oldBD := bi.Breakdown
	cnt := c.counts[m.ParentID]
	bumpCount(&cnt, m.MarkerType, 1)
	c.counts[m.ParentID] = cnt
	newBD := cnt.breakdown()
	bi.Breakdown = newBD

	bi.Markers = insertSorted(bi.Markers, c.markers, m)
	c.markers[m.ID] = m
	c.idBloom.add(markerKey(m.ID))

	c.applyDelta(bi.SectionID, bi.ShowID, bi.SeasonID, oldBD, newBD)
}

// RemoveMarker deletes markerID from parentID's marker list and folds the
// breakdown delta up through its ancestors. A no-op if the cache never saw
// either id (e.g. a stale caller retrying after NukeSection).
func (c *Cache) RemoveMarker(parentID, markerID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeMarkerLocked(parentID, markerID)
}

func (c *Cache) removeMarkerLocked(parentID, markerID int64) {
	bi, ok := c.baseItems[parentID]
	if !ok {
		return
	}
	old, ok := c.markers[markerID]
	if !ok {
		return
	}

	oldBD := bi.Breakdown
	cnt := c.counts[parentID]
	bumpCount(&cnt, old.MarkerType, -1)
	c.counts[parentID] = cnt
	newBD := cnt.breakdown()
	bi.Breakdown = newBD

	for i, id := range bi.Markers {
		if id == markerID {
			bi.Markers = append(bi.Markers[:i], bi.Markers[i+1:]...)
			break
		}
	}
	delete(c.markers, markerID)

	c.applyDelta(bi.SectionID, bi.ShowID, bi.SeasonID, oldBD, newBD)
}

// SectionMarkers returns every marker of the given types (all types, if
// types is empty) across every base item in sectionID, without mutating
// the cache. A caller that must delete the corresponding host rows first
// (e.g. NukeSection in internal/markers) calls this to learn what to
// delete, then removes the same markers from the cache with NukeSection
// below only once that deletion has committed.
func (c *Cache) SectionMarkers(sectionID int64, types []models.MarkerType) []models.Marker {
	want := make(map[models.MarkerType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	matches := func(t models.MarkerType) bool { return len(want) == 0 || want[t] }

	c.mu.RLock()
	defer c.mu.RUnlock()

	sec, ok := c.sections[sectionID]
	if !ok {
		return nil
	}

	var baseItemIDs []int64
	for id := range sec.Movies {
		baseItemIDs = append(baseItemIDs, id)
	}
	for _, sh := range sec.Shows {
		for _, se := range sh.Seasons {
			for id := range se.Episodes {
				baseItemIDs = append(baseItemIDs, id)
			}
		}
	}

	var found []models.Marker
	for _, biID := range baseItemIDs {
		bi := c.baseItems[biID]
		for _, mid := range bi.Markers {
			if mk, ok := c.markers[mid]; ok && matches(mk.MarkerType) {
				found = append(found, mk)
			}
		}
	}
	return found
}

// NukeSection removes markers (as previously returned by SectionMarkers)
// from the cache, folding each removal's breakdown delta up through its
// ancestors. Called by internal/markers strictly after the host-db
// transaction deleting the same rows has committed, so a failed or
// crashed transaction never leaves the cache diverged from the host DB.
func (c *Cache) NukeSection(markers []models.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, mk := range markers {
		c.removeMarkerLocked(mk.ParentID, mk.ID)
	}
}

// applyDelta subtracts oldBD and adds newBD to seasonID/showID/sectionID's
// aggregate breakdowns. Called with the write lock already held.
func (c *Cache) applyDelta(sectionID, showID, seasonID int64, oldBD, newBD models.Breakdown) {
	if se, ok := c.seasons[seasonID]; ok {
		subtractBreakdown(&se.Breakdown, oldBD)
		se.Breakdown.Merge(newBD)
	}
	if sh, ok := c.shows[showID]; ok {
		subtractBreakdown(&sh.Breakdown, oldBD)
		sh.Breakdown.Merge(newBD)
	}
	if sec, ok := c.sections[sectionID]; ok {
		subtractBreakdown(&sec.Breakdown, oldBD)
		sec.Breakdown.Merge(newBD)
	}
}

func subtractBreakdown(target *models.Breakdown, bd models.Breakdown) {
	for k, v := range bd.Counts {
		target.Add(k, -v)
	}
	for k, v := range bd.Commercials {
		target.AddCommercial(k, -v)
	}
}

// insertSorted inserts m into ids, keeping the slice ordered by Index
// ascending; known siblings keep their previously recorded Index even
// though a reindex may have shifted the numeric values by one, since a
// reindex preserves relative start-time order.
func insertSorted(ids []int64, known map[int64]models.Marker, m models.Marker) []int64 {
	pos := sort.Search(len(ids), func(i int) bool {
		return known[ids[i]].Index >= m.Index
	})
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = m.ID
	return ids
}

// TryUpdateCache fetches and injects a show or season subtree that the
// cache has never seen, used when a read encounters an id the cache
// doesn't recognize because the host added content after boot.
func (c *Cache) TryUpdateCache(ctx context.Context, id int64) error {
	c.mu.RLock()
	_, hasSeason := c.seasons[id]
	_, hasShow := c.shows[id]
	c.mu.RUnlock()
	if hasSeason || hasShow {
		return nil
	}

	row, ok, err := c.db.Get(ctx, `SELECT metadata_type, parent_id, library_section_id FROM `+itemsTable+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("metadata item %d", id)
	}
	var itemType int
	var parentID, sectionID int64
	if err := row.Scan(&itemType, &parentID, &sectionID); err != nil {
		return apperr.Backend(err, "scan metadata item %d", id)
	}

	switch itemType {
	case metadataTypeShow:
		return c.loadShowSubtree(ctx, id, sectionID)
	case metadataTypeSeason:
		return c.loadSeasonSubtree(ctx, id, parentID, sectionID)
	default:
		return apperr.InvalidInput("metadata item %d is not a show or season", id)
	}
}

func (c *Cache) loadShowSubtree(ctx context.Context, showID, sectionID int64) error {
	rows, err := c.db.All(ctx, `SELECT id FROM `+itemsTable+` WHERE parent_id = ? AND metadata_type = ?`, showID, metadataTypeSeason)
	if err != nil {
		return err
	}

	c.mu.Lock()
	sec, ok := c.sections[sectionID]
	if !ok {
		sec = &models.Section{SectionID: sectionID, Type: models.SectionTypeEpisode, Shows: make(map[int64]*models.Show), Movies: make(map[int64]*models.BaseItem)}
		c.sections[sectionID] = sec
	}
	sh, ok := c.shows[showID]
	if !ok {
		sh = &models.Show{ShowID: showID, SectionID: sectionID, Seasons: make(map[int64]*models.Season)}
		c.shows[showID] = sh
		sec.Shows[showID] = sh
	}
	c.mu.Unlock()

	for _, row := range rows {
		var seasonID int64
		if err := row.Scan(&seasonID); err != nil {
			return apperr.Backend(err, "scan season id")
		}
		if err := c.loadSeasonSubtree(ctx, seasonID, showID, sectionID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) loadSeasonSubtree(ctx context.Context, seasonID, showID, sectionID int64) error {
	c.mu.Lock()
	sh, ok := c.shows[showID]
	if !ok {
		sh = &models.Show{ShowID: showID, SectionID: sectionID, Seasons: make(map[int64]*models.Season)}
		c.shows[showID] = sh
		if sec, ok := c.sections[sectionID]; ok {
			sec.Shows[showID] = sh
		}
	}
	se, ok := c.seasons[seasonID]
	if !ok {
		se = &models.Season{SeasonID: seasonID, ShowID: showID, SectionID: sectionID, Episodes: make(map[int64]*models.BaseItem)}
		c.seasons[seasonID] = se
		sh.Seasons[seasonID] = se
	}
	c.mu.Unlock()

	rows, err := c.db.All(ctx, `SELECT id, duration FROM `+itemsTable+` WHERE parent_id = ? AND metadata_type = ?`, seasonID, metadataTypeEpisode)
	if err != nil {
		return err
	}
	for _, row := range rows {
		var epID, duration int64
		if err := row.Scan(&epID, &duration); err != nil {
			return apperr.Backend(err, "scan episode row")
		}
		if err := c.loadEpisode(ctx, epID, seasonID, showID, sectionID, duration); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) loadEpisode(ctx context.Context, epID, seasonID, showID, sectionID, duration int64) error {
	c.mu.Lock()
	if _, ok := c.baseItems[epID]; ok {
		c.mu.Unlock()
		return nil
	}
	bi := &models.BaseItem{MetadataID: epID, SectionID: sectionID, SeasonID: seasonID, ShowID: showID, DurationMs: duration}
	c.baseItems[epID] = bi
	c.itemBloom.add(itemKey(epID))
	c.mu.Unlock()

	markerRows, err := c.db.All(ctx,
		`SELECT tg.id, tg.time_offset, tg.end_time_offset, tg."index", t.tag
		 FROM `+taggingsTable+` tg JOIN `+tagsTable+` t ON t.id = tg.tag_id
		 WHERE t.tag_type = ? AND tg.metadata_item_id = ?`, markerTagType, epID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cnt := c.counts[epID]
	for _, row := range markerRows {
		var mID, start, end int64
		var index int
		var tag string
		if err := row.Scan(&mID, &start, &end, &index, &tag); err != nil {
			return apperr.Backend(err, "scan marker row")
		}
		mt := models.MarkerType(tagNameToMarkerType[tag])
		mk := models.Marker{ID: mID, ParentID: epID, SeasonID: seasonID, ShowID: showID, SectionID: sectionID, StartMs: start, EndMs: end, MarkerType: mt, Index: index}
		bi.Markers = append(bi.Markers, mID)
		c.markers[mID] = mk
		c.idBloom.add(markerKey(mID))
		bumpCount(&cnt, mt, 1)
	}
	c.counts[epID] = cnt
	newBD := cnt.breakdown()
	bi.Breakdown = newBD
	c.applyDelta(sectionID, showID, seasonID, models.NewBreakdown(), newBD)
	return nil
}
