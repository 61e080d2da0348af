// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/hostdb"
	"github.com/gomarkereditor/markereditor/internal/models"
)

// itemCounts is the per-base-item tally feeding its Breakdown singleton: a
// base item's own Breakdown always holds exactly one Counts entry (its
// current intro/credits key) and one Commercials entry (its current
// commercial count), each mapped to 1.
type itemCounts struct {
	intros, credits, commercials int
}

func (c itemCounts) breakdown() models.Breakdown {
	bd := models.NewBreakdown()
	bd.Add(models.BreakdownKey(c.intros, c.credits), 1)
	bd.AddCommercial(c.commercials, 1)
	return bd
}

// Cache is the Section -> {Show -> Season -> Episode | Movie} tree. Zero
// value is not usable; construct with New.
type Cache struct {
	db  *hostdb.Gateway
	log zerolog.Logger

	mu        sync.RWMutex
	sections  map[int64]*models.Section
	shows     map[int64]*models.Show
	seasons   map[int64]*models.Season
	baseItems map[int64]*models.BaseItem
	markers   map[int64]models.Marker // markerID -> last known marker, for lookups and delta computation on remove
	counts    map[int64]itemCounts    // base item id -> current intro/credits/commercial tally

	idBloom   *bloomFilter
	itemBloom *bloomFilter
}

// New constructs an empty Cache; call Build to populate it from the host
// database.
func New(db *hostdb.Gateway, log zerolog.Logger) *Cache {
	return &Cache{
		db:        db,
		log:       log,
		sections:  make(map[int64]*models.Section),
		shows:     make(map[int64]*models.Show),
		seasons:   make(map[int64]*models.Season),
		baseItems: make(map[int64]*models.BaseItem),
		markers:   make(map[int64]models.Marker),
		counts:    make(map[int64]itemCounts),
		idBloom:   newBloomFilter(50000),
		itemBloom: newBloomFilter(20000),
	}
}

type rawItem struct {
	id        int64
	sectionID int64
	itemType  int
	parentID  int64
	duration  int64
}

type rawMarker struct {
	id       int64
	parentID int64
	start    int64
	end      int64
	index    int
	tag      string
}

// Build discards whatever the tree currently holds and repopulates it from
// two queries: every movie/show/season/episode row, and every marker
// tagging row. The two are joined in memory rather than via SQL, since the
// resulting in-memory join is cheaper than asking SQLite to do it once per
// boot across a whole library.
func (c *Cache) Build(ctx context.Context) error {
	items, err := c.loadItems(ctx)
	if err != nil {
		return err
	}
	markerRows, err := c.loadMarkers(ctx)
	if err != nil {
		return err
	}

	sections := make(map[int64]*models.Section)
	shows := make(map[int64]*models.Show)
	seasons := make(map[int64]*models.Season)
	baseItems := make(map[int64]*models.BaseItem)
	counts := make(map[int64]itemCounts)
	markers := make(map[int64]models.Marker, len(markerRows))

	sectionOf := func(id int64, t models.SectionType) *models.Section {
		s, ok := sections[id]
		if !ok {
			s = &models.Section{SectionID: id, Type: t, Shows: make(map[int64]*models.Show), Movies: make(map[int64]*models.BaseItem)}
			sections[id] = s
		}
		return s
	}

	// Pass 1: shows, since seasons need ShowID and episodes need the
	// season's ShowID.
	for _, it := range items {
		if it.itemType == metadataTypeShow {
			sec := sectionOf(it.sectionID, models.SectionTypeEpisode)
			sh := &models.Show{ShowID: it.id, SectionID: it.sectionID, Seasons: make(map[int64]*models.Season)}
			shows[it.id] = sh
			sec.Shows[it.id] = sh
		}
	}
	// Pass 2: seasons.
	for _, it := range items {
		if it.itemType != metadataTypeSeason {
			continue
		}
		sh, ok := shows[it.parentID]
		if !ok {
			c.log.Warn().Int64("season_id", it.id).Int64("show_id", it.parentID).Msg("season references unknown show, skipping")
			continue
		}
		se := &models.Season{SeasonID: it.id, ShowID: sh.ShowID, SectionID: sh.SectionID, Episodes: make(map[int64]*models.BaseItem)}
		seasons[it.id] = se
		sh.Seasons[it.id] = se
	}
	// Pass 3: base items (movies and episodes).
	missingParents := 0
	for _, it := range items {
		switch it.itemType {
		case metadataTypeMovie:
			sec := sectionOf(it.sectionID, models.SectionTypeMovie)
			bi := &models.BaseItem{MetadataID: it.id, SectionID: it.sectionID, SeasonID: models.NoParent, ShowID: models.NoParent, DurationMs: it.duration}
			baseItems[it.id] = bi
			sec.Movies[it.id] = bi
		case metadataTypeEpisode:
			se, ok := seasons[it.parentID]
			if !ok {
				missingParents++
				continue
			}
			bi := &models.BaseItem{MetadataID: it.id, SectionID: se.SectionID, SeasonID: se.SeasonID, ShowID: se.ShowID, DurationMs: it.duration}
			baseItems[it.id] = bi
			se.Episodes[it.id] = bi
		}
	}

	byParent := make(map[int64][]rawMarker)
	for _, mr := range markerRows {
		byParent[mr.parentID] = append(byParent[mr.parentID], mr)
	}
	for parentID, rows := range byParent {
		bi, ok := baseItems[parentID]
		if !ok {
			missingParents += len(rows)
			continue
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].index < rows[j].index })
		cnt := counts[parentID]
		for _, r := range rows {
			mt := models.MarkerType(tagNameToMarkerType[r.tag])
			mk := models.Marker{
				ID:         r.id,
				ParentID:   parentID,
				SeasonID:   bi.SeasonID,
				ShowID:     bi.ShowID,
				SectionID:  bi.SectionID,
				StartMs:    r.start,
				EndMs:      r.end,
				MarkerType: mt,
				Index:      r.index,
			}
			bi.Markers = append(bi.Markers, mk.ID)
			markers[mk.ID] = mk
			bumpCount(&cnt, mt, 1)
		}
		counts[parentID] = cnt
	}

	idBloom := newBloomFilter(len(markerRows) + 1)
	itemBloom := newBloomFilter(len(baseItems) + 1)
	for id, bi := range baseItems {
		bi.Breakdown = counts[id].breakdown()
		itemBloom.add(itemKey(id))
		propagateUp(bi, shows, seasons, sections)
	}
	for id := range markers {
		idBloom.add(markerKey(id))
	}

	c.mu.Lock()
	c.sections, c.shows, c.seasons, c.baseItems, c.markers, c.counts = sections, shows, seasons, baseItems, markers, counts
	c.idBloom, c.itemBloom = idBloom, itemBloom
	c.mu.Unlock()

	c.log.Info().
		Int("sections", len(sections)).
		Int("shows", len(shows)).
		Int("seasons", len(seasons)).
		Int("base_items", len(baseItems)).
		Int("markers", len(markers)).
		Int("missing_parents", missingParents).
		Msg("marker cache built")
	return nil
}

func bumpCount(cnt *itemCounts, t models.MarkerType, delta int) {
	switch t {
	case models.MarkerTypeIntro:
		cnt.intros += delta
	case models.MarkerTypeCredits:
		cnt.credits += delta
	case models.MarkerTypeCommercial:
		cnt.commercials += delta
	}
}

// propagateUp folds bi's breakdown into its season, show, and section
// ancestors. Only valid when every ancestor's Breakdown starts at zero and
// each base item is folded in exactly once, which holds during Build.
func propagateUp(bi *models.BaseItem, shows map[int64]*models.Show, seasons map[int64]*models.Season, sections map[int64]*models.Section) {
	if se, ok := seasons[bi.SeasonID]; ok {
		se.Breakdown.Merge(bi.Breakdown)
		if sh, ok := shows[se.ShowID]; ok {
			sh.Breakdown.Merge(bi.Breakdown)
		}
	}
	if sec, ok := sections[bi.SectionID]; ok {
		sec.Breakdown.Merge(bi.Breakdown)
	}
}

func (c *Cache) loadItems(ctx context.Context) ([]rawItem, error) {
	rows, err := c.db.All(ctx, `SELECT id, library_section_id, metadata_type, parent_id, duration FROM `+itemsTable+
		` WHERE metadata_type IN (?, ?, ?, ?)`, metadataTypeMovie, metadataTypeShow, metadataTypeSeason, metadataTypeEpisode)
	if err != nil {
		return nil, err
	}
	items := make([]rawItem, 0, len(rows))
	for _, row := range rows {
		var it rawItem
		var sectionID, parentID, duration interface{}
		if err := row.Scan(&it.id, &sectionID, &it.itemType, &parentID, &duration); err != nil {
			return nil, apperr.Backend(err, "scan metadata item")
		}
		it.sectionID = toInt64(sectionID)
		it.parentID = toInt64(parentID)
		it.duration = toInt64(duration)
		items = append(items, it)
	}
	return items, nil
}

func (c *Cache) loadMarkers(ctx context.Context) ([]rawMarker, error) {
	rows, err := c.db.All(ctx,
		`SELECT tg.id, tg.metadata_item_id, tg.time_offset, tg.end_time_offset, tg."index", t.tag
		 FROM `+taggingsTable+` tg JOIN `+tagsTable+` t ON t.id = tg.tag_id WHERE t.tag_type = ?`, markerTagType)
	if err != nil {
		return nil, err
	}
	out := make([]rawMarker, 0, len(rows))
	for _, row := range rows {
		var mr rawMarker
		if err := row.Scan(&mr.id, &mr.parentID, &mr.start, &mr.end, &mr.index, &mr.tag); err != nil {
			return nil, apperr.Backend(err, "scan marker row")
		}
		out = append(out, mr)
	}
	return out, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return models.NoParent
	}
}

func markerKey(id int64) string { return "m:" + itoaKey(id) }
func itemKey(id int64) string   { return "i:" + itoaKey(id) }

func itoaKey(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
