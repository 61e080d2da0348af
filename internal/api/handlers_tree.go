package api

import (
	"net/http"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

func handleGetSections(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	ids := d.Cache.SectionIDs()
	sections := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		sType, _ := d.Cache.SectionType(id)
		breakdown, _ := d.Cache.SectionOverview(id)
		entry := map[string]any{
			"sectionId": id,
			"type":      sType,
			"breakdown": breakdown,
		}
		if n, ok := d.Backup.PurgedCount(id); ok {
			entry["purgedCount"] = n
		}
		sections = append(sections, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
}

type sectionRequest struct {
	SectionID int64 `json:"sectionId"`
}

func handleGetSection(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	sType, ok := d.Cache.SectionType(req.SectionID)
	if !ok {
		writeError(w, d.Log, apperr.NotFound("section %d", req.SectionID))
		return
	}
	breakdown, _ := d.Cache.SectionOverview(req.SectionID)
	resp := map[string]any{"sectionId": req.SectionID, "type": sType, "breakdown": breakdown}

	if shows, ok := d.Cache.ShowIDs(req.SectionID); ok {
		entries := make([]map[string]any, 0, len(shows))
		for _, showID := range shows {
			bd, _ := d.Cache.TopLevelStats(showID)
			entries = append(entries, map[string]any{"showId": showID, "breakdown": bd})
		}
		resp["shows"] = entries
	}
	if movies, ok := d.Cache.MovieIDs(req.SectionID); ok {
		entries := make([]map[string]any, 0, len(movies))
		for _, movieID := range movies {
			bd, _ := d.Cache.TopLevelStats(movieID)
			entries = append(entries, map[string]any{"metadataId": movieID, "breakdown": bd})
		}
		resp["movies"] = entries
	}
	writeJSON(w, http.StatusOK, resp)
}

type seasonsRequest struct {
	ShowID int64 `json:"showId"`
}

func handleGetSeasons(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req seasonsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	ids, ok := d.Cache.SeasonIDs(req.ShowID)
	if !ok {
		writeError(w, d.Log, apperr.NotFound("show %d", req.ShowID))
		return
	}
	seasons := make([]map[string]any, 0, len(ids))
	for _, seasonID := range ids {
		bd, _ := d.Cache.SeasonStats(req.ShowID, seasonID)
		seasons = append(seasons, map[string]any{"seasonId": seasonID, "breakdown": bd})
	}
	writeJSON(w, http.StatusOK, map[string]any{"seasons": seasons})
}

type episodesRequest struct {
	ShowID   int64 `json:"showId"`
	SeasonID int64 `json:"seasonId"`
}

func handleGetEpisodes(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req episodesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	ids, ok := d.Cache.EpisodeIDs(req.ShowID, req.SeasonID)
	if !ok {
		writeError(w, d.Log, apperr.NotFound("season %d of show %d", req.SeasonID, req.ShowID))
		return
	}
	episodes := make([]map[string]any, 0, len(ids))
	for _, epID := range ids {
		markerIDs, err := d.Markers.Query(r.Context(), epID)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		episodes = append(episodes, map[string]any{"metadataId": epID, "markers": markerIDs})
	}
	writeJSON(w, http.StatusOK, map[string]any{"episodes": episodes})
}

func handleGetStats(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	stats, err := d.Markers.MarkerStatsForSection(r.Context(), req.SectionID)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type breakdownRequest struct {
	ShowID int64 `json:"showId"`
}

func handleGetBreakdown(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req breakdownRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	tree, ok := d.Cache.TreeStats(req.ShowID)
	if !ok {
		writeError(w, d.Log, apperr.NotFound("show %d", req.ShowID))
		return
	}
	writeJSON(w, http.StatusOK, tree)
}
