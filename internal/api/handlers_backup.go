package api

import (
	"net/http"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

func handlePurgeCheck(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req sectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	purges, err := d.Backup.CheckForPurges(r.Context(), req.SectionID)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purges": purges})
}

func handleAllPurges(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	ids := d.Cache.SectionIDs()
	all := make(map[int64]any, len(ids))
	for _, sectionID := range ids {
		purges, err := d.Backup.CheckForPurges(r.Context(), sectionID)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		if len(purges) > 0 {
			all[sectionID] = purges
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"purges": all})
}

type restorePurgeRequest struct {
	SectionID int64   `json:"sectionId"`
	ActionIDs []int64 `json:"actionIds"`
}

func handleRestorePurge(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req restorePurgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	results, err := d.Backup.RestoreMarkers(r.Context(), req.ActionIDs, req.SectionID)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	wire := make([]map[string]any, len(results))
	for i, res := range results {
		entry := map[string]any{"actionId": res.ActionID}
		if res.Err != nil {
			entry["error"] = apperr.SafeMessage(res.Err)
		} else {
			entry["marker"] = res.Marker
			d.Cache.AddMarker(res.Marker)
		}
		wire[i] = entry
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": wire})
}

type ignorePurgeRequest struct {
	SectionID int64   `json:"sectionId"`
	ActionIDs []int64 `json:"actionIds"`
}

func handleIgnorePurge(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req ignorePurgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	if err := d.Backup.IgnorePurgedMarkers(r.Context(), req.ActionIDs, req.SectionID); err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ignored": len(req.ActionIDs)})
}
