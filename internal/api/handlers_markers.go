package api

import (
	"net/http"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/markers"
	"github.com/gomarkereditor/markereditor/internal/models"
	"github.com/gomarkereditor/markereditor/internal/timeexpr"
)

type queryRequest struct {
	ParentID int64 `json:"parentId"`
}

func handleQuery(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	result, err := d.Markers.Query(r.Context(), req.ParentID)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markers": result})
}

// addRequest's Start/End accept a plain millisecond count, a clock
// timestamp ("01:23:45.500"), or a reference expression such as
// "=I@Ch5+1:00" — all parsed by the time expression evaluator (C11).
type addRequest struct {
	ParentID int64             `json:"parentId"`
	Start    string            `json:"start"`
	End      string            `json:"end"`
	Type     models.MarkerType `json:"type"`
	Final    bool              `json:"final"`
}

func handleAdd(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	startMs, endMs, err := resolveMarkerBounds(r, d, req.ParentID, req.Start, req.End)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	created, err := d.Markers.Add(r.Context(), req.ParentID, startMs, endMs, req.Type, req.Final)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

type editRequest struct {
	ID       int64             `json:"id"`
	ParentID int64             `json:"parentId"`
	Start    string            `json:"start"`
	End      string            `json:"end"`
	Type     models.MarkerType `json:"type"`
	Final    bool              `json:"final"`
}

func handleEdit(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	startMs, endMs, err := resolveMarkerBounds(r, d, req.ParentID, req.Start, req.End)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	edited, err := d.Markers.Edit(r.Context(), req.ID, startMs, endMs, req.Type, req.Final)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, edited)
}

// resolveMarkerBounds evaluates the start/end time expressions against
// parentID's current markers, chapters, and duration (C11). The start
// field defaults unqualified references to the end of the referenced
// entity and the end field to its start, so an unadorned "=I@M1" chains
// naturally from the previous marker.
func resolveMarkerBounds(r *http.Request, d *Dispatcher, parentID int64, start, end string) (int64, int64, error) {
	startMs, err := d.Markers.ResolveTimeExpr(r.Context(), parentID, start, timeexpr.StartField)
	if err != nil {
		return 0, 0, err
	}
	endMs, err := d.Markers.ResolveTimeExpr(r.Context(), parentID, end, timeexpr.EndField)
	if err != nil {
		return 0, 0, err
	}
	return startMs, endMs, nil
}

type deleteRequest struct {
	ID int64 `json:"id"`
}

func handleDelete(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	deleted, err := d.Markers.Delete(r.Context(), req.ID)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func handleGetChapters(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	chapters, err := d.Markers.Chapters(r.Context(), req.ParentID)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapters": chapters})
}

type bulkShiftRequest struct {
	ScopeID      int64                `json:"scopeId"`
	DeltaMs      int64                `json:"deltaMs"`
	ApplyToTypes []models.MarkerType  `json:"applyToTypes"`
	Policy       markers.OverlapPolicy `json:"policy"`
	ExcludedIDs  []int64              `json:"excludedIds"`
}

func handleBulkShift(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req bulkShiftRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	results, err := d.Markers.BulkShift(r.Context(), req.ScopeID, req.DeltaMs, req.ApplyToTypes, req.Policy, req.ExcludedIDs)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": itemResultsToWire(results)})
}

type bulkAddRequest struct {
	ScopeID int64                 `json:"scopeId"`
	StartMs int64                 `json:"start"`
	EndMs   int64                 `json:"end"`
	Type    models.MarkerType     `json:"type"`
	Policy  markers.OverlapPolicy `json:"policy"`
}

func handleCheckBulkAdd(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req bulkAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	results, err := d.Markers.CheckBulkAdd(r.Context(), req.ScopeID, req.StartMs, req.EndMs, req.Type, req.Policy)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": itemResultsToWire(results)})
}

func handleBulkAdd(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req bulkAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	results, err := d.Markers.BulkAdd(r.Context(), req.ScopeID, req.StartMs, req.EndMs, req.Type, req.Policy)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": itemResultsToWire(results)})
}

type bulkDeleteRequest struct {
	ScopeID      int64               `json:"scopeId"`
	ApplyToTypes []models.MarkerType `json:"applyToTypes"`
	ExcludedIDs  []int64             `json:"excludedIds"`
}

func handleCheckBulkDelete(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	results, err := d.Markers.CheckBulkDelete(r.Context(), req.ScopeID, req.ApplyToTypes, req.ExcludedIDs)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": itemResultsToWire(results)})
}

func handleBulkDelete(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	results, err := d.Markers.BulkDelete(r.Context(), req.ScopeID, req.ApplyToTypes, req.ExcludedIDs)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": itemResultsToWire(results)})
}

type nukeSectionRequest struct {
	SectionID    int64               `json:"sectionId"`
	ApplyToTypes []models.MarkerType `json:"applyToTypes"`
}

func handleNukeSection(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req nukeSectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	count, err := d.Markers.NukeSection(r.Context(), req.SectionID, req.ApplyToTypes)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": count})
}

// wireItemResult mirrors markers.ItemResult but substitutes a plain string
// for Err, since error values don't marshal to anything useful on their own
// and the client only needs the safe message, not the error's Kind.
type wireItemResult struct {
	ParentID int64          `json:"parentId"`
	Marker   *models.Marker `json:"marker,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func itemResultsToWire(results []markers.ItemResult) []wireItemResult {
	wire := make([]wireItemResult, len(results))
	for i, res := range results {
		w := wireItemResult{ParentID: res.ParentID}
		if res.Err != nil {
			w.Error = apperr.SafeMessage(res.Err)
		} else {
			marker := res.Marker
			w.Marker = &marker
		}
		wire[i] = w
	}
	return wire
}
