// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlePurgeCheckEmpty(t *testing.T) {
	env := newTestEnv(t)
	d := env.dispatcher(t)

	req := httptest.NewRequest(http.MethodPost, "/purgeCheck", jsonBody(t, sectionRequest{SectionID: 1}))
	rec := httptest.NewRecorder()
	handlePurgeCheck(d, rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Purges []any `json:"purges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Purges) != 0 {
		t.Fatalf("purges = %d, want 0", len(body.Purges))
	}
}

func TestHandleAllPurgesEmpty(t *testing.T) {
	env := newTestEnv(t)
	d := env.dispatcher(t)

	req := httptest.NewRequest(http.MethodPost, "/allPurges", nil)
	rec := httptest.NewRecorder()
	handleAllPurges(d, rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHandleRestorePurgeReportsUnknownAction(t *testing.T) {
	env := newTestEnv(t)
	d := env.dispatcher(t)

	req := httptest.NewRequest(http.MethodPost, "/restorePurge", jsonBody(t, restorePurgeRequest{
		SectionID: 1,
		ActionIDs: []int64{9999},
	}))
	rec := httptest.NewRecorder()
	handleRestorePurge(d, rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(body.Results))
	}
	if _, hasError := body.Results[0]["error"]; !hasError {
		t.Errorf("expected an error entry for an unknown action id, got %v", body.Results[0])
	}
}

func TestHandleIgnorePurge(t *testing.T) {
	env := newTestEnv(t)
	d := env.dispatcher(t)

	req := httptest.NewRequest(http.MethodPost, "/ignorePurge", jsonBody(t, ignorePurgeRequest{
		SectionID: 1,
		ActionIDs: []int64{1, 2},
	}))
	rec := httptest.NewRecorder()
	handleIgnorePurge(d, rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Ignored int `json:"ignored"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Ignored != 2 {
		t.Fatalf("ignored = %d, want 2", body.Ignored)
	}
}
