package api

import "net/http"

func handleShutdown(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	if err := d.State.Transition(ShuttingDown); err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": d.State.Current().String()})
	go func() {
		_ = d.Lifecycle.Shutdown(r.Context())
	}()
}

type restartRequest struct {
	Hard bool `json:"hard"`
}

func handleRestart(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	_ = decodeJSON(r, &req)
	if err := d.State.Transition(ReInit); err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": d.State.Current().String()})
	go func() {
		_ = d.Lifecycle.Restart(r.Context(), req.Hard)
	}()
}

func handleSuspend(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	if err := d.State.Transition(Suspended); err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": d.State.Current().String()})
}

func handleResume(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	if err := d.State.Transition(Running); err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": d.State.Current().String()})
}
