package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

// writeJSON writes payload as the flat success envelope from spec §6:
// the payload's own fields at the top level, not wrapped in an outer
// object. A nil payload writes an empty JSON object.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		payload = map[string]any{}
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// errorBody is spec §6's failure envelope: {"Error": "<message>"}.
type errorBody struct {
	Error string `json:"Error"`
}

// writeError maps err to its status class (apperr.Status) and writes the
// failure envelope, using apperr.SafeMessage so Backend/External/auth
// failures never leak raw database or internal error text to the client.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status := apperr.Status(err)
	if apperr.ShouldLogAsError(err) {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, errorBody{Error: apperr.SafeMessage(err)})
}

// decodeJSON reads and decodes the request body into dst, wrapping any
// failure as an InvalidInput error so handlers don't each repeat the
// mapping.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.InvalidInput("missing request body")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.InvalidInput("malformed request body: %v", err)
	}
	return nil
}
