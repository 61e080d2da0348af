package api

import (
	"net/http"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func handleLogin(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	if d.Auth == nil {
		writeError(w, d.Log, apperr.Forbidden("authentication is disabled"))
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	token, err := d.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func handleChangePassword(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	if d.Auth == nil {
		writeError(w, d.Log, apperr.Forbidden("authentication is disabled"))
		return
	}
	if _, ok := auth.SessionFromContext(r.Context()); !ok {
		writeError(w, d.Log, apperr.Unauthorized("no active session"))
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	if err := d.Auth.ChangePassword(r.Context(), req.OldPassword, req.NewPassword); err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": true})
}
