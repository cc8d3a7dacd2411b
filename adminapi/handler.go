// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package adminapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

var log = slog.Default().With("component", "adminapi")

// registerRequest is the wire shape of POST /admin/users.
type registerRequest struct {
	Username     string      `json:"username"`
	Repositories []string    `json:"repositories"`
	Permissions  Permissions `json:"permissions"`
}

type registerResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the admin HTTP API over a Store.
type Handler struct {
	store *Store
}

// NewHandler builds a Handler backed by store.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes registers the admin endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/admin/users", h.handleRegister)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if !ValidUsername(req.Username) {
		writeError(w, http.StatusBadRequest, "username must look like an email address")
		return
	}

	user, err := h.store.Register(r.Context(), req.Username, req.Repositories, req.Permissions)
	if err != nil {
		log.Warn("registration failed", "username", req.Username, "err", err)
		writeError(w, http.StatusConflict, "username already registered")
		return
	}

	log.Info("user registered", "username", user.Username)
	writeJSON(w, http.StatusCreated, registerResponse{Token: user.Token})
}

// ValidUsername requires an email-shaped username: contains '@', length
// > 3, doesn't start or end with '@', and is limited to alphanumerics
// plus "@.-_".
func ValidUsername(username string) bool {
	if !strings.Contains(username, "@") {
		return false
	}
	if len(username) <= 3 {
		return false
	}
	if strings.HasPrefix(username, "@") || strings.HasSuffix(username, "@") {
		return false
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case strings.ContainsRune("@.-_", r):
		default:
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
