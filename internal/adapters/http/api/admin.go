// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// AdminHandler handles owner-only administration requests.
type AdminHandler struct {
	deps Dependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Dependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type providerRequest struct {
	Actor string `json:"actor"`
}

func (p providerRequest) validate() error {
	if strings.TrimSpace(p.Actor) == "" {
		return NewKind("api.provider", ErrBadRequest)
	}
	return nil
}

// HandleAddProvider handles POST /admin/providers requests.
func (h *AdminHandler) HandleAddProvider(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_provider"
	caller, ok := requireActor(w, r, op)
	if !ok {
		return
	}
	var req providerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.AddProvider(r.Context(), caller, req.Actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleRemoveProvider handles POST /admin/providers/remove requests.
func (h *AdminHandler) HandleRemoveProvider(w http.ResponseWriter, r *http.Request) {
	const op = "api.remove_provider"
	caller, ok := requireActor(w, r, op)
	if !ok {
		return
	}
	var req providerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := h.deps.RemoveProvider(r.Context(), caller, req.Actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandlePause handles POST /admin/pause requests.
func (h *AdminHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	const op = "api.pause"
	caller, ok := requireActor(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.Pause(r.Context(), caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// HandleUnpause handles POST /admin/unpause requests.
func (h *AdminHandler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	const op = "api.unpause"
	caller, ok := requireActor(w, r, op)
	if !ok {
		return
	}
	if err := h.deps.Unpause(r.Context(), caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

type cooldownRequest struct {
	Seconds int64 `json:"seconds"`
}

// HandleSetCooldown handles POST /admin/cooldown requests.
func (h *AdminHandler) HandleSetCooldown(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_cooldown"
	caller, ok := requireActor(w, r, op)
	if !ok {
		return
	}
	var req cooldownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.SetCooldown(r.Context(), caller, time.Duration(req.Seconds)*time.Second); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireActor enforces method POST and a caller identity header.
func requireActor(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return "", false
	}
	caller := actorID(r)
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return "", false
	}
	return caller, true
}
