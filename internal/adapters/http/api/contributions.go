// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ContributionsHandler handles encrypted submission and lookup requests.
type ContributionsHandler struct {
	deps Dependencies
}

// NewContributionsHandler creates a new contributions handler.
func NewContributionsHandler(deps Dependencies) *ContributionsHandler {
	return &ContributionsHandler{deps: deps}
}

// submitRequest mirrors the wire schema for POST /contributions. Handles are
// base64-encoded opaque bytes produced by the encryption engine.
type submitRequest struct {
	BatchID            uint64 `json:"batch_id"`
	ContributionID     string `json:"contribution_id"`
	SkillHandle        string `json:"skill_handle"`
	ContributionHandle string `json:"contribution_handle"`
}

func (s submitRequest) validate() error {
	switch {
	case strings.TrimSpace(s.ContributionID) == "":
		return NewKind("missing contribution_id", ErrBadRequest)
	case strings.TrimSpace(s.SkillHandle) == "":
		return NewKind("missing skill_handle", ErrBadRequest)
	case strings.TrimSpace(s.ContributionHandle) == "":
		return NewKind("missing contribution_handle", ErrBadRequest)
	}
	return nil
}

// HandleSubmit handles POST /contributions requests.
func (h *ContributionsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_contribution"
	provider, ok := requireActor(w, r, op)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	skillHandle, err := decodeHandle(req.SkillHandle)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	contributionHandle, err := decodeHandle(req.ContributionHandle)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	c, err := h.deps.SubmitContribution(r.Context(), provider, req.BatchID, req.ContributionID, skillHandle, contributionHandle)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContributionResponse(c))
}

// HandleGetContribution handles GET /contributions/{id} requests. The
// response carries handles and metadata only, never cleartext.
func (h *ContributionsHandler) HandleGetContribution(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_contribution"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/contributions/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	c, err := h.deps.GetContribution(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionResponse(c))
}
