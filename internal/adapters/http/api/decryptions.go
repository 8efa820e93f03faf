// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// DecryptionsHandler handles the oracle handshake surface: requesting a
// batch decryption, receiving the callback, and context lookups.
type DecryptionsHandler struct {
	deps        Dependencies
	oracleToken string
}

// NewDecryptionsHandler creates a new decryptions handler.
func NewDecryptionsHandler(deps Dependencies) *DecryptionsHandler {
	return &DecryptionsHandler{deps: deps}
}

type requestDecryptionRequest struct {
	BatchID uint64 `json:"batch_id"`
}

// HandleRequestDecryption handles POST /decryptions requests.
func (h *DecryptionsHandler) HandleRequestDecryption(w http.ResponseWriter, r *http.Request) {
	const op = "api.request_decryption"
	caller, ok := requireActor(w, r, op)
	if !ok {
		return
	}
	var req requestDecryptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	dc, err := h.deps.RequestBatchDecryption(r.Context(), caller, req.BatchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toDecryptionResponse(dc))
}

// callbackRequest mirrors the wire schema for POST /oracle/callback.
// Cleartext and proof travel base64-encoded.
type callbackRequest struct {
	RequestID string `json:"request_id"`
	Cleartext string `json:"cleartext"`
	Proof     string `json:"proof"`
}

// HandleCallback handles POST /oracle/callback requests. This is the
// external-capability entry point, authenticated by the oracle shared token
// rather than an actor identity.
func (h *DecryptionsHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	const op = "api.oracle_callback"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	token := r.Header.Get(oracleTokenHeader)
	if h.oracleToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.oracleToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized", NewKind(op, ErrUnauthorized))
		return
	}
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.RequestID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	cleartext, err := base64.StdEncoding.DecodeString(req.Cleartext)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	proof, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	dc, err := h.deps.HandleDecryptionCallback(r.Context(), req.RequestID, cleartext, proof)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDecryptionResponse(dc))
}

// HandleGetContext handles GET /decryptions/{request_id} requests.
func (h *DecryptionsHandler) HandleGetContext(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_decryption"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/decryptions/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	dc, err := h.deps.GetDecryptionContext(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDecryptionResponse(dc))
}

type encryptRequest struct {
	Value uint64 `json:"value"`
}

type encryptResponse struct {
	Handle string `json:"handle"`
}

// HandleEncrypt handles POST /oracle/encrypt requests. Development
// convenience backed by the in-process simulator; a production deployment
// encrypts provider-side and this endpoint answers 500.
func (h *DecryptionsHandler) HandleEncrypt(w http.ResponseWriter, r *http.Request) {
	const op = "api.oracle_encrypt"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req encryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	handle, err := h.deps.EncryptScore(r.Context(), req.Value)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, encryptResponse{Handle: encodeHandle(handle)})
}
