// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/patsmithk7/DAOSkillProof/internal/domain/access"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/batch"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/contribution"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/cooldown"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/decrypt"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/events"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/fhe"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/model"
)

// actorHeader carries the caller identity. Wallet connection and signature
// verification happen upstream; by the time a request reaches this service
// the header is trusted.
const actorHeader = "X-Actor-ID"

// oracleTokenHeader authenticates the oracle callback endpoint.
const oracleTokenHeader = "X-Oracle-Token"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AddProvider(ctx context.Context, caller, actor string) error
	RemoveProvider(ctx context.Context, caller, actor string) error
	Pause(ctx context.Context, caller string) error
	Unpause(ctx context.Context, caller string) error
	SetCooldown(ctx context.Context, caller string, d time.Duration) error

	OpenBatch(ctx context.Context, caller string) (model.Batch, error)
	CloseBatch(ctx context.Context, caller string, id uint64) (model.Batch, error)

	SubmitContribution(ctx context.Context, provider string, batchID uint64, contributionID string, skillHandle, contributionHandle fhe.Handle) (model.Contribution, error)

	RequestBatchDecryption(ctx context.Context, caller string, batchID uint64) (model.DecryptionContext, error)
	HandleDecryptionCallback(ctx context.Context, requestID string, cleartext, proof []byte) (model.DecryptionContext, error)
	EncryptScore(ctx context.Context, value uint64) (fhe.Handle, error)

	GetBatch(ctx context.Context, id uint64) (model.Batch, error)
	GetContribution(ctx context.Context, id string) (model.Contribution, error)
	GetDecryptionContext(ctx context.Context, requestID string) (model.DecryptionContext, error)
	ListEvents(ctx context.Context, from uint64, limit int) []events.Event
}

// StatsProvider exposes service statistics for the /stats endpoint.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler        *HealthHandler
	statsHandler         *StatsHandler
	adminHandler         *AdminHandler
	batchesHandler       *BatchesHandler
	contributionsHandler *ContributionsHandler
	decryptionsHandler   *DecryptionsHandler
	eventsHandler        *EventsHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithOracleToken sets the shared token the callback endpoint requires.
func WithOracleToken(token string) ServerOption {
	return func(s *Server) {
		s.decryptionsHandler.oracleToken = token
	}
}

// WithMaxEventLimit caps GET /events?limit.
func WithMaxEventLimit(limit int) ServerOption {
	return func(s *Server) {
		if limit > 0 {
			s.eventsHandler.maxLimit = limit
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:        NewHealthHandler(),
		statsHandler:         NewStatsHandler(statsProvider),
		adminHandler:         NewAdminHandler(deps),
		batchesHandler:       NewBatchesHandler(deps),
		contributionsHandler: NewContributionsHandler(deps),
		decryptionsHandler:   NewDecryptionsHandler(deps),
		eventsHandler:        NewEventsHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("/admin/providers", MetricsMiddleware(s.adminHandler.HandleAddProvider, "admin_providers"))
	mux.HandleFunc("/admin/providers/remove", MetricsMiddleware(s.adminHandler.HandleRemoveProvider, "admin_providers_remove"))
	mux.HandleFunc("/admin/pause", MetricsMiddleware(s.adminHandler.HandlePause, "admin_pause"))
	mux.HandleFunc("/admin/unpause", MetricsMiddleware(s.adminHandler.HandleUnpause, "admin_unpause"))
	mux.HandleFunc("/admin/cooldown", MetricsMiddleware(s.adminHandler.HandleSetCooldown, "admin_cooldown"))

	mux.HandleFunc("/batches", MetricsMiddleware(s.batchesHandler.HandleOpenBatch, "batches"))
	mux.HandleFunc("/batches/close", MetricsMiddleware(s.batchesHandler.HandleCloseBatch, "batches_close"))
	mux.HandleFunc("/batches/", MetricsMiddleware(s.batchesHandler.HandleGetBatch, "batches_get"))

	mux.HandleFunc("/contributions", MetricsMiddleware(s.contributionsHandler.HandleSubmit, "contributions"))
	mux.HandleFunc("/contributions/", MetricsMiddleware(s.contributionsHandler.HandleGetContribution, "contributions_get"))

	mux.HandleFunc("/decryptions", MetricsMiddleware(s.decryptionsHandler.HandleRequestDecryption, "decryptions"))
	mux.HandleFunc("/decryptions/", MetricsMiddleware(s.decryptionsHandler.HandleGetContext, "decryptions_get"))
	mux.HandleFunc("/oracle/callback", MetricsMiddleware(s.decryptionsHandler.HandleCallback, "oracle_callback"))
	mux.HandleFunc("/oracle/encrypt", MetricsMiddleware(s.decryptionsHandler.HandleEncrypt, "oracle_encrypt"))

	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))
}

// actorID extracts the caller identity from the request.
func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(actorHeader))
}

// Wire shapes shared across handlers.

type batchResponse struct {
	ID       uint64 `json:"id"`
	Status   string `json:"status"`
	OpenedAt string `json:"opened_at"`
	ClosedAt string `json:"closed_at,omitempty"`
}

func toBatchResponse(b model.Batch) batchResponse {
	resp := batchResponse{
		ID:       b.ID,
		Status:   string(b.Status),
		OpenedAt: b.OpenedAt.UTC().Format(time.RFC3339),
	}
	if !b.ClosedAt.IsZero() {
		resp.ClosedAt = b.ClosedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type contributionResponse struct {
	ID                 string `json:"id"`
	BatchID            uint64 `json:"batch_id"`
	Provider           string `json:"provider"`
	SkillHandle        string `json:"skill_handle"`
	ContributionHandle string `json:"contribution_handle"`
	TotalHandle        string `json:"total_handle"`
	SubmittedAt        string `json:"submitted_at"`
}

func toContributionResponse(c model.Contribution) contributionResponse {
	return contributionResponse{
		ID:                 c.ID,
		BatchID:            c.BatchID,
		Provider:           c.Provider,
		SkillHandle:        encodeHandle(c.SkillHandle),
		ContributionHandle: encodeHandle(c.ContributionHandle),
		TotalHandle:        encodeHandle(c.TotalHandle),
		SubmittedAt:        c.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

type decryptionResponse struct {
	RequestID    string  `json:"request_id"`
	BatchID      uint64  `json:"batch_id"`
	SnapshotHash string  `json:"snapshot_hash"`
	Processed    bool    `json:"processed"`
	RequestedAt  string  `json:"requested_at"`
	CompletedAt  string  `json:"completed_at,omitempty"`
	Result       *uint64 `json:"result,omitempty"`
}

func toDecryptionResponse(dc model.DecryptionContext) decryptionResponse {
	resp := decryptionResponse{
		RequestID:    dc.RequestID,
		BatchID:      dc.BatchID,
		SnapshotHash: hex.EncodeToString(dc.SnapshotHash),
		Processed:    dc.Processed,
		RequestedAt:  dc.RequestedAt.UTC().Format(time.RFC3339),
	}
	if dc.Processed {
		resp.CompletedAt = dc.CompletedAt.UTC().Format(time.RFC3339)
		result := dc.Result
		resp.Result = &result
	}
	return resp
}

func encodeHandle(h fhe.Handle) string {
	return base64.StdEncoding.EncodeToString(h.Opaque())
}

func decodeHandle(s string) (fhe.Handle, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fhe.Handle{}, err
	}
	if len(b) == 0 {
		return fhe.Handle{}, errors.New("empty handle")
	}
	return fhe.HandleFromOpaque(b), nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps domain sentinels onto HTTP statuses and machine codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err)
	case errors.Is(err, access.ErrNotProvider):
		writeError(w, http.StatusForbidden, "not_provider", err)
	case errors.Is(err, access.ErrSystemPaused):
		writeError(w, http.StatusServiceUnavailable, "system_paused", err)
	case errors.Is(err, access.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, cooldown.ErrCooldownActive):
		writeError(w, http.StatusTooManyRequests, "cooldown_active", err)
	case errors.Is(err, batch.ErrInvalidBatch):
		writeError(w, http.StatusNotFound, "invalid_batch", err)
	case errors.Is(err, batch.ErrAlreadyClosed):
		writeError(w, http.StatusConflict, "already_closed", err)
	case errors.Is(err, batch.ErrBatchClosed):
		writeError(w, http.StatusConflict, "batch_closed", err)
	case errors.Is(err, contribution.ErrDuplicateContribution):
		writeError(w, http.StatusConflict, "duplicate_contribution", err)
	case errors.Is(err, contribution.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, decrypt.ErrUnknownRequest):
		writeError(w, http.StatusNotFound, "unknown_request", err)
	case errors.Is(err, decrypt.ErrReplayDetected):
		writeError(w, http.StatusConflict, "replay_detected", err)
	case errors.Is(err, decrypt.ErrStateMismatch):
		writeError(w, http.StatusConflict, "state_mismatch", err)
	case errors.Is(err, decrypt.ErrDecryptionFailed):
		writeError(w, http.StatusUnprocessableEntity, "decryption_failed", err)
	case errors.Is(err, fhe.ErrUnknownHandle):
		writeError(w, http.StatusBadRequest, "unknown_handle", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
