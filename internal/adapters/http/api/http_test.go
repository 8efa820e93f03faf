package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/patsmithk7/DAOSkillProof/internal/adapters/http/api"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/access"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/batch"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/contribution"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/decrypt"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/events"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/fhe"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mockService records calls and returns canned answers for every handler
// dependency.
type mockService struct {
	err error

	batch        model.Batch
	contribution model.Contribution
	decryption   model.DecryptionContext
	events       []events.Event
	handle       fhe.Handle

	lastCaller string
	lastActor  string
	lastBatch  uint64
	lastLimit  int
	lastFrom   uint64
}

func (m *mockService) AddProvider(_ context.Context, caller, actor string) error {
	m.lastCaller, m.lastActor = caller, actor
	return m.err
}

func (m *mockService) RemoveProvider(_ context.Context, caller, actor string) error {
	m.lastCaller, m.lastActor = caller, actor
	return m.err
}

func (m *mockService) Pause(_ context.Context, caller string) error {
	m.lastCaller = caller
	return m.err
}

func (m *mockService) Unpause(_ context.Context, caller string) error {
	m.lastCaller = caller
	return m.err
}

func (m *mockService) SetCooldown(_ context.Context, caller string, _ time.Duration) error {
	m.lastCaller = caller
	return m.err
}

func (m *mockService) OpenBatch(_ context.Context, caller string) (model.Batch, error) {
	m.lastCaller = caller
	return m.batch, m.err
}

func (m *mockService) CloseBatch(_ context.Context, caller string, id uint64) (model.Batch, error) {
	m.lastCaller, m.lastBatch = caller, id
	return m.batch, m.err
}

func (m *mockService) SubmitContribution(_ context.Context, provider string, batchID uint64, _ string, _, _ fhe.Handle) (model.Contribution, error) {
	m.lastCaller, m.lastBatch = provider, batchID
	return m.contribution, m.err
}

func (m *mockService) RequestBatchDecryption(_ context.Context, caller string, batchID uint64) (model.DecryptionContext, error) {
	m.lastCaller, m.lastBatch = caller, batchID
	return m.decryption, m.err
}

func (m *mockService) HandleDecryptionCallback(_ context.Context, _ string, _, _ []byte) (model.DecryptionContext, error) {
	return m.decryption, m.err
}

func (m *mockService) EncryptScore(_ context.Context, _ uint64) (fhe.Handle, error) {
	return m.handle, m.err
}

func (m *mockService) GetBatch(_ context.Context, id uint64) (model.Batch, error) {
	m.lastBatch = id
	return m.batch, m.err
}

func (m *mockService) GetContribution(_ context.Context, _ string) (model.Contribution, error) {
	return m.contribution, m.err
}

func (m *mockService) GetDecryptionContext(_ context.Context, _ string) (model.DecryptionContext, error) {
	return m.decryption, m.err
}

func (m *mockService) ListEvents(_ context.Context, from uint64, limit int) []events.Event {
	m.lastFrom, m.lastLimit = from, limit
	return m.events
}

func (m *mockService) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(m *mockService, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(m, m, opts...).Register(context.Background(), mux)
	return mux
}

func doJSON(mux *http.ServeMux, method, path, actor string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given the API server", t, func() {
		mux := newTestMux(&mockService{})

		Convey("When GET /healthz", func() {
			rec := doJSON(mux, http.MethodGet, "/healthz", "", nil)

			Convey("Then it answers ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When GET /stats", func() {
			rec := doJSON(mux, http.MethodGet, "/stats", "", nil)

			Convey("Then it answers the stats map", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When GET /metrics", func() {
			rec := doJSON(mux, http.MethodGet, "/metrics", "", nil)

			Convey("Then the Prometheus registry is served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestAdminEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		m := &mockService{}
		mux := newTestMux(m)

		Convey("When adding a provider with a caller identity", func() {
			rec := doJSON(mux, http.MethodPost, "/admin/providers", "owner", map[string]string{"actor": "alice"})

			Convey("Then it succeeds and forwards both identities", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(m.lastCaller, ShouldEqual, "owner")
				So(m.lastActor, ShouldEqual, "alice")
			})
		})

		Convey("When the caller identity header is missing", func() {
			rec := doJSON(mux, http.MethodPost, "/admin/providers", "", map[string]string{"actor": "alice"})

			Convey("Then it is unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When the actor payload is blank", func() {
			rec := doJSON(mux, http.MethodPost, "/admin/providers", "owner", map[string]string{"actor": "  "})

			Convey("Then it is a bad request", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service rejects a non-owner", func() {
			m.err = access.ErrNotOwner
			rec := doJSON(mux, http.MethodPost, "/admin/pause", "mallory", nil)

			Convey("Then it maps to forbidden", func() {
				So(rec.Code, ShouldEqual, http.StatusForbidden)
				So(rec.Body.String(), ShouldContainSubstring, "not_owner")
			})
		})

		Convey("When the system is paused", func() {
			m.err = access.ErrSystemPaused
			rec := doJSON(mux, http.MethodPost, "/admin/providers", "owner", map[string]string{"actor": "alice"})

			Convey("Then it maps to service unavailable", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When setting the cooldown", func() {
			rec := doJSON(mux, http.MethodPost, "/admin/cooldown", "owner", map[string]int{"seconds": 30})
			So(rec.Code, ShouldEqual, http.StatusOK)

			Convey("And an invalid value maps to bad request", func() {
				m.err = access.ErrInvalidArgument
				rec := doJSON(mux, http.MethodPost, "/admin/cooldown", "owner", map[string]int{"seconds": 0})
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestBatchEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		opened := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		m := &mockService{batch: model.Batch{ID: 3, Status: model.BatchOpen, OpenedAt: opened}}
		mux := newTestMux(m)

		Convey("When POST /batches", func() {
			rec := doJSON(mux, http.MethodPost, "/batches", "owner", nil)

			Convey("Then the batch is created", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(rec.Body.String(), ShouldContainSubstring, `"id":3`)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"open"`)
			})
		})

		Convey("When POST /batches/close", func() {
			rec := doJSON(mux, http.MethodPost, "/batches/close", "owner", map[string]uint64{"batch_id": 3})

			Convey("Then the close is forwarded", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(m.lastBatch, ShouldEqual, 3)
			})

			Convey("And an already-closed batch maps to conflict", func() {
				m.err = batch.ErrAlreadyClosed
				rec := doJSON(mux, http.MethodPost, "/batches/close", "owner", map[string]uint64{"batch_id": 3})
				So(rec.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When GET /batches/{id}", func() {
			rec := doJSON(mux, http.MethodGet, "/batches/3", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)

			Convey("And an unknown id maps to not found", func() {
				m.err = batch.ErrInvalidBatch
				rec := doJSON(mux, http.MethodGet, "/batches/99", "", nil)
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("And a non-numeric id is a bad request", func() {
				rec := doJSON(mux, http.MethodGet, "/batches/abc", "", nil)
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestContributionEndpoints(t *testing.T) {
	Convey("Given the API server", t, func() {
		submitted := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		m := &mockService{contribution: model.Contribution{
			ID:          "c-1",
			BatchID:     3,
			Provider:    "alice",
			TotalHandle: fhe.HandleFromOpaque([]byte{0xAA}),
			SubmittedAt: submitted,
		}}
		mux := newTestMux(m)

		validBody := map[string]any{
			"batch_id":            3,
			"contribution_id":     "c-1",
			"skill_handle":        base64.StdEncoding.EncodeToString([]byte{0x01}),
			"contribution_handle": base64.StdEncoding.EncodeToString([]byte{0x02}),
		}

		Convey("When POST /contributions", func() {
			rec := doJSON(mux, http.MethodPost, "/contributions", "alice", validBody)

			Convey("Then the contribution is created", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				So(rec.Body.String(), ShouldContainSubstring, `"id":"c-1"`)
				So(m.lastCaller, ShouldEqual, "alice")
			})
		})

		Convey("When a handle is not valid base64", func() {
			body := map[string]any{
				"batch_id":            3,
				"contribution_id":     "c-1",
				"skill_handle":        "not-base64!!!",
				"contribution_handle": base64.StdEncoding.EncodeToString([]byte{0x02}),
			}
			rec := doJSON(mux, http.MethodPost, "/contributions", "alice", body)

			Convey("Then it is a bad request", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the contribution id is missing", func() {
			body := map[string]any{
				"batch_id":            3,
				"skill_handle":        base64.StdEncoding.EncodeToString([]byte{0x01}),
				"contribution_handle": base64.StdEncoding.EncodeToString([]byte{0x02}),
			}
			rec := doJSON(mux, http.MethodPost, "/contributions", "alice", body)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the id is already claimed", func() {
			m.err = contribution.ErrDuplicateContribution
			rec := doJSON(mux, http.MethodPost, "/contributions", "alice", validBody)

			Convey("Then it maps to conflict", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
				So(rec.Body.String(), ShouldContainSubstring, "duplicate_contribution")
			})
		})

		Convey("When the batch window ended", func() {
			m.err = batch.ErrBatchClosed
			rec := doJSON(mux, http.MethodPost, "/contributions", "alice", validBody)
			So(rec.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When GET /contributions/{id}", func() {
			rec := doJSON(mux, http.MethodGet, "/contributions/c-1", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)

			Convey("And an unknown id maps to not found", func() {
				m.err = contribution.ErrNotFound
				rec := doJSON(mux, http.MethodGet, "/contributions/zzz", "", nil)
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestDecryptionEndpoints(t *testing.T) {
	Convey("Given the API server with an oracle token", t, func() {
		requested := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		m := &mockService{decryption: model.DecryptionContext{
			RequestID:    "req-1",
			BatchID:      3,
			SnapshotHash: []byte{0xBE, 0xEF},
			RequestedAt:  requested,
		}}
		mux := newTestMux(m, api.WithOracleToken("secret-token"))

		Convey("When POST /decryptions", func() {
			rec := doJSON(mux, http.MethodPost, "/decryptions", "owner", map[string]uint64{"batch_id": 3})

			Convey("Then the request is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(rec.Body.String(), ShouldContainSubstring, `"request_id":"req-1"`)
				So(rec.Body.String(), ShouldContainSubstring, `"snapshot_hash":"beef"`)
			})

			Convey("And a still-open batch maps to not found", func() {
				m.err = batch.ErrInvalidBatch
				rec := doJSON(mux, http.MethodPost, "/decryptions", "owner", map[string]uint64{"batch_id": 9})
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When GET /decryptions/{id}", func() {
			rec := doJSON(mux, http.MethodGet, "/decryptions/req-1", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)

			Convey("And an unknown request maps to not found", func() {
				m.err = decrypt.ErrUnknownRequest
				rec := doJSON(mux, http.MethodGet, "/decryptions/req-zzz", "", nil)
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the oracle posts a callback", func() {
			body := map[string]string{
				"request_id": "req-1",
				"cleartext":  base64.StdEncoding.EncodeToString(make([]byte, 8)),
				"proof":      base64.StdEncoding.EncodeToString([]byte("proof")),
			}

			Convey("And the token matches", func() {
				done := m.decryption
				done.Processed = true
				done.CompletedAt = requested.Add(time.Minute)
				done.Result = 42
				m.decryption = done

				var buf bytes.Buffer
				_ = json.NewEncoder(&buf).Encode(body)
				req := httptest.NewRequest(http.MethodPost, "/oracle/callback", &buf)
				req.Header.Set("X-Oracle-Token", "secret-token")
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, req)

				Convey("Then the completed context is returned", func() {
					So(rec.Code, ShouldEqual, http.StatusOK)
					So(rec.Body.String(), ShouldContainSubstring, `"result":42`)
				})
			})

			Convey("And the token is wrong", func() {
				var buf bytes.Buffer
				_ = json.NewEncoder(&buf).Encode(body)
				req := httptest.NewRequest(http.MethodPost, "/oracle/callback", &buf)
				req.Header.Set("X-Oracle-Token", "wrong")
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, req)

				Convey("Then it is unauthorized", func() {
					So(rec.Code, ShouldEqual, http.StatusUnauthorized)
				})
			})

			Convey("And the delivery is a replay", func() {
				m.err = decrypt.ErrReplayDetected
				var buf bytes.Buffer
				_ = json.NewEncoder(&buf).Encode(body)
				req := httptest.NewRequest(http.MethodPost, "/oracle/callback", &buf)
				req.Header.Set("X-Oracle-Token", "secret-token")
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, req)

				Convey("Then it maps to conflict", func() {
					So(rec.Code, ShouldEqual, http.StatusConflict)
					So(rec.Body.String(), ShouldContainSubstring, "replay_detected")
				})
			})

			Convey("And the proof does not verify", func() {
				m.err = decrypt.ErrDecryptionFailed
				var buf bytes.Buffer
				_ = json.NewEncoder(&buf).Encode(body)
				req := httptest.NewRequest(http.MethodPost, "/oracle/callback", &buf)
				req.Header.Set("X-Oracle-Token", "secret-token")
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, req)

				Convey("Then it maps to unprocessable entity", func() {
					So(rec.Code, ShouldEqual, http.StatusUnprocessableEntity)
				})
			})
		})

		Convey("When POST /oracle/encrypt", func() {
			m.handle = fhe.HandleFromOpaque([]byte{0x0F})
			rec := doJSON(mux, http.MethodPost, "/oracle/encrypt", "", map[string]uint64{"value": 30})

			Convey("Then the sealed handle is returned base64-encoded", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, base64.StdEncoding.EncodeToString([]byte{0x0F}))
			})
		})
	})
}

func TestEventsEndpoint(t *testing.T) {
	Convey("Given the API server with a small event limit", t, func() {
		m := &mockService{events: []events.Event{
			{Seq: 0, Type: events.TypeBatchOpened},
			{Seq: 1, Type: events.TypeContributionSubmitted},
		}}
		mux := newTestMux(m, api.WithMaxEventLimit(10))

		Convey("When GET /events", func() {
			rec := doJSON(mux, http.MethodGet, "/events", "", nil)

			Convey("Then the events are returned with the default paging", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"batch_opened"`)
				So(m.lastFrom, ShouldEqual, 0)
			})
		})

		Convey("When GET /events with paging parameters", func() {
			rec := doJSON(mux, http.MethodGet, "/events?from=5&limit=2", "", nil)

			Convey("Then they are forwarded", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(m.lastFrom, ShouldEqual, 5)
				So(m.lastLimit, ShouldEqual, 2)
			})
		})

		Convey("When the limit exceeds the cap", func() {
			rec := doJSON(mux, http.MethodGet, "/events?limit=5000", "", nil)

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, "limit_exceeded")
			})
		})

		Convey("When the limit is not a number", func() {
			rec := doJSON(mux, http.MethodGet, "/events?limit=abc", "", nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
