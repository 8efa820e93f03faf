// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
//
// Every mutating operation is serialized through one writer lock so the
// ledger behaves as a single sequential state machine: a call either fully
// commits or leaves no trace. The one asynchronous boundary is the oracle
// handshake, and HandleDecryptionCallback re-enters through the same lock as
// an independent transaction.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patsmithk7/DAOSkillProof/internal/adapters/oracle"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/access"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/batch"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/contribution"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/cooldown"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/decrypt"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/events"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/fhe"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/model"
	"github.com/patsmithk7/DAOSkillProof/pkg/logger"
	"github.com/patsmithk7/DAOSkillProof/pkg/metrics"
)

// Encryptor is the optional provider-side sealing capability. The bundled
// simulator offers it; a production deployment encrypts client-side and
// leaves it nil.
type Encryptor interface {
	Encrypt(ctx context.Context, value uint64) (fhe.Handle, error)
}

// Service wires the ledger components behind one mutation lock.
type Service struct {
	mu sync.Mutex

	// Core components
	control  *access.Control
	guard    *cooldown.Guard
	batches  *batch.Ledger
	registry *contribution.Registry
	protocol *decrypt.Protocol
	events   *events.Log

	// External capabilities
	engine    fhe.Engine
	oracleCap fhe.Oracle
	verifier  fhe.Verifier
	encryptor Encryptor
	sim       *oracle.Simulator

	// Configuration
	owner           string
	providers       []string
	cooldownInitial time.Duration
	instanceID      string
	simLatencyMin   time.Duration
	simLatencyMax   time.Duration
	clock           func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOwner fixes the owner actor id.
func WithOwner(owner string) Option {
	return func(s *Service) {
		if owner != "" {
			s.owner = owner
		}
	}
}

// WithProviders grants the provider role to the given actors at startup.
func WithProviders(providers []string) Option {
	return func(s *Service) {
		s.providers = providers
	}
}

// WithCooldown sets the initial cooldown interval.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldownInitial = d
		}
	}
}

// WithInstanceID sets the deployment identity mixed into snapshot hashes.
func WithInstanceID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.instanceID = id
		}
	}
}

// WithClock injects the time source; tests use a fake clock so cooldown
// checks never sleep.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithCapabilities injects a real engine, oracle, and verifier. When unset,
// Start wires the in-process simulator.
func WithCapabilities(engine fhe.Engine, o fhe.Oracle, v fhe.Verifier) Option {
	return func(s *Service) {
		s.engine = engine
		s.oracleCap = o
		s.verifier = v
	}
}

// WithSimulatedCallbackLatency bounds the bundled simulator's callback delay.
func WithSimulatedCallbackLatency(min, max time.Duration) Option {
	return func(s *Service) {
		if min >= 0 && max >= min {
			s.simLatencyMin = min
			s.simLatencyMax = max
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		owner:           "owner",
		cooldownInitial: time.Minute,
		instanceID:      "skillproof-dev",
		simLatencyMin:   20 * time.Millisecond,
		simLatencyMax:   80 * time.Millisecond,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting skill-proof ledger service...")

	s.control = access.New(s.owner,
		access.WithProviders(s.providers),
		access.WithCooldown(s.cooldownInitial),
	)
	s.guard = cooldown.New(s.control.Cooldown)
	s.batches = batch.NewLedger()
	s.registry = contribution.NewRegistry()
	s.events = events.NewLog()

	if s.engine == nil || s.oracleCap == nil || s.verifier == nil {
		sim := oracle.NewSimulator(
			oracle.WithLatencyRange(s.simLatencyMin, s.simLatencyMax),
		)
		s.sim = sim
		s.engine = sim
		s.oracleCap = sim
		s.verifier = sim
		s.encryptor = sim
		s.logger.Info(ctx, "using in-process oracle simulator")
	}

	s.protocol = decrypt.NewProtocol(s.instanceID, s.oracleCap, s.verifier, s.batches, s.registry)

	if s.sim != nil {
		s.sim.SetCallback(func(ctx context.Context, requestID string, cleartext, proof []byte) {
			if _, err := s.HandleDecryptionCallback(ctx, requestID, cleartext, proof); err != nil {
				s.logger.Warn(ctx, "simulator callback rejected",
					logger.String("requestID", requestID),
					logger.Error(err),
				)
			}
		})
	}

	s.started = true
	s.logger.Info(ctx, "skill-proof ledger service started",
		logger.String("owner", s.owner),
		logger.Int("providers", s.control.ProviderCount()),
		logger.String("cooldown", s.control.Cooldown().String()),
	)

	return nil
}

// Stop gracefully shuts down the service. In-flight oracle callbacks are
// drained outside the writer lock so they can still complete.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	sim := s.sim
	log := s.events
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping skill-proof ledger service...")
	if sim != nil {
		sim.Wait()
	}
	if log != nil {
		log.Close()
	}
	s.logger.Info(context.Background(), "skill-proof ledger service stopped")
}

// AddProvider grants the provider role. Owner-only, idempotent.
func (s *Service) AddProvider(ctx context.Context, caller, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureActiveLocked(caller); err != nil {
		return err
	}
	changed, err := s.control.AddProvider(caller, actor)
	if err != nil {
		metrics.RecordAuthRejection("owner")
		return err
	}
	if changed {
		s.events.Append(events.Event{Type: events.TypeProviderAdded, At: s.clock(), Actor: actor})
		s.logger.Info(ctx, "provider added", logger.String("actor", actor))
	}
	return nil
}

// RemoveProvider revokes the provider role. Owner-only, idempotent.
func (s *Service) RemoveProvider(ctx context.Context, caller, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureActiveLocked(caller); err != nil {
		return err
	}
	changed, err := s.control.RemoveProvider(caller, actor)
	if err != nil {
		metrics.RecordAuthRejection("owner")
		return err
	}
	if changed {
		s.events.Append(events.Event{Type: events.TypeProviderRemoved, At: s.clock(), Actor: actor})
		s.logger.Info(ctx, "provider removed", logger.String("actor", actor))
	}
	return nil
}

// Pause sets the global pause flag.
func (s *Service) Pause(ctx context.Context, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.control.Pause(caller)
	if err != nil {
		metrics.RecordAuthRejection("owner")
		return err
	}
	if changed {
		s.events.Append(events.Event{Type: events.TypePaused, At: s.clock(), Actor: caller})
		s.logger.Warn(ctx, "system paused", logger.String("actor", caller))
	}
	return nil
}

// Unpause clears the global pause flag. Allowed while paused.
func (s *Service) Unpause(ctx context.Context, caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.control.Unpause(caller)
	if err != nil {
		metrics.RecordAuthRejection("owner")
		return err
	}
	if changed {
		s.events.Append(events.Event{Type: events.TypeUnpaused, At: s.clock(), Actor: caller})
		s.logger.Info(ctx, "system unpaused", logger.String("actor", caller))
	}
	return nil
}

// SetCooldown updates the minimum action interval. Zero is rejected.
func (s *Service) SetCooldown(ctx context.Context, caller string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureActiveLocked(caller); err != nil {
		return err
	}
	if err := s.control.SetCooldown(caller, d); err != nil {
		return err
	}
	s.events.Append(events.Event{
		Type:            events.TypeCooldownSet,
		At:              s.clock(),
		Actor:           caller,
		CooldownSeconds: int64(d / time.Second),
	})
	s.logger.Info(ctx, "cooldown updated", logger.String("interval", d.String()))
	return nil
}

// OpenBatch starts a new review round. Owner-only.
func (s *Service) OpenBatch(ctx context.Context, caller string) (model.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureActiveLocked(caller); err != nil {
		return model.Batch{}, err
	}
	if err := s.control.EnsureOwner(caller); err != nil {
		metrics.RecordAuthRejection("owner")
		return model.Batch{}, err
	}

	b := s.batches.Open(s.clock())
	metrics.RecordBatchOpened()
	metrics.UpdateOpenBatches(s.batches.OpenCount())
	s.events.Append(events.Event{Type: events.TypeBatchOpened, At: s.clock(), Actor: caller, BatchID: &b.ID})
	s.logger.Info(ctx, "batch opened", logger.Uint64("batchID", b.ID))
	return b, nil
}

// CloseBatch ends a review round. Owner-only; closing is final.
func (s *Service) CloseBatch(ctx context.Context, caller string, id uint64) (model.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureActiveLocked(caller); err != nil {
		return model.Batch{}, err
	}
	if err := s.control.EnsureOwner(caller); err != nil {
		metrics.RecordAuthRejection("owner")
		return model.Batch{}, err
	}

	b, err := s.batches.Close(id, s.clock())
	if err != nil {
		return model.Batch{}, err
	}
	metrics.RecordBatchClosed()
	metrics.UpdateOpenBatches(s.batches.OpenCount())
	s.events.Append(events.Event{Type: events.TypeBatchClosed, At: s.clock(), Actor: caller, BatchID: &b.ID})
	s.logger.Info(ctx, "batch closed", logger.Uint64("batchID", b.ID))
	return b, nil
}

// SubmitContribution registers one encrypted submission into an open batch.
// The caller must hold the provider role; the contribution id must be new.
// Every guard runs before any state is touched, so a failing submission
// leaves the registry and the cooldown timer exactly as they were.
func (s *Service) SubmitContribution(ctx context.Context, provider string, batchID uint64, contributionID string, skillHandle, contributionHandle fhe.Handle) (model.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	if err := s.control.EnsureProvider(provider); err != nil {
		metrics.RecordAuthRejection("provider")
		return model.Contribution{}, err
	}
	if err := s.control.EnsureActive(); err != nil {
		metrics.RecordPausedRejection()
		return model.Contribution{}, err
	}
	if err := s.guard.Check(provider, cooldown.ClassSubmission, now); err != nil {
		metrics.RecordCooldownRejection(string(cooldown.ClassSubmission))
		return model.Contribution{}, err
	}
	if err := s.batches.EnsureOpen(batchID); err != nil {
		return model.Contribution{}, err
	}
	if s.registry.Exists(contributionID) {
		metrics.RecordContributionDuplicate()
		s.logger.Warn(ctx, "duplicate contribution rejected",
			logger.Integrity("duplicate_contribution"),
			logger.String("contributionID", contributionID),
			logger.String("provider", provider),
		)
		return model.Contribution{}, contribution.ErrDuplicateContribution
	}

	// The total is computed by the engine; the ledger never sees plaintext.
	totalHandle, err := s.engine.Add(ctx, skillHandle, contributionHandle)
	if err != nil {
		return model.Contribution{}, err
	}

	c := model.Contribution{
		ID:                 contributionID,
		BatchID:            batchID,
		Provider:           provider,
		SkillHandle:        skillHandle,
		ContributionHandle: contributionHandle,
		TotalHandle:        totalHandle,
		SubmittedAt:        now,
	}
	if err := s.registry.Put(c); err != nil {
		return model.Contribution{}, err
	}
	s.guard.Record(provider, cooldown.ClassSubmission, now)

	metrics.RecordContributionSubmitted()
	metrics.UpdateTotalContributions(s.registry.Count())
	s.events.Append(events.Event{
		Type:           events.TypeContributionSubmitted,
		At:             now,
		Actor:          provider,
		BatchID:        &batchID,
		ContributionID: contributionID,
	})
	s.logger.Info(ctx, "contribution submitted",
		logger.String("contributionID", contributionID),
		logger.Uint64("batchID", batchID),
		logger.String("provider", provider),
	)
	return c, nil
}

// RequestBatchDecryption snapshots a closed batch's aggregate and dispatches
// it to the oracle. Owner-only, cooldown-checked under the decryption class.
func (s *Service) RequestBatchDecryption(ctx context.Context, caller string, batchID uint64) (model.DecryptionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	if err := s.control.EnsureOwner(caller); err != nil {
		metrics.RecordAuthRejection("owner")
		return model.DecryptionContext{}, err
	}
	if err := s.control.EnsureActive(); err != nil {
		metrics.RecordPausedRejection()
		return model.DecryptionContext{}, err
	}
	if err := s.guard.Check(caller, cooldown.ClassDecryptionRequest, now); err != nil {
		metrics.RecordCooldownRejection(string(cooldown.ClassDecryptionRequest))
		return model.DecryptionContext{}, err
	}

	dc, err := s.protocol.Request(ctx, batchID, now)
	if err != nil {
		return model.DecryptionContext{}, err
	}
	s.guard.Record(caller, cooldown.ClassDecryptionRequest, now)

	metrics.RecordDecryptionRequested()
	metrics.UpdatePendingContexts(s.protocol.PendingCount())
	s.events.Append(events.Event{
		Type:      events.TypeDecryptionRequested,
		At:        now,
		Actor:     caller,
		BatchID:   &dc.BatchID,
		RequestID: dc.RequestID,
	})
	s.logger.Info(ctx, "decryption requested",
		logger.String("requestID", dc.RequestID),
		logger.Uint64("batchID", dc.BatchID),
	)
	return dc, nil
}

// HandleDecryptionCallback is the oracle's entry point. It is an independent
// transaction: it takes the same writer lock as every other mutation and
// trusts nothing about the gap since the request except what the snapshot
// hash re-derivation enforces.
func (s *Service) HandleDecryptionCallback(ctx context.Context, requestID string, cleartext, proof []byte) (model.DecryptionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	dc, err := s.protocol.HandleCallback(ctx, requestID, cleartext, proof, now)
	if err != nil {
		s.recordCallbackRejection(ctx, requestID, err)
		return model.DecryptionContext{}, err
	}

	metrics.RecordCallbackCompleted()
	metrics.UpdatePendingContexts(s.protocol.PendingCount())
	result := dc.Result
	s.events.Append(events.Event{
		Type:      events.TypeDecryptionCompleted,
		At:        now,
		BatchID:   &dc.BatchID,
		RequestID: dc.RequestID,
		Result:    &result,
	})
	s.logger.Info(ctx, "decryption completed",
		logger.String("requestID", dc.RequestID),
		logger.Uint64("batchID", dc.BatchID),
		logger.Uint64("result", dc.Result),
	)
	return dc, nil
}

// EncryptScore seals a plaintext score through the provider-side capability.
// Only available when the bundled simulator is wired.
func (s *Service) EncryptScore(ctx context.Context, value uint64) (fhe.Handle, error) {
	if s.encryptor == nil {
		return fhe.Handle{}, ErrNoEncryptor
	}
	return s.encryptor.Encrypt(ctx, value)
}

// GetBatch returns a batch by id.
func (s *Service) GetBatch(_ context.Context, id uint64) (model.Batch, error) {
	return s.batches.Get(id)
}

// GetContribution returns a contribution by id; handles and metadata only,
// never cleartext.
func (s *Service) GetContribution(_ context.Context, id string) (model.Contribution, error) {
	return s.registry.Get(id)
}

// GetDecryptionContext returns a decryption context by request id.
func (s *Service) GetDecryptionContext(_ context.Context, requestID string) (model.DecryptionContext, error) {
	return s.protocol.Get(requestID)
}

// ListEvents returns up to limit events with sequence >= from.
func (s *Service) ListEvents(_ context.Context, from uint64, limit int) []events.Event {
	return s.events.List(from, limit)
}

// IsProvider reports whether actor currently holds the provider role.
func (s *Service) IsProvider(actor string) bool {
	return s.control.IsProvider(actor)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	stats["paused"] = s.control.Paused()
	stats["providers"] = s.control.ProviderCount()
	stats["cooldownSeconds"] = int64(s.control.Cooldown() / time.Second)
	stats["batches"] = s.batches.Count()
	stats["openBatches"] = s.batches.OpenCount()
	stats["contributions"] = s.registry.Count()
	stats["pendingDecryptions"] = s.protocol.PendingCount()
	stats["events"] = s.events.Len()

	metrics.UpdateOpenBatches(s.batches.OpenCount())
	metrics.UpdateTotalContributions(s.registry.Count())
	metrics.UpdatePendingContexts(s.protocol.PendingCount())
	return stats
}

// ensureActiveLocked rejects privileged mutations while paused, except those
// the access component itself exempts (Unpause).
func (s *Service) ensureActiveLocked(string) error {
	if err := s.control.EnsureActive(); err != nil {
		metrics.RecordPausedRejection()
		return err
	}
	return nil
}

// recordCallbackRejection separates integrity violations from ordinary
// validation failures in both logs and metrics.
func (s *Service) recordCallbackRejection(ctx context.Context, requestID string, err error) {
	switch {
	case errors.Is(err, decrypt.ErrReplayDetected):
		metrics.RecordCallbackReplayed()
		s.logger.Warn(ctx, "callback replay rejected",
			logger.Integrity("replay_detected"),
			logger.String("requestID", requestID),
		)
	case errors.Is(err, decrypt.ErrStateMismatch):
		metrics.RecordCallbackMismatched()
		s.logger.Warn(ctx, "callback state mismatch rejected",
			logger.Integrity("state_mismatch"),
			logger.String("requestID", requestID),
		)
	case errors.Is(err, decrypt.ErrDecryptionFailed):
		metrics.RecordCallbackFailed()
		s.logger.Warn(ctx, "callback verification failed",
			logger.String("requestID", requestID),
			logger.Error(err),
		)
	default:
		s.logger.Debug(ctx, "callback rejected",
			logger.String("requestID", requestID),
			logger.Error(err),
		)
	}
}
