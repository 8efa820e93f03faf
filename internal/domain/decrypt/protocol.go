// Package decrypt orchestrates the request -> external-oracle -> callback
// handshake.
//
// A request makes an irrevocable commitment to "what is being decrypted": the
// snapshot hash over the exact ordered handle set sent to the oracle. The
// callback may arrive an unbounded time later from an untrusted-until-verified
// caller, so it is a separate entry point that re-derives the same hash from
// live state and rejects anything that no longer corresponds bit for bit.
package decrypt

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/patsmithk7/DAOSkillProof/internal/domain/fhe"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/model"
)

// cleartextLen is the expected callback payload size: one big-endian uint64
// aggregate score.
const cleartextLen = 8

// AggregateSource supplies the deterministic ordered handle set that
// constitutes a batch's current aggregate.
type AggregateSource interface {
	TotalHandlesByBatch(batchID uint64) []fhe.Handle
}

// BatchSource answers whether a batch is a valid decryption target.
type BatchSource interface {
	// EnsureClosed fails unless the batch exists and its review window ended.
	EnsureClosed(id uint64) error
}

// Protocol owns the decryption context table and drives both halves of the
// handshake.
type Protocol struct {
	mu       sync.RWMutex
	contexts map[string]model.DecryptionContext

	instanceID string
	oracle     fhe.Oracle
	verifier   fhe.Verifier
	batches    BatchSource
	aggregate  AggregateSource
}

// NewProtocol wires the protocol to its collaborators.
func NewProtocol(instanceID string, oracle fhe.Oracle, verifier fhe.Verifier, batches BatchSource, aggregate AggregateSource) *Protocol {
	return &Protocol{
		contexts:   make(map[string]model.DecryptionContext),
		instanceID: instanceID,
		oracle:     oracle,
		verifier:   verifier,
		batches:    batches,
		aggregate:  aggregate,
	}
}

// Request snapshots the batch's aggregate handle set, dispatches it to the
// oracle, and records the pending context. The batch must exist and be
// closed: decrypting a still-open, still-mutable batch is meaningless.
func (p *Protocol) Request(ctx context.Context, batchID uint64, now time.Time) (model.DecryptionContext, error) {
	if err := p.batches.EnsureClosed(batchID); err != nil {
		return model.DecryptionContext{}, err
	}

	handles := p.aggregate.TotalHandlesByBatch(batchID)
	hash := SnapshotHash(p.instanceID, batchID, handles)

	requestID, err := p.oracle.RequestDecryption(ctx, handles)
	if err != nil {
		return model.DecryptionContext{}, fmt.Errorf("oracle dispatch: %w", err)
	}

	dc := model.DecryptionContext{
		RequestID:    requestID,
		BatchID:      batchID,
		SnapshotHash: hash,
		RequestedAt:  now,
	}

	p.mu.Lock()
	p.contexts[requestID] = dc
	p.mu.Unlock()

	return dc, nil
}

// HandleCallback is the oracle's entry point. It accepts a result only when
// the context is unprocessed, the cleartext has the expected shape, the live
// state still hashes to the committed snapshot, and the proof verifies. On
// success the context is marked processed exactly once; every rejection
// leaves it untouched so a fresh request can still be issued for the batch.
func (p *Protocol) HandleCallback(ctx context.Context, requestID string, cleartext, proof []byte, now time.Time) (model.DecryptionContext, error) {
	p.mu.RLock()
	dc, ok := p.contexts[requestID]
	p.mu.RUnlock()
	if !ok {
		return model.DecryptionContext{}, ErrUnknownRequest
	}
	if dc.Processed {
		return model.DecryptionContext{}, ErrReplayDetected
	}

	if len(cleartext) != cleartextLen {
		return model.DecryptionContext{}, fmt.Errorf("%w: cleartext length %d, want %d", ErrDecryptionFailed, len(cleartext), cleartextLen)
	}

	// Re-derive the aggregate from current stored state. Any drift between
	// request and callback, whatever its cause, must reject the result.
	live := SnapshotHash(p.instanceID, dc.BatchID, p.aggregate.TotalHandlesByBatch(dc.BatchID))
	if !bytes.Equal(live, dc.SnapshotHash) {
		return model.DecryptionContext{}, ErrStateMismatch
	}

	if err := p.verify(ctx, requestID, cleartext, proof); err != nil {
		return model.DecryptionContext{}, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}

	dc.Processed = true
	dc.CompletedAt = now
	dc.Result = binary.BigEndian.Uint64(cleartext)

	p.mu.Lock()
	p.contexts[requestID] = dc
	p.mu.Unlock()

	return dc, nil
}

// verify normalizes every verifier failure mode, panics included, into a
// plain error so a hostile proof cannot take down the callback path.
func (p *Protocol) verify(ctx context.Context, requestID string, cleartext, proof []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("verifier panic: %v", r)
		}
	}()
	return p.verifier.Verify(ctx, requestID, cleartext, proof)
}

// Get returns the context for a request id or ErrUnknownRequest.
func (p *Protocol) Get(requestID string) (model.DecryptionContext, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	dc, ok := p.contexts[requestID]
	if !ok {
		return model.DecryptionContext{}, ErrUnknownRequest
	}
	return dc, nil
}

// PendingCount returns the number of contexts still awaiting a verified
// callback. Stale, never-answered contexts stay here forever; they are dead
// weight, not a correctness hazard.
func (p *Protocol) PendingCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, dc := range p.contexts {
		if !dc.Processed {
			n++
		}
	}
	return n
}

// Count returns the total number of contexts ever created.
func (p *Protocol) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.contexts)
}
