// Package batch implements the review-batch lifecycle state machine.
//
// The only transition is Open -> Closed and it is terminal: closing means the
// review window ended. Ids are sequential, assigned at creation, and never
// reused; batches are never deleted.
package batch

import (
	"sync"
	"time"

	"github.com/patsmithk7/DAOSkillProof/internal/domain/model"
)

// Ledger is the batch registry.
type Ledger struct {
	mu      sync.RWMutex
	batches map[uint64]model.Batch
	nextID  uint64
}

// NewLedger creates an empty Ledger. The first batch gets id 0.
func NewLedger() *Ledger {
	return &Ledger{
		batches: make(map[uint64]model.Batch),
	}
}

// Open allocates the next sequential id and creates the batch in Open state.
func (l *Ledger) Open(now time.Time) model.Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := model.Batch{
		ID:       l.nextID,
		Status:   model.BatchOpen,
		OpenedAt: now,
	}
	l.nextID++
	l.batches[b.ID] = b
	return b
}

// Close transitions the batch to Closed. Unknown ids fail with
// ErrInvalidBatch; anything not currently Open fails with ErrAlreadyClosed.
func (l *Ledger) Close(id uint64, now time.Time) (model.Batch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.batches[id]
	if !ok {
		return model.Batch{}, ErrInvalidBatch
	}
	if b.Status != model.BatchOpen {
		return model.Batch{}, ErrAlreadyClosed
	}
	b.Status = model.BatchClosed
	b.ClosedAt = now
	l.batches[id] = b
	return b, nil
}

// Get returns the batch or ErrInvalidBatch.
func (l *Ledger) Get(id uint64) (model.Batch, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.batches[id]
	if !ok {
		return model.Batch{}, ErrInvalidBatch
	}
	return b, nil
}

// EnsureOpen fails with ErrInvalidBatch for unknown ids and ErrBatchClosed
// for batches whose review window already ended.
func (l *Ledger) EnsureOpen(id uint64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.batches[id]
	if !ok {
		return ErrInvalidBatch
	}
	if b.Status != model.BatchOpen {
		return ErrBatchClosed
	}
	return nil
}

// EnsureClosed fails with ErrInvalidBatch unless the batch exists and its
// review window ended. Decryption is only meaningful over a closed,
// no-longer-mutable batch, so a still-open batch is an invalid target too.
func (l *Ledger) EnsureClosed(id uint64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.batches[id]
	if !ok {
		return ErrInvalidBatch
	}
	if b.Status != model.BatchClosed {
		return ErrInvalidBatch
	}
	return nil
}

// Count returns the total number of batches ever opened.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.batches)
}

// OpenCount returns the number of batches currently accepting contributions.
func (l *Ledger) OpenCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, b := range l.batches {
		if b.Status == model.BatchOpen {
			n++
		}
	}
	return n
}
