// Package contribution implements the write-once store of encrypted
// submissions.
//
// A contribution id is claimed exactly once; re-submitting under the same id
// is the replay a malicious or buggy provider would use to inflate totals,
// so Put is the at-most-once gate for the whole system.
package contribution

import (
	"sync"

	"github.com/patsmithk7/DAOSkillProof/internal/domain/fhe"
	"github.com/patsmithk7/DAOSkillProof/internal/domain/model"
)

// Registry stores immutable contribution records keyed by their
// caller-supplied id, with per-batch insertion order preserved so the
// batch aggregate is a deterministic function of stored state.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]model.Contribution
	byBatch map[uint64][]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]model.Contribution),
		byBatch: make(map[uint64][]string),
	}
}

// Put stores a new contribution record. The id must be unclaimed; a second
// Put under the same id fails with ErrDuplicateContribution and changes
// nothing. Records are never updated or deleted afterwards.
func (r *Registry) Put(c model.Contribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[c.ID]; exists {
		return ErrDuplicateContribution
	}
	r.byID[c.ID] = c
	r.byBatch[c.BatchID] = append(r.byBatch[c.BatchID], c.ID)
	return nil
}

// Exists reports whether the contribution id is already claimed.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Get returns the contribution or ErrNotFound.
func (r *Registry) Get(id string) (model.Contribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return model.Contribution{}, ErrNotFound
	}
	return c, nil
}

// TotalHandlesByBatch returns the total-score handle of every contribution in
// the batch, in submission order. This ordered set is the aggregate input for
// decryption: recomputing it at any instant over unchanged state yields a
// byte-identical sequence.
func (r *Registry) TotalHandlesByBatch(batchID uint64) []fhe.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byBatch[batchID]
	handles := make([]fhe.Handle, 0, len(ids))
	for _, id := range ids {
		handles = append(handles, r.byID[id].TotalHandle)
	}
	return handles
}

// CountByBatch returns the number of contributions stored for the batch.
func (r *Registry) CountByBatch(batchID uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byBatch[batchID])
}

// Count returns the total number of stored contributions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
