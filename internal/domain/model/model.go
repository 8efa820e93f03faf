// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/patsmithk7/DAOSkillProof/internal/domain/fhe"
)

// BatchStatus is the lifecycle state of a review batch.
type BatchStatus string

const (
	// BatchOpen accepts contributions.
	BatchOpen BatchStatus = "open"
	// BatchClosed is terminal: the review window ended and the batch is
	// eligible for aggregate decryption. A closed batch never reopens.
	BatchClosed BatchStatus = "closed"
)

// Batch identifies one review round. Ids are sequential and never reused;
// batches are never deleted.
type Batch struct {
	ID       uint64
	Status   BatchStatus
	OpenedAt time.Time
	ClosedAt time.Time // zero until closed
}

// Contribution is one encrypted submission. It is written exactly once and
// never mutated or deleted afterward; that immutability is the idempotency
// guarantee.
type Contribution struct {
	// ID is the caller-supplied unique key, e.g. a content hash.
	ID       string
	BatchID  uint64
	Provider string

	SkillHandle        fhe.Handle
	ContributionHandle fhe.Handle
	// TotalHandle = skill + contribution via the engine's additive capability.
	TotalHandle fhe.Handle

	SubmittedAt time.Time
}

// DecryptionContext tracks one outstanding oracle request. It is created at
// request time and mutated exactly once, by a matching verified callback,
// flipping Processed to true. Rejected or never-answered contexts stay
// unprocessed forever.
type DecryptionContext struct {
	RequestID string
	BatchID   uint64
	// SnapshotHash digests the exact handle set dispatched to the oracle
	// plus the instance identity.
	SnapshotHash []byte
	Processed    bool

	RequestedAt time.Time
	CompletedAt time.Time // zero until processed
	Result      uint64    // decoded aggregate, set when processed
}
