// Package fhe declares the capability boundary to the external homomorphic
// encryption engine and its decryption oracle.
//
// The ledger never inspects an encrypted score. It holds opaque handles,
// combines them through the engine's additive capability, and ships them to
// the oracle for out-of-band decryption. Nothing in this package (or its
// consumers) may assume plaintext semantics for a handle.
package fhe

import (
	"context"
	"encoding/hex"
)

// Handle is an opaque reference to an encrypted value: transmittable and
// combinable, never inspectable. It deliberately carries no arithmetic and no
// equality beyond what the engine capability provides.
type Handle struct {
	b []byte
}

// HandleFromOpaque wraps the transmissible byte form produced by the engine.
func HandleFromOpaque(b []byte) Handle {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Handle{b: cp}
}

// Opaque returns the transmissible byte form of the handle, suitable for
// dispatch to the oracle and for inclusion in snapshot digests.
func (h Handle) Opaque() []byte {
	cp := make([]byte, len(h.b))
	copy(cp, h.b)
	return cp
}

// IsZero reports whether the handle is empty.
func (h Handle) IsZero() bool { return len(h.b) == 0 }

// String renders a short hex prefix for logs. Full bytes are never logged.
func (h Handle) String() string {
	const prefixLen = 8
	if len(h.b) <= prefixLen {
		return hex.EncodeToString(h.b)
	}
	return hex.EncodeToString(h.b[:prefixLen]) + "…"
}

// Engine is the additive homomorphic capability consumed by the ledger.
type Engine interface {
	// Add combines two encrypted values into their encrypted sum without
	// decrypting either operand.
	Add(ctx context.Context, a, b Handle) (Handle, error)
}

// Oracle is the external decryption service. RequestDecryption is
// fire-and-forget: the oracle answers later through the callback entry point
// with the cleartext and a verifiable proof.
type Oracle interface {
	RequestDecryption(ctx context.Context, handles []Handle) (requestID string, err error)
}

// Verifier checks the proof attached to an oracle callback. A nil return
// means the proof binds (requestID, cleartext); any error means it does not.
type Verifier interface {
	Verify(ctx context.Context, requestID string, cleartext, proof []byte) error
}
