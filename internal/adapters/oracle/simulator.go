// Package oracle provides an in-process stand-in for the external encryption
// engine, decryption oracle, and proof verifier.
//
// Values are sealed behind random handles in a private table, additions
// happen on the sealed values, and callbacks are delivered asynchronously
// with a SHAKE-derived proof tag the bundled verifier checks. The ledger only
// ever sees the capability interfaces, so a production engine can replace
// this adapter without touching the core.
package oracle

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/patsmithk7/DAOSkillProof/internal/domain/fhe"
)

const (
	handleLen = 16
	proofLen  = 32
	proofTag  = "skillproof/oracle-proof/v1"

	defaultMinLatency = 20 * time.Millisecond
	defaultMaxLatency = 80 * time.Millisecond
)

// CallbackFunc receives the oracle's answer for a previously dispatched
// request.
type CallbackFunc func(ctx context.Context, requestID string, cleartext, proof []byte)

// Simulator implements fhe.Engine, fhe.Oracle, and fhe.Verifier.
type Simulator struct {
	mu     sync.Mutex
	sealed map[string]uint64
	secret []byte

	minLatency time.Duration
	maxLatency time.Duration

	callback CallbackFunc
	wg       sync.WaitGroup
}

// Option applies a configuration option to the Simulator.
type Option func(*Simulator)

// WithLatencyRange bounds the simulated callback delay. Zero min and max
// deliver as fast as the scheduler allows.
func WithLatencyRange(min, max time.Duration) Option {
	return func(s *Simulator) {
		if min >= 0 && max >= min {
			s.minLatency = min
			s.maxLatency = max
		}
	}
}

// WithSecret fixes the proof-tag secret; useful for deterministic tests.
func WithSecret(secret []byte) Option {
	return func(s *Simulator) {
		if len(secret) > 0 {
			s.secret = secret
		}
	}
}

// NewSimulator creates a Simulator with a random proof secret.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		sealed:     make(map[string]uint64),
		secret:     make([]byte, 32),
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
	}
	_, _ = rand.Read(s.secret)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCallback wires the delivery target for future callbacks. Must be called
// before the first RequestDecryption.
func (s *Simulator) SetCallback(fn CallbackFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = fn
}

// Encrypt seals a plaintext score behind a fresh random handle. This is the
// provider-side capability; the ledger core never calls it.
func (s *Simulator) Encrypt(_ context.Context, value uint64) (fhe.Handle, error) {
	raw := make([]byte, handleLen)
	if _, err := rand.Read(raw); err != nil {
		return fhe.Handle{}, fmt.Errorf("handle nonce: %w", err)
	}
	s.mu.Lock()
	s.sealed[hex.EncodeToString(raw)] = value
	s.mu.Unlock()
	return fhe.HandleFromOpaque(raw), nil
}

// Add implements fhe.Engine: the sealed values are summed and the result is
// sealed behind a new handle. Operand handles stay valid.
func (s *Simulator) Add(ctx context.Context, a, b fhe.Handle) (fhe.Handle, error) {
	s.mu.Lock()
	va, okA := s.sealed[hex.EncodeToString(a.Opaque())]
	vb, okB := s.sealed[hex.EncodeToString(b.Opaque())]
	s.mu.Unlock()
	if !okA || !okB {
		return fhe.Handle{}, fhe.ErrUnknownHandle
	}
	return s.Encrypt(ctx, va+vb)
}

// RequestDecryption implements fhe.Oracle. The answer is delivered later on
// the configured callback with a proof tag binding (requestID, cleartext).
func (s *Simulator) RequestDecryption(_ context.Context, handles []fhe.Handle) (string, error) {
	s.mu.Lock()
	cb := s.callback
	var sum uint64
	for _, h := range handles {
		v, ok := s.sealed[hex.EncodeToString(h.Opaque())]
		if !ok {
			s.mu.Unlock()
			return "", fhe.ErrUnknownHandle
		}
		sum += v
	}
	s.mu.Unlock()

	if cb == nil {
		return "", fmt.Errorf("oracle callback not wired")
	}

	requestID := uuid.NewString()
	cleartext := make([]byte, 8)
	binary.BigEndian.PutUint64(cleartext, sum)
	proof := s.proveTag(requestID, cleartext)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		time.Sleep(s.pickLatency())
		cb(context.Background(), requestID, cleartext, proof)
	}()

	return requestID, nil
}

// Verify implements fhe.Verifier by recomputing the proof tag.
func (s *Simulator) Verify(_ context.Context, requestID string, cleartext, proof []byte) error {
	want := s.proveTag(requestID, cleartext)
	if !hmac.Equal(want, proof) {
		return fhe.ErrBadProof
	}
	return nil
}

// Wait blocks until every in-flight callback has been delivered.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

func (s *Simulator) proveTag(requestID string, cleartext []byte) []byte {
	h := sha3.NewShake256()
	_, _ = h.Write([]byte(proofTag))
	_, _ = h.Write(s.secret)
	_, _ = h.Write([]byte(requestID))
	_, _ = h.Write(cleartext)
	out := make([]byte, proofLen)
	_, _ = h.Read(out)
	return out
}

func (s *Simulator) pickLatency() time.Duration {
	span := s.maxLatency - s.minLatency
	if span <= 0 {
		return s.minLatency
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(span)))
	if err != nil {
		return s.minLatency
	}
	return s.minLatency + time.Duration(n.Int64())
}
