// Package cooldown implements the per-actor, per-action-class rate limiter.
//
// Check and Record are split so callers can validate early and commit the
// timestamp only after every other guard has passed: a failing operation must
// leave the last-action time untouched, otherwise a rejected call would
// extend a legitimate actor's lockout.
package cooldown

import (
	"fmt"
	"sync"
	"time"
)

// Class partitions the limiter: each class keeps an independent timer per
// actor.
type Class string

const (
	// ClassSubmission rates contribution submissions.
	ClassSubmission Class = "submission"
	// ClassDecryptionRequest rates oracle decryption requests.
	ClassDecryptionRequest Class = "decryption_request"
)

type key struct {
	actor string
	class Class
}

// Guard tracks last-action timestamps. The cooldown interval is read through
// a function so the owner can retune it at runtime without re-wiring.
type Guard struct {
	mu       sync.Mutex
	last     map[key]time.Time
	interval func() time.Duration
}

// New creates a Guard reading the interval from the given source.
func New(interval func() time.Duration) *Guard {
	return &Guard{
		last:     make(map[key]time.Time),
		interval: interval,
	}
}

// Check fails with ErrCooldownActive if actor acted in the same class less
// than one interval before now. It never mutates state.
func (g *Guard) Check(actor string, class Class, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.check(actor, class, now)
}

// Record stores now as the actor's last-action time for the class.
func (g *Guard) Record(actor string, class Class, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[key{actor: actor, class: class}] = now
}

// CheckAndRecord atomically checks the interval and, only on success, records
// now as the new last-action time.
func (g *Guard) CheckAndRecord(actor string, class Class, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.check(actor, class, now); err != nil {
		return err
	}
	g.last[key{actor: actor, class: class}] = now
	return nil
}

// Remaining returns how long the actor must still wait in the class. Zero
// means the next action is admissible.
func (g *Guard) Remaining(actor string, class Class, now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.last[key{actor: actor, class: class}]
	if !ok {
		return 0
	}
	wait := g.interval() - now.Sub(last)
	if wait < 0 {
		return 0
	}
	return wait
}

func (g *Guard) check(actor string, class Class, now time.Time) error {
	last, ok := g.last[key{actor: actor, class: class}]
	if !ok {
		return nil
	}
	if wait := g.interval() - now.Sub(last); wait > 0 {
		return fmt.Errorf("%w: retry in %s", ErrCooldownActive, wait)
	}
	return nil
}
