// Package access keeps the role and pause bookkeeping every privileged
// operation is gated on: a single fixed owner, a mutable provider set, a
// global pause flag, and the configured cooldown interval.
package access

import (
	"sync"
	"time"
)

// Control owns the role/flag state. It is constructed once at system
// initialization and mutated only through its own operations.
type Control struct {
	mu        sync.RWMutex
	owner     string
	providers map[string]struct{}
	paused    bool
	cooldown  time.Duration
}

// Option applies a configuration option to the Control.
type Option func(*Control)

// WithProviders grants the provider role to the given actors at construction.
func WithProviders(actors []string) Option {
	return func(c *Control) {
		for _, a := range actors {
			if a != "" {
				c.providers[a] = struct{}{}
			}
		}
	}
}

// WithCooldown sets the initial cooldown interval.
func WithCooldown(d time.Duration) Option {
	return func(c *Control) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// New creates a Control with the fixed owner. The owner cannot be changed
// afterwards.
func New(owner string, opts ...Option) *Control {
	c := &Control{
		owner:     owner,
		providers: make(map[string]struct{}),
		cooldown:  time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddProvider grants the provider role to actor. Granting an existing
// provider is a no-op success; the returned bool reports whether the set
// changed.
func (c *Control) AddProvider(caller, actor string) (bool, error) {
	if err := c.EnsureOwner(caller); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.providers[actor]; ok {
		return false, nil
	}
	c.providers[actor] = struct{}{}
	return true, nil
}

// RemoveProvider revokes the provider role from actor. Removing an unknown
// actor is a no-op success.
func (c *Control) RemoveProvider(caller, actor string) (bool, error) {
	if err := c.EnsureOwner(caller); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.providers[actor]; !ok {
		return false, nil
	}
	delete(c.providers, actor)
	return true, nil
}

// Pause sets the global pause flag. While paused every state-mutating
// operation in the system fails except Unpause.
func (c *Control) Pause(caller string) (bool, error) {
	if err := c.EnsureOwner(caller); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return false, nil
	}
	c.paused = true
	return true, nil
}

// Unpause clears the global pause flag. It is the one privileged mutation
// allowed while paused.
func (c *Control) Unpause(caller string) (bool, error) {
	if err := c.EnsureOwner(caller); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return false, nil
	}
	c.paused = false
	return true, nil
}

// SetCooldown updates the minimum interval between same-class actions.
// A zero or negative value would defeat rate limiting and is rejected.
func (c *Control) SetCooldown(caller string, d time.Duration) error {
	if err := c.EnsureOwner(caller); err != nil {
		return err
	}
	if d <= 0 {
		return ErrInvalidArgument
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cooldown = d
	return nil
}

// EnsureOwner fails with ErrNotOwner unless actor holds the owner role.
func (c *Control) EnsureOwner(actor string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if actor != c.owner {
		return ErrNotOwner
	}
	return nil
}

// EnsureProvider fails with ErrNotProvider unless actor holds the provider role.
func (c *Control) EnsureProvider(actor string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.providers[actor]; !ok {
		return ErrNotProvider
	}
	return nil
}

// EnsureActive fails with ErrSystemPaused while the pause flag is set.
func (c *Control) EnsureActive() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.paused {
		return ErrSystemPaused
	}
	return nil
}

// Owner returns the fixed owner id.
func (c *Control) Owner() string {
	return c.owner
}

// IsProvider reports whether actor holds the provider role.
func (c *Control) IsProvider(actor string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.providers[actor]
	return ok
}

// Paused reports the pause flag.
func (c *Control) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Cooldown returns the configured minimum interval.
func (c *Control) Cooldown() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cooldown
}

// ProviderCount returns the current size of the provider set.
func (c *Control) ProviderCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.providers)
}
