package cooldown

import "errors"

// Sentinel kinds for rate-limiter errors.
var (
	ErrCooldownActive = errors.New("cooldown active")
)
