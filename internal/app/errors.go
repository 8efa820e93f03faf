package service

import "errors"

// Sentinel kinds for service-level errors.
var (
	ErrNoEncryptor = errors.New("no provider-side encryption capability wired")
)
