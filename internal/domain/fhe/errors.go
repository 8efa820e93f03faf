package fhe

import "errors"

// Sentinel kinds for engine capability errors.
var (
	ErrUnknownHandle = errors.New("unknown encrypted value handle")
	ErrBadProof      = errors.New("proof verification failed")
)
