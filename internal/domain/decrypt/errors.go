package decrypt

import "errors"

// Sentinel kinds for protocol errors. ErrReplayDetected and ErrStateMismatch
// are integrity violations: they are never corrected silently and callers log
// them apart from ordinary validation errors.
var (
	ErrUnknownRequest   = errors.New("unknown decryption request")
	ErrReplayDetected   = errors.New("callback replay detected")
	ErrStateMismatch    = errors.New("snapshot state mismatch")
	ErrDecryptionFailed = errors.New("decryption failed")
)
