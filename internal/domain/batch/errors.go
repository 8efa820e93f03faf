package batch

import "errors"

// Sentinel kinds for batch lifecycle errors.
var (
	ErrInvalidBatch  = errors.New("invalid batch")
	ErrAlreadyClosed = errors.New("batch already closed")
	ErrBatchClosed   = errors.New("batch closed to contributions")
)
