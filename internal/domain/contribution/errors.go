package contribution

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrDuplicateContribution = errors.New("duplicate contribution id")
	ErrNotFound              = errors.New("contribution not found")
)
