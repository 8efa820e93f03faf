package access

import "errors"

// Sentinel kinds for authorization and configuration errors.
var (
	ErrNotOwner        = errors.New("caller is not the owner")
	ErrNotProvider     = errors.New("caller is not an authorized provider")
	ErrSystemPaused    = errors.New("system is paused")
	ErrInvalidArgument = errors.New("invalid argument")
)
