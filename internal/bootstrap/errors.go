package bootstrap

import "errors"

// Domain-specific errors for launch argument parsing.
var (
	// ErrMissingArgument is returned when a required value is absent.
	ErrMissingArgument = errors.New("bootstrap: missing argument")

	// ErrInvalidArgument is returned when a value is present but malformed.
	ErrInvalidArgument = errors.New("bootstrap: invalid argument")
)
