package store

import "errors"

var (
	// ErrPersistence wraps storage-level failures (open, exec, scan).
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidArgument marks caller errors such as an empty agent
	// name or a non-positive limit.
	ErrInvalidArgument = errors.New("invalid argument")
)
