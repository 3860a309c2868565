package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrSerializationFailure indicates a transaction kept conflicting with
	// concurrent commits after the bounded retries were exhausted. The whole
	// operation can be retried by the caller.
	ErrSerializationFailure = errors.New("repository: transaction conflict")
)
