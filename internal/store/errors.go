package store

import "errors"

var (
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")

	// ErrContention is returned when a lock could not be acquired before the
	// store's lock timeout, or the transaction lost a deadlock or serialization race.
	ErrContention = errors.New("lock contention")
)
