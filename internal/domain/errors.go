package domain

import "errors"

var (
	ErrMalformedTime       = errors.New("malformed time")
	ErrServiceNotFound     = errors.New("service not found")
	ErrInvalidWindow       = errors.New("invalid window: start must be before end")
	ErrSlotUnavailable     = errors.New("slot unavailable")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different parameters")
	ErrWindowNotFound      = errors.New("weekly window not configured")

	// ErrAdmissionContention means the admission lock could not be taken in time.
	// The whole admission may be retried by the caller.
	ErrAdmissionContention = errors.New("admission contention")
)
