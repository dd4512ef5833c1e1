package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reservo/internal/domain"
	"reservo/internal/service/reservations"
)

// toStatus maps a service error onto a gRPC status and logs it at a level
// matching who is at fault. attrs are appended to the log record.
func toStatus(log *slog.Logger, op string, err error, attrs ...any) error {
	args := append([]any{slog.Any("err", err)}, attrs...)

	var vErr *reservations.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, domain.ErrMalformedTime):
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, "times must be HH:MM")
	case errors.Is(err, domain.ErrInvalidWindow):
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, "start must be before end")

	case errors.Is(err, domain.ErrServiceNotFound):
		log.Info(op+" service not found", args...)
		return status.Error(codes.NotFound, "service not found")
	case errors.Is(err, domain.ErrReservationNotFound):
		log.Info(op+" reservation not found", args...)
		return status.Error(codes.NotFound, "reservation not found")
	case errors.Is(err, domain.ErrWindowNotFound):
		log.Info(op+" window not found", args...)
		return status.Error(codes.NotFound, "no working hours configured for that day")

	case errors.Is(err, domain.ErrSlotUnavailable):
		log.Info(op+" conflict", args...)
		return status.Error(codes.FailedPrecondition, "That time is already booked. Pick a different slot.")
	case errors.Is(err, domain.ErrIdempotencyConflict):
		log.Info(op+" idempotency conflict", args...)
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different reservation. Try again.")
	case errors.Is(err, domain.ErrInvalidTransition):
		log.Info(op+" rejected", args...)
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, domain.ErrNotAuthorized):
		log.Info(op+" not authorized", args...)
		return status.Error(codes.PermissionDenied, "reservation belongs to someone else")
	case errors.Is(err, domain.ErrForbidden):
		log.Info(op+" forbidden", args...)
		return status.Error(codes.PermissionDenied, "your role may not make that change")

	case errors.Is(err, domain.ErrAdmissionContention):
		log.Warn(op+" contention", args...)
		return status.Error(codes.Aborted, "The calendar is busy. Retry the request.")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(op+" timed out", args...)
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		log.Info(op+" canceled", args...)
		return status.Error(codes.Canceled, "request canceled")
	}

	log.Error(op+" failed", args...)
	return status.Error(codes.Internal, "internal error")
}
