package reservations

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"reservo/internal/domain"
	"reservo/internal/store"
)

type TransitionInput struct {
	ReservationID uuid.UUID
	Actor         domain.Actor
	Status        domain.Status
}

// Transition moves a reservation to a new status on behalf of actor. The window
// never changes, so no overlap check is made.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (_ domain.Reservation, err error) {
	if in.ReservationID == uuid.Nil {
		return domain.Reservation{}, validationError("reservation_id is required")
	}
	actor, err := normalizeActor(in.Actor)
	if err != nil {
		return domain.Reservation{}, err
	}
	if _, err := domain.ParseStatus(string(in.Status)); err != nil {
		return domain.Reservation{}, validationError("invalid status")
	}

	ctx, span := s.tracer.Start(ctx, "reservations.Transition", trace.WithAttributes(
		attribute.String("reservation_id", in.ReservationID.String()),
		attribute.String("actor_role", string(actor.Role)),
		attribute.String("status", string(in.Status)),
	))
	defer func() { endSpan(span, err) }()

	var (
		out      domain.Reservation
		previous domain.Status
	)
	err = s.ledger.InTransaction(ctx, func(ctx context.Context, tx store.LedgerTx) error {
		current, err := tx.LockReservation(ctx, in.ReservationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrReservationNotFound
			}
			return err
		}
		if err := domain.CheckTransition(current, actor, in.Status); err != nil {
			return err
		}

		updated, err := tx.UpdateStatus(ctx, current.ID, in.Status)
		if err != nil {
			return err
		}
		ev, err := domain.NewReservationEvent(domain.EventReservationStatusChanged, updated, current.Status, actor.ID)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, s.withTraceContext(ctx, ev)); err != nil {
			return err
		}
		out, previous = updated, current.Status
		return nil
	})
	if err != nil {
		return domain.Reservation{}, translate(err)
	}

	s.log.Info("reservation status changed",
		slog.String("reservation_id", out.ID.String()),
		slog.String("from", string(previous)),
		slog.String("to", string(out.Status)),
		slog.String("actor_role", string(actor.Role)),
	)
	return out, nil
}

// ListReservations returns the reservations the actor owns, as provider or as
// client depending on role, newest window first.
func (s *Service) ListReservations(ctx context.Context, actor domain.Actor) ([]domain.Reservation, error) {
	actor, err := normalizeActor(actor)
	if err != nil {
		return nil, err
	}
	rows, err := s.ledger.ListForActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.Reservation{}
	}
	return rows, nil
}

func normalizeActor(a domain.Actor) (domain.Actor, error) {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return domain.Actor{}, validationError("actor_id is required")
	}
	role, err := domain.ParseRole(string(a.Role))
	if err != nil {
		return domain.Actor{}, validationError("actor role must be CLIENT or PROVIDER")
	}
	return domain.Actor{ID: id, Role: role}, nil
}
