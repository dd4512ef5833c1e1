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

const maxIdempotencyKeyLen = 256

type AdmitInput struct {
	Key      domain.ResourceKey
	ClientID string
	Request  domain.BookingRequest

	// IdempotencyKey, when set, makes a retried admission return the reservation
	// created by the first attempt.
	IdempotencyKey string
}

// Admit creates a PENDING reservation if its window does not overlap any
// occupying reservation of the same resource. The overlap check and the insert
// run under the resource lock, so concurrent admissions for one resource are
// linearized and at most one of several overlapping requests succeeds.
func (s *Service) Admit(ctx context.Context, in AdmitInput) (_ domain.Reservation, err error) {
	key := domain.ResourceKey{ProviderID: strings.TrimSpace(in.Key.ProviderID), ServiceID: strings.TrimSpace(in.Key.ServiceID)}
	clientID := strings.TrimSpace(in.ClientID)
	if key.ProviderID == "" {
		return domain.Reservation{}, validationError("provider_id is required")
	}
	if key.ServiceID == "" {
		return domain.Reservation{}, validationError("service_id is required")
	}
	if clientID == "" {
		return domain.Reservation{}, validationError("client_id is required")
	}
	if in.Request == nil {
		return domain.Reservation{}, validationError("a range or slot request is required")
	}
	idemKey := strings.TrimSpace(in.IdempotencyKey)
	if len(idemKey) > maxIdempotencyKeyLen {
		return domain.Reservation{}, validationError("idempotency_key too long")
	}

	ctx, span := s.tracer.Start(ctx, "reservations.Admit", trace.WithAttributes(
		attribute.String("provider_id", key.ProviderID),
		attribute.String("service_id", key.ServiceID),
		attribute.Bool("idempotent", idemKey != ""),
	))
	defer func() { endSpan(span, err) }()

	policy, err := s.resolvePolicy(ctx, key)
	if err != nil {
		return domain.Reservation{}, err
	}
	window, err := domain.ResolveWindow(in.Request, policy, s.loc)
	if err != nil {
		return domain.Reservation{}, err
	}

	occupancy := domain.OccupancySpan(in.Request, policy, window, s.loc)
	candidate := domain.NewReservation(key, clientID, window, s.loc)
	if idemKey != "" {
		candidate.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("reservo:admit:"+clientID+":"+idemKey))
	}

	var (
		out      domain.Reservation
		replayed bool
	)
	err = s.ledger.InResourceTransaction(ctx, key, func(ctx context.Context, tx store.LedgerTx) error {
		if candidate.ID != uuid.Nil {
			existing, err := tx.GetReservation(ctx, candidate.ID)
			switch {
			case err == nil:
				if !existing.SameRequest(candidate) {
					return store.ErrIdempotencyConflict
				}
				out, replayed = existing, true
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		busy, err := tx.ListOccupying(ctx, key, occupancy)
		if err != nil {
			return err
		}
		if len(busy) > 0 {
			return domain.ErrSlotUnavailable
		}

		created, err := tx.InsertReservation(ctx, candidate)
		if err != nil {
			return err
		}

		ev, err := domain.NewReservationEvent(domain.EventReservationAdmitted, created, "", clientID)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, s.withTraceContext(ctx, ev)); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Reservation{}, translate(err)
	}

	span.SetAttributes(attribute.String("reservation_id", out.ID.String()), attribute.Bool("replayed", replayed))
	if !replayed {
		s.log.Info("reservation admitted",
			slog.String("reservation_id", out.ID.String()),
			slog.String("provider_id", key.ProviderID),
			slog.String("service_id", key.ServiceID),
			slog.Time("start", out.StartTime),
			slog.Time("end", out.EndTime),
		)
	}
	return out, nil
}
