package reservations

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"reservo/internal/domain"
	"reservo/internal/store"
)

type ComputeSlotsInput struct {
	ProviderID string
	ServiceID  string
	Date       domain.Date
}

// ComputeSlots lists the start times still bookable on a date. A day with no
// working window, or an inactive one, yields an empty list rather than an error.
func (s *Service) ComputeSlots(ctx context.Context, in ComputeSlotsInput) (_ []domain.ClockTime, err error) {
	key := domain.ResourceKey{ProviderID: strings.TrimSpace(in.ProviderID), ServiceID: strings.TrimSpace(in.ServiceID)}
	if key.ProviderID == "" {
		return nil, validationError("provider_id is required")
	}
	if key.ServiceID == "" {
		return nil, validationError("service_id is required")
	}
	if in.Date.IsZero() {
		return nil, validationError("date is required")
	}

	ctx, span := s.tracer.Start(ctx, "reservations.ComputeSlots", trace.WithAttributes(
		attribute.String("provider_id", key.ProviderID),
		attribute.String("service_id", key.ServiceID),
		attribute.String("date", in.Date.String()),
	))
	defer func() { endSpan(span, err) }()

	policy, err := s.resolvePolicy(ctx, key)
	if err != nil {
		return nil, err
	}

	window, err := s.schedule.GetWindow(ctx, key.ProviderID, in.Date.Weekday())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []domain.ClockTime{}, nil
		}
		return nil, err
	}
	if !window.Active {
		return []domain.ClockTime{}, nil
	}

	reserved, err := s.ledger.ListOccupying(ctx, key, in.Date.Span(s.loc))
	if err != nil {
		return nil, err
	}
	busy := make([]domain.Window, 0, len(reserved))
	for _, r := range reserved {
		busy = append(busy, r.Window())
	}

	slots := slices.Collect(domain.PlanSlots(policy, in.Date, window, busy, s.loc))
	if slots == nil {
		slots = []domain.ClockTime{}
	}
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return slots, nil
}
