package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reservo/internal/domain"
	"reservo/internal/store"
	"reservo/internal/telemetry"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Deps struct {
	Schedule store.ScheduleRepository
	Catalog  store.ServiceCatalog
	Ledger   store.Ledger

	// Location is the deployment time zone. Calendar dates, weekdays and
	// wall-clock mirrors are all resolved in it.
	Location *time.Location
	Logger   *slog.Logger
}

type Service struct {
	schedule store.ScheduleRepository
	catalog  store.ServiceCatalog
	ledger   store.Ledger
	loc      *time.Location
	log      *slog.Logger
	tracer   trace.Tracer
}

func NewService(d Deps) *Service {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		schedule: d.Schedule,
		catalog:  d.Catalog,
		ledger:   d.Ledger,
		loc:      loc,
		log:      log.With(slog.String("component", "reservations")),
		tracer:   telemetry.Tracer(),
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// resolvePolicy loads the policy of key.ServiceID and checks that it belongs to
// key.ProviderID.
func (s *Service) resolvePolicy(ctx context.Context, key domain.ResourceKey) (domain.ServicePolicy, error) {
	p, err := s.catalog.GetPolicy(ctx, key.ServiceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ServicePolicy{}, domain.ErrServiceNotFound
		}
		return domain.ServicePolicy{}, err
	}
	if !p.OwnedBy(key.ProviderID) {
		return domain.ServicePolicy{}, domain.ErrServiceNotFound
	}
	return p, nil
}

// translate maps store sentinels onto the domain taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		return domain.ErrSlotUnavailable
	case errors.Is(err, store.ErrContention):
		return fmt.Errorf("%w: %v", domain.ErrAdmissionContention, err)
	case errors.Is(err, store.ErrIdempotencyConflict):
		return domain.ErrIdempotencyConflict
	}
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) withTraceContext(ctx context.Context, ev domain.ReservationEvent) domain.ReservationEvent {
	ev.Traceparent, ev.Tracestate = telemetry.TraceContextStrings(ctx)
	return ev
}
