package grpc

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"reservo/internal/domain"
	"reservo/internal/service/reservations"
)

type ReservationsServer struct {
	svc reservationsService
	log *slog.Logger
}

type reservationsService interface {
	ComputeSlots(ctx context.Context, in reservations.ComputeSlotsInput) ([]domain.ClockTime, error)
	Admit(ctx context.Context, in reservations.AdmitInput) (domain.Reservation, error)
	Transition(ctx context.Context, in reservations.TransitionInput) (domain.Reservation, error)
	ListReservations(ctx context.Context, actor domain.Actor) ([]domain.Reservation, error)
	UpsertWeeklyWindow(ctx context.Context, in reservations.UpsertWindowInput) (domain.WeeklyWindow, error)
	SetWeeklyWindowActive(ctx context.Context, providerID string, day domain.Weekday, active bool) (domain.WeeklyWindow, error)
	GetWeeklySchedule(ctx context.Context, providerID string) ([]domain.WeeklyWindow, error)
}

func NewReservationsServer(svc reservationsService, log *slog.Logger) *ReservationsServer {
	if log == nil {
		log = slog.Default()
	}
	return &ReservationsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.reservations")),
	}
}

func (s *ReservationsServer) ComputeSlots(ctx context.Context, req *ComputeSlotsRequest) (*ComputeSlotsResponse, error) {
	log := s.log.With(slog.String("rpc", "ComputeSlots"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_date"), slog.String("provider_id", req.ProviderID))
		return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD")
	}

	slots, err := s.svc.ComputeSlots(ctx, reservations.ComputeSlotsInput{
		ProviderID: req.ProviderID,
		ServiceID:  req.ServiceID,
		Date:       date,
	})
	if err != nil {
		return nil, toStatus(log, "slot listing", err,
			slog.String("provider_id", req.ProviderID),
			slog.String("service_id", req.ServiceID),
			slog.String("date", date.String()),
		)
	}

	out := make([]string, 0, len(slots))
	for _, c := range slots {
		out = append(out, c.String())
	}

	log.Debug(
		"slots computed",
		slog.String("provider_id", req.ProviderID),
		slog.String("service_id", req.ServiceID),
		slog.String("date", date.String()),
		slog.Int("count", len(out)),
	)

	return &ComputeSlotsResponse{Date: date.String(), Slots: out}, nil
}

func (s *ReservationsServer) Admit(ctx context.Context, req *AdmitRequest) (*AdmitResponse, error) {
	log := s.log.With(slog.String("rpc", "Admit"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}

	booking, err := bookingRequest(req)
	if err != nil {
		log.Warn("invalid request", slog.Any("err", err), slog.String("client_id", actor.ID))
		return nil, err
	}

	r, err := s.svc.Admit(ctx, reservations.AdmitInput{
		Key:            domain.ResourceKey{ProviderID: req.ProviderID, ServiceID: req.ServiceID},
		ClientID:       actor.ID,
		Request:        booking,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, toStatus(log, "admission", err,
			slog.String("provider_id", req.ProviderID),
			slog.String("service_id", req.ServiceID),
			slog.String("client_id", actor.ID),
		)
	}

	return &AdmitResponse{Reservation: toWireReservation(r)}, nil
}

// bookingRequest resolves the request shape once; the service only sees the
// domain variant.
func bookingRequest(req *AdmitRequest) (domain.BookingRequest, error) {
	switch {
	case req.Range != nil && req.Slot != nil:
		return nil, status.Error(codes.InvalidArgument, "set either range or slot, not both")
	case req.Range != nil:
		if req.Range.Start == nil || req.Range.End == nil {
			return nil, status.Error(codes.InvalidArgument, "range.start and range.end are required")
		}
		if err := req.Range.Start.CheckValid(); err != nil {
			return nil, status.Error(codes.InvalidArgument, "range.start is not a valid timestamp")
		}
		if err := req.Range.End.CheckValid(); err != nil {
			return nil, status.Error(codes.InvalidArgument, "range.end is not a valid timestamp")
		}
		return domain.RangeRequest{Start: req.Range.Start.AsTime(), End: req.Range.End.AsTime()}, nil
	case req.Slot != nil:
		date, err := domain.ParseDate(req.Slot.Date)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "slot.date must be YYYY-MM-DD")
		}
		start, err := domain.ParseClock(req.Slot.Start)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "slot.start must be HH:MM")
		}
		return domain.SlotRequest{Date: date, Start: start}, nil
	}
	return nil, status.Error(codes.InvalidArgument, "range or slot is required")
}

func (s *ReservationsServer) Transition(ctx context.Context, req *TransitionRequest) (*TransitionResponse, error) {
	log := s.log.With(slog.String("rpc", "Transition"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(req.ReservationID)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_uuid"), slog.String("actor_id", actor.ID))
		return nil, status.Error(codes.InvalidArgument, "reservation_id must be a UUID")
	}
	next, err := domain.ParseStatus(req.Status)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_status"), slog.String("status", req.Status))
		return nil, status.Error(codes.InvalidArgument, "status must be one of PENDING, CONFIRMED, CANCELLED, REJECTED, COMPLETED")
	}

	r, err := s.svc.Transition(ctx, reservations.TransitionInput{
		ReservationID: id,
		Actor:         actor,
		Status:        next,
	})
	if err != nil {
		return nil, toStatus(log, "transition", err,
			slog.String("reservation_id", id.String()),
			slog.String("actor_id", actor.ID),
			slog.String("actor_role", string(actor.Role)),
			slog.String("status", string(next)),
		)
	}

	return &TransitionResponse{Reservation: toWireReservation(r)}, nil
}

func (s *ReservationsServer) ListReservations(ctx context.Context, req *ListReservationsRequest) (*ListReservationsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListReservations"))

	actor, err := requireActor(ctx, log)
	if err != nil {
		return nil, err
	}

	rows, err := s.svc.ListReservations(ctx, actor)
	if err != nil {
		return nil, toStatus(log, "reservations list", err, slog.String("actor_id", actor.ID))
	}

	out := make([]*Reservation, 0, len(rows))
	for _, r := range rows {
		out = append(out, toWireReservation(r))
	}

	log.Debug(
		"reservations listed",
		slog.String("actor_id", actor.ID),
		slog.String("actor_role", string(actor.Role)),
		slog.Int("count", len(out)),
	)

	return &ListReservationsResponse{Reservations: out}, nil
}

func (s *ReservationsServer) UpsertWeeklyWindow(ctx context.Context, req *UpsertWeeklyWindowRequest) (*UpsertWeeklyWindowResponse, error) {
	log := s.log.With(slog.String("rpc", "UpsertWeeklyWindow"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	provider, err := requireProvider(ctx, log)
	if err != nil {
		return nil, err
	}
	day, err := domain.ParseWeekday(req.DayOfWeek)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_day"), slog.String("provider_id", provider.ID))
		return nil, status.Error(codes.InvalidArgument, "day_of_week must be MON..SUN")
	}
	start, err := domain.ParseClock(req.Start)
	if err != nil {
		return nil, toStatus(log, "window upsert", err, slog.String("provider_id", provider.ID))
	}
	end, err := domain.ParseWindowEnd(req.End)
	if err != nil {
		return nil, toStatus(log, "window upsert", err, slog.String("provider_id", provider.ID))
	}

	w, err := s.svc.UpsertWeeklyWindow(ctx, reservations.UpsertWindowInput{
		ProviderID: provider.ID,
		Day:        day,
		Start:      start,
		End:        end,
	})
	if err != nil {
		return nil, toStatus(log, "window upsert", err,
			slog.String("provider_id", provider.ID),
			slog.String("day_of_week", day.String()),
		)
	}

	log.Info(
		"weekly window saved",
		slog.String("provider_id", w.ProviderID),
		slog.String("day_of_week", w.DayOfWeek.String()),
		slog.String("start", w.StartMinute.String()),
		slog.String("end", w.EndMinute.String()),
	)

	return &UpsertWeeklyWindowResponse{Window: toWireWindow(w)}, nil
}

func (s *ReservationsServer) SetWeeklyWindowActive(ctx context.Context, req *SetWeeklyWindowActiveRequest) (*SetWeeklyWindowActiveResponse, error) {
	log := s.log.With(slog.String("rpc", "SetWeeklyWindowActive"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	provider, err := requireProvider(ctx, log)
	if err != nil {
		return nil, err
	}
	day, err := domain.ParseWeekday(req.DayOfWeek)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "invalid_day"), slog.String("provider_id", provider.ID))
		return nil, status.Error(codes.InvalidArgument, "day_of_week must be MON..SUN")
	}

	w, err := s.svc.SetWeeklyWindowActive(ctx, provider.ID, day, req.Active)
	if err != nil {
		return nil, toStatus(log, "window toggle", err,
			slog.String("provider_id", provider.ID),
			slog.String("day_of_week", day.String()),
		)
	}

	log.Info(
		"weekly window toggled",
		slog.String("provider_id", w.ProviderID),
		slog.String("day_of_week", w.DayOfWeek.String()),
		slog.Bool("active", w.Active),
	)

	return &SetWeeklyWindowActiveResponse{Window: toWireWindow(w)}, nil
}

func (s *ReservationsServer) GetWeeklySchedule(ctx context.Context, req *GetWeeklyScheduleRequest) (*GetWeeklyScheduleResponse, error) {
	log := s.log.With(slog.String("rpc", "GetWeeklySchedule"))

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	providerID := strings.TrimSpace(req.ProviderID)
	if providerID == "" {
		if actor, ok := ActorFromContext(ctx); ok && actor.Role == domain.RoleProvider {
			providerID = actor.ID
		}
	}

	rows, err := s.svc.GetWeeklySchedule(ctx, providerID)
	if err != nil {
		return nil, toStatus(log, "schedule read", err, slog.String("provider_id", providerID))
	}

	out := make([]*WeeklyWindow, 0, len(rows))
	for _, w := range rows {
		out = append(out, toWireWindow(w))
	}
	return &GetWeeklyScheduleResponse{ProviderID: providerID, Windows: out}, nil
}

func requireActor(ctx context.Context, log *slog.Logger) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		log.Warn("unauthenticated request")
		return domain.Actor{}, status.Error(codes.Unauthenticated, "caller identity is required")
	}
	return actor, nil
}

func requireProvider(ctx context.Context, log *slog.Logger) (domain.Actor, error) {
	actor, err := requireActor(ctx, log)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleProvider {
		log.Info("schedule change forbidden", slog.String("actor_id", actor.ID), slog.String("actor_role", string(actor.Role)))
		return domain.Actor{}, status.Error(codes.PermissionDenied, "only providers manage working hours")
	}
	return actor, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
