package grpc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"reservo/internal/domain"
	"reservo/internal/service/reservations"
)

type fakeReservationsService struct {
	computeSlotsFn      func(ctx context.Context, in reservations.ComputeSlotsInput) ([]domain.ClockTime, error)
	admitFn             func(ctx context.Context, in reservations.AdmitInput) (domain.Reservation, error)
	transitionFn        func(ctx context.Context, in reservations.TransitionInput) (domain.Reservation, error)
	listFn              func(ctx context.Context, actor domain.Actor) ([]domain.Reservation, error)
	upsertWindowFn      func(ctx context.Context, in reservations.UpsertWindowInput) (domain.WeeklyWindow, error)
	setWindowActiveFn   func(ctx context.Context, providerID string, day domain.Weekday, active bool) (domain.WeeklyWindow, error)
	getWeeklyScheduleFn func(ctx context.Context, providerID string) ([]domain.WeeklyWindow, error)
}

func (f *fakeReservationsService) ComputeSlots(ctx context.Context, in reservations.ComputeSlotsInput) ([]domain.ClockTime, error) {
	if f.computeSlotsFn == nil {
		panic("ComputeSlots not configured")
	}
	return f.computeSlotsFn(ctx, in)
}

func (f *fakeReservationsService) Admit(ctx context.Context, in reservations.AdmitInput) (domain.Reservation, error) {
	if f.admitFn == nil {
		panic("Admit not configured")
	}
	return f.admitFn(ctx, in)
}

func (f *fakeReservationsService) Transition(ctx context.Context, in reservations.TransitionInput) (domain.Reservation, error) {
	if f.transitionFn == nil {
		panic("Transition not configured")
	}
	return f.transitionFn(ctx, in)
}

func (f *fakeReservationsService) ListReservations(ctx context.Context, actor domain.Actor) ([]domain.Reservation, error) {
	if f.listFn == nil {
		panic("ListReservations not configured")
	}
	return f.listFn(ctx, actor)
}

func (f *fakeReservationsService) UpsertWeeklyWindow(ctx context.Context, in reservations.UpsertWindowInput) (domain.WeeklyWindow, error) {
	if f.upsertWindowFn == nil {
		panic("UpsertWeeklyWindow not configured")
	}
	return f.upsertWindowFn(ctx, in)
}

func (f *fakeReservationsService) SetWeeklyWindowActive(ctx context.Context, providerID string, day domain.Weekday, active bool) (domain.WeeklyWindow, error) {
	if f.setWindowActiveFn == nil {
		panic("SetWeeklyWindowActive not configured")
	}
	return f.setWindowActiveFn(ctx, providerID, day, active)
}

func (f *fakeReservationsService) GetWeeklySchedule(ctx context.Context, providerID string) ([]domain.WeeklyWindow, error) {
	if f.getWeeklyScheduleFn == nil {
		panic("GetWeeklySchedule not configured")
	}
	return f.getWeeklyScheduleFn(ctx, providerID)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func clientCtx(id string) context.Context {
	return ContextWithActor(context.Background(), domain.Actor{ID: id, Role: domain.RoleClient})
}

func providerCtx(id string) context.Context {
	return ContextWithActor(context.Background(), domain.Actor{ID: id, Role: domain.RoleProvider})
}

func TestIdempotencyKey_ReadsHeadersAndTrims(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "  abc  "))
	if got := idempotencyKey(ctx); got != "abc" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "abc")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-idempotency-key", "xyz"))
	if got := idempotencyKey(ctx); got != "xyz" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "xyz")
	}
}

func TestComputeSlots_RejectsBadDate(t *testing.T) {
	srv := NewReservationsServer(&fakeReservationsService{}, quietLogger())

	_, err := srv.ComputeSlots(context.Background(), &ComputeSlotsRequest{ProviderID: "p1", ServiceID: "s1", Date: "05/01/2026"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestComputeSlots_FormatsClockTimes(t *testing.T) {
	var got reservations.ComputeSlotsInput
	srv := NewReservationsServer(&fakeReservationsService{
		computeSlotsFn: func(ctx context.Context, in reservations.ComputeSlotsInput) ([]domain.ClockTime, error) {
			got = in
			return []domain.ClockTime{9 * 60, 9*60 + 30}, nil
		},
	}, quietLogger())

	resp, err := srv.ComputeSlots(context.Background(), &ComputeSlotsRequest{ProviderID: "p1", ServiceID: "s1", Date: "2026-01-05"})
	if err != nil {
		t.Fatalf("ComputeSlots error: %v", err)
	}
	if got.Date != (domain.Date{Year: 2026, Month: time.January, Day: 5}) {
		t.Fatalf("date = %v", got.Date)
	}
	if len(resp.Slots) != 2 || resp.Slots[0] != "09:00" || resp.Slots[1] != "09:30" {
		t.Fatalf("slots = %v", resp.Slots)
	}
}

func TestAdmit_RequiresCaller(t *testing.T) {
	srv := NewReservationsServer(&fakeReservationsService{}, quietLogger())

	_, err := srv.Admit(context.Background(), &AdmitRequest{ProviderID: "p1", ServiceID: "s1", Slot: &SlotSelection{Date: "2026-01-05", Start: "09:00"}})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.Unauthenticated)
	}
}

func TestAdmit_RequestShape(t *testing.T) {
	start := timestamppb.New(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	end := timestamppb.New(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		req  *AdmitRequest
	}{
		{name: "neither", req: &AdmitRequest{ProviderID: "p1", ServiceID: "s1"}},
		{name: "both", req: &AdmitRequest{ProviderID: "p1", ServiceID: "s1", Range: &TimeRange{Start: start, End: end}, Slot: &SlotSelection{Date: "2026-01-05", Start: "09:00"}}},
		{name: "range missing end", req: &AdmitRequest{ProviderID: "p1", ServiceID: "s1", Range: &TimeRange{Start: start}}},
		{name: "bad slot clock", req: &AdmitRequest{ProviderID: "p1", ServiceID: "s1", Slot: &SlotSelection{Date: "2026-01-05", Start: "9am"}}},
		{name: "bad slot date", req: &AdmitRequest{ProviderID: "p1", ServiceID: "s1", Slot: &SlotSelection{Date: "tomorrow", Start: "09:00"}}},
	}

	srv := NewReservationsServer(&fakeReservationsService{}, quietLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.Admit(clientCtx("c1"), tt.req)
			if status.Code(err) != codes.InvalidArgument {
				t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
			}
		})
	}
}

func TestAdmit_PassesCallerAndIdempotencyKey(t *testing.T) {
	var got reservations.AdmitInput
	srv := NewReservationsServer(&fakeReservationsService{
		admitFn: func(ctx context.Context, in reservations.AdmitInput) (domain.Reservation, error) {
			got = in
			return domain.Reservation{ID: uuid.MustParse("00000000-0000-0000-0000-000000000010"), Status: domain.StatusPending}, nil
		},
	}, quietLogger())

	ctx := metadata.NewIncomingContext(clientCtx("c1"), metadata.Pairs("idempotency-key", "k1"))
	resp, err := srv.Admit(ctx, &AdmitRequest{ProviderID: "p1", ServiceID: "s1", Slot: &SlotSelection{Date: "2026-01-05", Start: "09:30"}})
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}
	if got.ClientID != "c1" || got.IdempotencyKey != "k1" {
		t.Fatalf("input = %+v", got)
	}
	slot, ok := got.Request.(domain.SlotRequest)
	if !ok || slot.Start != 9*60+30 {
		t.Fatalf("request = %#v, want slot at 09:30", got.Request)
	}
	if resp.Reservation.Status != "PENDING" {
		t.Fatalf("status = %q, want PENDING", resp.Reservation.Status)
	}
}

func TestAdmit_MapsErrors(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{err: domain.ErrSlotUnavailable, want: codes.FailedPrecondition},
		{err: domain.ErrIdempotencyConflict, want: codes.FailedPrecondition},
		{err: domain.ErrServiceNotFound, want: codes.NotFound},
		{err: domain.ErrInvalidWindow, want: codes.InvalidArgument},
		{err: fmt.Errorf("%w: lock timeout", domain.ErrAdmissionContention), want: codes.Aborted},
		{err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
		{err: fmt.Errorf("boom"), want: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv := NewReservationsServer(&fakeReservationsService{
				admitFn: func(ctx context.Context, in reservations.AdmitInput) (domain.Reservation, error) {
					return domain.Reservation{}, tt.err
				},
			}, quietLogger())

			_, err := srv.Admit(clientCtx("c1"), &AdmitRequest{ProviderID: "p1", ServiceID: "s1", Slot: &SlotSelection{Date: "2026-01-05", Start: "09:00"}})
			if status.Code(err) != tt.want {
				t.Fatalf("code = %s, want %s", status.Code(err), tt.want)
			}
		})
	}
}

func TestTransition_MapsErrors(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{err: domain.ErrNotAuthorized, want: codes.PermissionDenied},
		{err: domain.ErrForbidden, want: codes.PermissionDenied},
		{err: fmt.Errorf("%w: CANCELLED -> CONFIRMED", domain.ErrInvalidTransition), want: codes.FailedPrecondition},
		{err: domain.ErrReservationNotFound, want: codes.NotFound},
	}

	id := uuid.MustParse("00000000-0000-0000-0000-000000000011")
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			var got reservations.TransitionInput
			srv := NewReservationsServer(&fakeReservationsService{
				transitionFn: func(ctx context.Context, in reservations.TransitionInput) (domain.Reservation, error) {
					got = in
					return domain.Reservation{}, tt.err
				},
			}, quietLogger())

			_, err := srv.Transition(providerCtx("p1"), &TransitionRequest{ReservationID: id.String(), Status: "confirmed"})
			if status.Code(err) != tt.want {
				t.Fatalf("code = %s, want %s", status.Code(err), tt.want)
			}
			if got.ReservationID != id || got.Status != domain.StatusConfirmed || got.Actor.Role != domain.RoleProvider {
				t.Fatalf("input = %+v", got)
			}
		})
	}
}

func TestTransition_RejectsBadInput(t *testing.T) {
	srv := NewReservationsServer(&fakeReservationsService{}, quietLogger())

	_, err := srv.Transition(clientCtx("c1"), &TransitionRequest{ReservationID: "nope", Status: "CANCELLED"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
	_, err = srv.Transition(clientCtx("c1"), &TransitionRequest{ReservationID: uuid.NewString(), Status: "ARCHIVED"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestUpsertWeeklyWindow_ProvidersOnly(t *testing.T) {
	srv := NewReservationsServer(&fakeReservationsService{}, quietLogger())

	_, err := srv.UpsertWeeklyWindow(clientCtx("c1"), &UpsertWeeklyWindowRequest{DayOfWeek: "MON", Start: "09:00", End: "17:00"})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.PermissionDenied)
	}
}

func TestUpsertWeeklyWindow_ParsesInput(t *testing.T) {
	var got reservations.UpsertWindowInput
	srv := NewReservationsServer(&fakeReservationsService{
		upsertWindowFn: func(ctx context.Context, in reservations.UpsertWindowInput) (domain.WeeklyWindow, error) {
			got = in
			return domain.WeeklyWindow{ProviderID: in.ProviderID, DayOfWeek: in.Day, StartMinute: in.Start, EndMinute: in.End, Active: true}, nil
		},
	}, quietLogger())

	resp, err := srv.UpsertWeeklyWindow(providerCtx("p1"), &UpsertWeeklyWindowRequest{DayOfWeek: "tuesday", Start: "08:30:00", End: "12:00"})
	if err != nil {
		t.Fatalf("UpsertWeeklyWindow error: %v", err)
	}
	if got.ProviderID != "p1" || got.Day != domain.Tuesday || got.Start != 8*60+30 || got.End != 12*60 {
		t.Fatalf("input = %+v", got)
	}
	if resp.Window.DayOfWeek != "TUE" || resp.Window.Start != "08:30" || !resp.Window.Active {
		t.Fatalf("window = %+v", resp.Window)
	}

	resp, err = srv.UpsertWeeklyWindow(providerCtx("p1"), &UpsertWeeklyWindowRequest{DayOfWeek: "FRI", Start: "20:00", End: "24:00"})
	if err != nil {
		t.Fatalf("UpsertWeeklyWindow to midnight error: %v", err)
	}
	if got.End != domain.MinutesPerDay || resp.Window.End != "24:00" {
		t.Fatalf("midnight end = %d / %q", got.End, resp.Window.End)
	}

	for _, req := range []*UpsertWeeklyWindowRequest{
		{DayOfWeek: "MON", Start: "25:00", End: "12:00"},
		{DayOfWeek: "MON", Start: "24:00", End: "24:00"},
		{DayOfWeek: "MONKEY", Start: "09:00", End: "12:00"},
	} {
		_, err = srv.UpsertWeeklyWindow(providerCtx("p1"), req)
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("%+v: code = %s, want %s", req, status.Code(err), codes.InvalidArgument)
		}
	}
}

func TestSetWeeklyWindowActive_NotConfigured(t *testing.T) {
	srv := NewReservationsServer(&fakeReservationsService{
		setWindowActiveFn: func(ctx context.Context, providerID string, day domain.Weekday, active bool) (domain.WeeklyWindow, error) {
			return domain.WeeklyWindow{}, domain.ErrWindowNotFound
		},
	}, quietLogger())

	_, err := srv.SetWeeklyWindowActive(providerCtx("p1"), &SetWeeklyWindowActiveRequest{DayOfWeek: "SUN", Active: true})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.NotFound)
	}
}

func TestGetWeeklySchedule_DefaultsToCallingProvider(t *testing.T) {
	var gotProvider string
	srv := NewReservationsServer(&fakeReservationsService{
		getWeeklyScheduleFn: func(ctx context.Context, providerID string) ([]domain.WeeklyWindow, error) {
			gotProvider = providerID
			return []domain.WeeklyWindow{{ProviderID: providerID, DayOfWeek: domain.Monday, StartMinute: 540, EndMinute: 1020, Active: true}}, nil
		},
	}, quietLogger())

	resp, err := srv.GetWeeklySchedule(providerCtx("p9"), &GetWeeklyScheduleRequest{})
	if err != nil {
		t.Fatalf("GetWeeklySchedule error: %v", err)
	}
	if gotProvider != "p9" || resp.ProviderID != "p9" {
		t.Fatalf("provider = %q / %q, want p9", gotProvider, resp.ProviderID)
	}
	if len(resp.Windows) != 1 || resp.Windows[0].End != "17:00" {
		t.Fatalf("windows = %+v", resp.Windows)
	}
}
