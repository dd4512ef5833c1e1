package grpc

import (
	"google.golang.org/protobuf/types/known/timestamppb"

	"reservo/internal/domain"
)

type ComputeSlotsRequest struct {
	ProviderID string `json:"provider_id"`
	ServiceID  string `json:"service_id"`
	// Date is YYYY-MM-DD in the deployment time zone.
	Date string `json:"date"`
}

type ComputeSlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

type TimeRange struct {
	Start *timestamppb.Timestamp `json:"start"`
	End   *timestamppb.Timestamp `json:"end"`
}

type SlotSelection struct {
	Date  string `json:"date"`
	Start string `json:"start"`
}

// AdmitRequest carries exactly one of Range or Slot.
type AdmitRequest struct {
	ProviderID string         `json:"provider_id"`
	ServiceID  string         `json:"service_id"`
	Range      *TimeRange     `json:"range,omitempty"`
	Slot       *SlotSelection `json:"slot,omitempty"`
}

type AdmitResponse struct {
	Reservation *Reservation `json:"reservation"`
}

type TransitionRequest struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

type TransitionResponse struct {
	Reservation *Reservation `json:"reservation"`
}

type ListReservationsRequest struct{}

type ListReservationsResponse struct {
	Reservations []*Reservation `json:"reservations"`
}

type UpsertWeeklyWindowRequest struct {
	DayOfWeek string `json:"day_of_week"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

type UpsertWeeklyWindowResponse struct {
	Window *WeeklyWindow `json:"window"`
}

type SetWeeklyWindowActiveRequest struct {
	DayOfWeek string `json:"day_of_week"`
	Active    bool   `json:"active"`
}

type SetWeeklyWindowActiveResponse struct {
	Window *WeeklyWindow `json:"window"`
}

// GetWeeklyScheduleRequest defaults ProviderID to the caller.
type GetWeeklyScheduleRequest struct {
	ProviderID string `json:"provider_id,omitempty"`
}

type GetWeeklyScheduleResponse struct {
	ProviderID string          `json:"provider_id"`
	Windows    []*WeeklyWindow `json:"windows"`
}

type Reservation struct {
	ID          string                 `json:"id"`
	ProviderID  string                 `json:"provider_id"`
	ServiceID   string                 `json:"service_id"`
	ClientID    string                 `json:"client_id"`
	Status      string                 `json:"status"`
	StartTime   *timestamppb.Timestamp `json:"start_time"`
	EndTime     *timestamppb.Timestamp `json:"end_time"`
	BookingDate string                 `json:"booking_date"`
	StartClock  string                 `json:"start_clock"`
	EndClock    string                 `json:"end_clock"`
	CreatedAt   *timestamppb.Timestamp `json:"created_at"`
	UpdatedAt   *timestamppb.Timestamp `json:"updated_at"`
}

type WeeklyWindow struct {
	DayOfWeek string `json:"day_of_week"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Active    bool   `json:"active"`
}

func toWireReservation(r domain.Reservation) *Reservation {
	return &Reservation{
		ID:          r.ID.String(),
		ProviderID:  r.ProviderID,
		ServiceID:   r.ServiceID,
		ClientID:    r.ClientID,
		Status:      string(r.Status),
		StartTime:   timestamppb.New(r.StartTime),
		EndTime:     timestamppb.New(r.EndTime),
		BookingDate: domain.DateOf(r.BookingDate).String(),
		StartClock:  r.StartClock,
		EndClock:    r.EndClock,
		CreatedAt:   timestamppb.New(r.CreatedAt),
		UpdatedAt:   timestamppb.New(r.UpdatedAt),
	}
}

func toWireWindow(w domain.WeeklyWindow) *WeeklyWindow {
	return &WeeklyWindow{
		DayOfWeek: w.DayOfWeek.String(),
		Start:     w.StartMinute.String(),
		End:       w.EndMinute.String(),
		Active:    w.Active,
	}
}
