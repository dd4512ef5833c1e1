package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusRejected, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// Occupies reports whether a reservation in this status holds its window on the
// resource calendar. COMPLETED still occupies: it was admitted conflict-free and the
// no-overlap invariant covers every status except CANCELLED and REJECTED.
func (s Status) Occupies() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func (s Status) CanMoveTo(next Status) bool {
	for _, to := range allowedTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

func OccupyingStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusCompleted}
}

type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleProvider Role = "PROVIDER"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleClient, RoleProvider:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

type Actor struct {
	ID   string
	Role Role
}

// ResourceKey identifies one calendar that must never hold overlapping reservations.
type ResourceKey struct {
	ProviderID string
	ServiceID  string
}

func (k ResourceKey) String() string {
	return k.ProviderID + "/" + k.ServiceID
}

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	ProviderID string    `bun:"provider_id,notnull"`
	ServiceID  string    `bun:"service_id,notnull"`
	ClientID   string    `bun:"client_id,notnull"`
	StartTime  time.Time `bun:"start_time,notnull"`
	EndTime    time.Time `bun:"end_time,notnull"`
	Status     Status    `bun:"status,notnull"`

	// Legacy projections of [StartTime, EndTime) in the deployment zone. Only
	// setWindow writes them.
	BookingDate time.Time `bun:"booking_date,type:date,notnull"`
	StartClock  string    `bun:"start_clock,notnull"`
	EndClock    string    `bun:"end_clock,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func NewReservation(key ResourceKey, clientID string, w Window, loc *time.Location) Reservation {
	r := Reservation{
		ProviderID: key.ProviderID,
		ServiceID:  key.ServiceID,
		ClientID:   clientID,
		Status:     StatusPending,
	}
	r.setWindow(w, loc)
	return r
}

func (r *Reservation) setWindow(w Window, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	r.StartTime = w.Start.UTC()
	r.EndTime = w.End.UTC()

	start := w.Start.In(loc)
	end := w.End.In(loc)
	r.BookingDate = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	r.StartClock = ToClock(start.Hour()*60 + start.Minute())
	r.EndClock = ToClock(end.Hour()*60 + end.Minute())
}

func (r Reservation) Key() ResourceKey {
	return ResourceKey{ProviderID: r.ProviderID, ServiceID: r.ServiceID}
}

func (r Reservation) Window() Window {
	return Window{Start: r.StartTime, End: r.EndTime}
}

// SameRequest reports whether other describes the same admission as r, ignoring
// server-assigned fields. Used to validate idempotent replays.
func (r Reservation) SameRequest(other Reservation) bool {
	return r.ProviderID == other.ProviderID &&
		r.ServiceID == other.ServiceID &&
		r.ClientID == other.ClientID &&
		r.StartTime.Equal(other.StartTime) &&
		r.EndTime.Equal(other.EndTime)
}

func (r *Reservation) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}

// CheckTransition applies the role-gated state machine. Ownership is checked
// before role permissions, and role permissions before the state graph.
func CheckTransition(r Reservation, actor Actor, next Status) error {
	switch actor.Role {
	case RoleProvider:
		if r.ProviderID != actor.ID {
			return ErrNotAuthorized
		}
		if next != StatusConfirmed && next != StatusRejected && next != StatusCompleted {
			return ErrForbidden
		}
	case RoleClient:
		if r.ClientID != actor.ID {
			return ErrNotAuthorized
		}
		if next != StatusCancelled {
			return ErrForbidden
		}
	default:
		return ErrForbidden
	}

	if !r.Status.CanMoveTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, next)
	}
	return nil
}
