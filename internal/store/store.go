package store

import (
	"context"

	"github.com/google/uuid"

	"reservo/internal/domain"
)

type ScheduleRepository interface {
	// UpsertWindow replaces the provider's window for the day and marks it active.
	UpsertWindow(ctx context.Context, w domain.WeeklyWindow) (domain.WeeklyWindow, error)
	// SetWindowActive returns ErrNotFound if the day was never configured.
	SetWindowActive(ctx context.Context, providerID string, day domain.Weekday, active bool) (domain.WeeklyWindow, error)
	GetWindow(ctx context.Context, providerID string, day domain.Weekday) (domain.WeeklyWindow, error)
	// ListWindows returns windows ordered MON..SUN.
	ListWindows(ctx context.Context, providerID string) ([]domain.WeeklyWindow, error)
}

type ServiceCatalog interface {
	GetPolicy(ctx context.Context, serviceID string) (domain.ServicePolicy, error)
}

// LedgerTx is the view of the reservation ledger inside one transaction.
type LedgerTx interface {
	GetReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	// LockReservation reads a reservation and holds it until commit.
	LockReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	// ListOccupying returns reservations of key that occupy any part of w.
	ListOccupying(ctx context.Context, key domain.ResourceKey, w domain.Window) ([]domain.Reservation, error)
	// InsertReservation returns ErrConflict if the row would overlap an occupying
	// reservation and ErrIdempotencyConflict if the id is taken by a different request.
	InsertReservation(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Reservation, error)
	AppendEvent(ctx context.Context, ev domain.ReservationEvent) error
}

type Ledger interface {
	// InResourceTransaction runs fn in a transaction that holds the serializing
	// lock for key. Any error from fn rolls the transaction back.
	InResourceTransaction(ctx context.Context, key domain.ResourceKey, fn func(ctx context.Context, tx LedgerTx) error) error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error

	ListOccupying(ctx context.Context, key domain.ResourceKey, w domain.Window) ([]domain.Reservation, error)
	// ListForActor returns the actor's reservations, newest window first.
	ListForActor(ctx context.Context, actor domain.Actor) ([]domain.Reservation, error)
}

type Outbox interface {
	// PublishPending hands up to limit unpublished events to publish, oldest first,
	// and marks them published only if publish returns nil.
	PublishPending(ctx context.Context, limit int, publish func(ctx context.Context, events []domain.ReservationEvent) error) (int, error)
}
