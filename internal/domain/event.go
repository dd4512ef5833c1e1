package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	EventReservationAdmitted      = "reservation.admitted.v1"
	EventReservationStatusChanged = "reservation.status_changed.v1"
)

// ReservationEvent is an outbox row. It is written in the same transaction as the
// reservation change it describes and published asynchronously.
type ReservationEvent struct {
	bun.BaseModel `bun:"table:reservation_events"`

	ID            int64           `bun:"id,pk,autoincrement"`
	ReservationID uuid.UUID       `bun:"reservation_id,notnull,type:uuid"`
	EventType     string          `bun:"event_type,notnull"`
	Payload       json.RawMessage `bun:"payload,type:jsonb,notnull"`
	Traceparent   string          `bun:"traceparent,nullzero"`
	Tracestate    string          `bun:"tracestate,nullzero"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	PublishedAt   *time.Time      `bun:"published_at"`
}

type reservationEventPayload struct {
	ReservationID  string    `json:"reservation_id"`
	ProviderID     string    `json:"provider_id"`
	ServiceID      string    `json:"service_id"`
	ClientID       string    `json:"client_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previous_status,omitempty"`
	ActorID        string    `json:"actor_id,omitempty"`
}

func NewReservationEvent(eventType string, r Reservation, previous Status, actorID string) (ReservationEvent, error) {
	payload, err := json.Marshal(reservationEventPayload{
		ReservationID:  r.ID.String(),
		ProviderID:     r.ProviderID,
		ServiceID:      r.ServiceID,
		ClientID:       r.ClientID,
		StartTime:      r.StartTime.UTC(),
		EndTime:        r.EndTime.UTC(),
		Status:         r.Status,
		PreviousStatus: previous,
		ActorID:        actorID,
	})
	if err != nil {
		return ReservationEvent{}, err
	}
	return ReservationEvent{
		ReservationID: r.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
