package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"reservo/internal/domain"
	"reservo/internal/store"
)

type ledgerTx struct {
	s      *Store
	staged map[uuid.UUID]domain.Reservation
	events []domain.ReservationEvent
	held   []func()
	locked map[uuid.UUID]struct{}
}

func (t *ledgerTx) lookup(id uuid.UUID) (domain.Reservation, bool) {
	if r, ok := t.staged[id]; ok {
		return r, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	r, ok := t.s.reservations[id]
	return r, ok
}

func (t *ledgerTx) GetReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	r, ok := t.lookup(id)
	if !ok {
		return domain.Reservation{}, store.ErrNotFound
	}
	return r, nil
}

func (t *ledgerTx) LockReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	if _, ok := t.locked[id]; !ok {
		release, err := t.s.rowLocks.acquire(ctx, id.String())
		if err != nil {
			return domain.Reservation{}, err
		}
		t.held = append(t.held, release)
		if t.locked == nil {
			t.locked = make(map[uuid.UUID]struct{})
		}
		t.locked[id] = struct{}{}
	}
	return t.GetReservation(ctx, id)
}

func (t *ledgerTx) ListOccupying(ctx context.Context, key domain.ResourceKey, w domain.Window) ([]domain.Reservation, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return occupying(t.s.reservations, t.staged, key, w), nil
}

func (t *ledgerTx) InsertReservation(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	if r.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Reservation{}, err
		}
		r.ID = id
	}

	if existing, ok := t.lookup(r.ID); ok {
		if !existing.SameRequest(r) {
			return domain.Reservation{}, store.ErrIdempotencyConflict
		}
		return existing, nil
	}

	if r.Status.Occupies() {
		t.s.mu.RLock()
		clash := len(occupying(t.s.reservations, t.staged, r.Key(), r.Window())) > 0
		t.s.mu.RUnlock()
		if clash {
			return domain.Reservation{}, store.ErrConflict
		}
	}

	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	t.staged[r.ID] = r
	return r, nil
}

func (t *ledgerTx) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Reservation, error) {
	r, err := t.LockReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	t.staged[id] = r
	return r, nil
}

func (t *ledgerTx) AppendEvent(ctx context.Context, ev domain.ReservationEvent) error {
	t.events = append(t.events, ev)
	return nil
}

func (t *ledgerTx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, r := range t.staged {
		if _, existed := t.s.reservations[id]; existed || !r.Status.Occupies() {
			continue
		}
		for _, other := range occupying(t.s.reservations, nil, r.Key(), r.Window()) {
			if other.ID != id {
				return store.ErrConflict
			}
		}
	}

	for id, r := range t.staged {
		t.s.reservations[id] = r
	}
	now := time.Now().UTC()
	for _, ev := range t.events {
		t.s.nextEventID++
		ev.ID = t.s.nextEventID
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = now
		}
		t.s.events = append(t.s.events, ev)
	}
	return nil
}

func (t *ledgerTx) releaseRows() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i]()
	}
	t.held = nil
}

// keyedLock is a set of mutexes addressed by string that can be waited on with a
// context.
type keyedLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{slots: make(map[string]chan struct{})}
}

func (l *keyedLock) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
