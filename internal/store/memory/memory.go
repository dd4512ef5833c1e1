// Package memory is an in-process implementation of the store interfaces. It
// keeps the same transactional guarantees as the Postgres store: per-resource
// serialization, all-or-nothing commits and the no-overlap constraint.
package memory

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"reservo/internal/domain"
	"reservo/internal/store"
)

type scheduleKey struct {
	providerID string
	day        domain.Weekday
}

type Store struct {
	mu           sync.RWMutex
	schedules    map[scheduleKey]domain.WeeklyWindow
	policies     map[string]domain.ServicePolicy
	reservations map[uuid.UUID]domain.Reservation
	events       []domain.ReservationEvent
	nextEventID  int64

	resourceLocks *keyedLock
	rowLocks      *keyedLock
	outboxLock    chan struct{}
}

func New() *Store {
	return &Store{
		schedules:     make(map[scheduleKey]domain.WeeklyWindow),
		policies:      make(map[string]domain.ServicePolicy),
		reservations:  make(map[uuid.UUID]domain.Reservation),
		resourceLocks: newKeyedLock(),
		rowLocks:      newKeyedLock(),
		outboxLock:    make(chan struct{}, 1),
	}
}

// PutPolicy registers a service policy. The catalog is owned by another system;
// this is how it is seeded in process.
func (s *Store) PutPolicy(p domain.ServicePolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ServiceID] = p
}

func (s *Store) GetPolicy(ctx context.Context, serviceID string) (domain.ServicePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[serviceID]
	if !ok {
		return domain.ServicePolicy{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) UpsertWindow(ctx context.Context, w domain.WeeklyWindow) (domain.WeeklyWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	k := scheduleKey{providerID: w.ProviderID, day: w.DayOfWeek}
	m, ok := s.schedules[k]
	if !ok {
		m = domain.WeeklyWindow{ProviderID: w.ProviderID, DayOfWeek: w.DayOfWeek, CreatedAt: now}
	}
	m.StartMinute = w.StartMinute
	m.EndMinute = w.EndMinute
	m.Active = true
	m.UpdatedAt = now
	s.schedules[k] = m
	return m, nil
}

func (s *Store) SetWindowActive(ctx context.Context, providerID string, day domain.Weekday, active bool) (domain.WeeklyWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := scheduleKey{providerID: providerID, day: day}
	m, ok := s.schedules[k]
	if !ok {
		return domain.WeeklyWindow{}, store.ErrNotFound
	}
	m.Active = active
	m.UpdatedAt = time.Now().UTC()
	s.schedules[k] = m
	return m, nil
}

func (s *Store) GetWindow(ctx context.Context, providerID string, day domain.Weekday) (domain.WeeklyWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.schedules[scheduleKey{providerID: providerID, day: day}]
	if !ok {
		return domain.WeeklyWindow{}, store.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListWindows(ctx context.Context, providerID string) ([]domain.WeeklyWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WeeklyWindow
	for _, day := range domain.Weekdays() {
		if m, ok := s.schedules[scheduleKey{providerID: providerID, day: day}]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) InResourceTransaction(ctx context.Context, key domain.ResourceKey, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	release, err := s.resourceLocks.acquire(ctx, key.String())
	if err != nil {
		return err
	}
	defer release()
	return s.InTransaction(ctx, fn)
}

func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	tx := &ledgerTx{s: s, staged: make(map[uuid.UUID]domain.Reservation)}
	defer tx.releaseRows()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Store) ListOccupying(ctx context.Context, key domain.ResourceKey, w domain.Window) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return occupying(s.reservations, nil, key, w), nil
}

func (s *Store) ListForActor(ctx context.Context, actor domain.Actor) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Reservation
	for _, r := range s.reservations {
		switch {
		case actor.Role == domain.RoleProvider && r.ProviderID == actor.ID,
			actor.Role == domain.RoleClient && r.ClientID == actor.ID:
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domain.Reservation) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})
	return out, nil
}

func (s *Store) PublishPending(ctx context.Context, limit int, publish func(ctx context.Context, events []domain.ReservationEvent) error) (int, error) {
	select {
	case s.outboxLock <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-s.outboxLock }()

	s.mu.RLock()
	var batch []domain.ReservationEvent
	for _, ev := range s.events {
		if ev.PublishedAt == nil {
			batch = append(batch, ev)
			if len(batch) == limit {
				break
			}
		}
	}
	s.mu.RUnlock()

	if len(batch) == 0 {
		return 0, nil
	}
	if err := publish(ctx, batch); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for i := range s.events {
		for _, ev := range batch {
			if s.events[i].ID == ev.ID {
				s.events[i].PublishedAt = &now
			}
		}
	}
	return len(batch), nil
}

// Events returns a copy of every outbox event, published or not.
func (s *Store) Events() []domain.ReservationEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

func occupying(committed, staged map[uuid.UUID]domain.Reservation, key domain.ResourceKey, w domain.Window) []domain.Reservation {
	var out []domain.Reservation
	seen := make(map[uuid.UUID]struct{}, len(staged))
	for _, set := range []map[uuid.UUID]domain.Reservation{staged, committed} {
		for id, r := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if r.Key() == key && r.Status.Occupies() && r.Window().Overlaps(w) {
				out = append(out, r)
			}
		}
	}
	slices.SortFunc(out, func(a, b domain.Reservation) int {
		return a.StartTime.Compare(b.StartTime)
	})
	return out
}
