package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"reservo/internal/domain"
	"reservo/internal/store"
)

type Ledger struct {
	db          bun.IDB
	lockTimeout time.Duration
}

// NewLedger returns a ledger over db. A positive lockTimeout bounds how long a
// transaction waits for any lock before failing with store.ErrContention.
func NewLedger(db bun.IDB, lockTimeout time.Duration) *Ledger {
	return &Ledger{db: db, lockTimeout: lockTimeout}
}

type ledgerTx struct {
	tx bun.Tx
}

func (l *Ledger) InResourceTransaction(ctx context.Context, key domain.ResourceKey, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := setLockTimeout(ctx, tx, l.lockTimeout); err != nil {
			return err
		}
		if err := lockResource(ctx, tx, key); err != nil {
			return err
		}
		return fn(ctx, ledgerTx{tx: tx})
	})
	return classify(err)
}

func (l *Ledger) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := setLockTimeout(ctx, tx, l.lockTimeout); err != nil {
			return err
		}
		return fn(ctx, ledgerTx{tx: tx})
	})
	return classify(err)
}

func (l *Ledger) ListOccupying(ctx context.Context, key domain.ResourceKey, w domain.Window) ([]domain.Reservation, error) {
	var rows []domain.Reservation
	err := occupyingQuery(l.db.NewSelect().Model(&rows), key, w).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (l *Ledger) ListForActor(ctx context.Context, actor domain.Actor) ([]domain.Reservation, error) {
	var rows []domain.Reservation
	q := l.db.NewSelect().Model(&rows)
	switch actor.Role {
	case domain.RoleProvider:
		q = q.Where("provider_id = ?", actor.ID)
	case domain.RoleClient:
		q = q.Where("client_id = ?", actor.ID)
	default:
		return nil, nil
	}
	if err := q.OrderExpr("start_time DESC").OrderExpr("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func setLockTimeout(ctx context.Context, tx bun.Tx, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	_, err := tx.NewRaw("SELECT set_config('lock_timeout', ?, true)", lockTimeoutSetting(timeout)).Exec(ctx)
	return err
}

// lockTimeoutSetting renders d as whole milliseconds, rounded up, which is a
// unit Postgres accepts for lock_timeout.
func lockTimeoutSetting(d time.Duration) string {
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms < 1 {
		ms = 1
	}
	return strconv.FormatInt(int64(ms), 10) + "ms"
}

func lockResource(ctx context.Context, tx bun.Tx, key domain.ResourceKey) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "reservation:"+key.String()).Exec(ctx)
	return err
}

func occupyingQuery(q *bun.SelectQuery, key domain.ResourceKey, w domain.Window) *bun.SelectQuery {
	return q.
		Where("provider_id = ?", key.ProviderID).
		Where("service_id = ?", key.ServiceID).
		Where("status IN (?)", bun.In(domain.OccupyingStatuses())).
		Where("start_time < ?", w.End.UTC()).
		Where("end_time > ?", w.Start.UTC()).
		OrderExpr("start_time ASC")
}

func (r ledgerTx) GetReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var m domain.Reservation
	err := r.tx.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return domain.Reservation{}, classify(err)
	}
	return m, nil
}

func (r ledgerTx) LockReservation(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var m domain.Reservation
	err := r.tx.NewSelect().Model(&m).Where("id = ?", id).For("UPDATE").Limit(1).Scan(ctx)
	if err != nil {
		return domain.Reservation{}, classify(err)
	}
	return m, nil
}

func (r ledgerTx) ListOccupying(ctx context.Context, key domain.ResourceKey, w domain.Window) ([]domain.Reservation, error) {
	var rows []domain.Reservation
	err := occupyingQuery(r.tx.NewSelect().Model(&rows), key, w).For("UPDATE").Scan(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func (r ledgerTx) InsertReservation(ctx context.Context, in domain.Reservation) (domain.Reservation, error) {
	m := in
	res, err := r.tx.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return domain.Reservation{}, classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Reservation{}, err
	}
	if affected == 1 {
		return m, nil
	}

	// The id was already taken: this is a replay of an idempotent admission.
	existing, err := r.GetReservation(ctx, m.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Reservation{}, store.ErrIdempotencyConflict
		}
		return domain.Reservation{}, err
	}
	if !existing.SameRequest(in) {
		return domain.Reservation{}, store.ErrIdempotencyConflict
	}
	return existing, nil
}

func (r ledgerTx) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (domain.Reservation, error) {
	m, err := r.LockReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	m.Status = status

	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Reservation{}, classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Reservation{}, err
	}
	if affected == 0 {
		return domain.Reservation{}, store.ErrNotFound
	}
	return m, nil
}

func (r ledgerTx) AppendEvent(ctx context.Context, ev domain.ReservationEvent) error {
	_, err := r.tx.NewInsert().Model(&ev).ExcludeColumn("id").Exec(ctx)
	return classify(err)
}
