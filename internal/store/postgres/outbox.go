package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"reservo/internal/domain"
)

type Outbox struct {
	db bun.IDB
}

func NewOutbox(db bun.IDB) *Outbox {
	return &Outbox{db: db}
}

// PublishPending claims a batch with SKIP LOCKED so that several publishers can
// share the table without handing out the same event twice.
func (o *Outbox) PublishPending(ctx context.Context, limit int, publish func(ctx context.Context, events []domain.ReservationEvent) error) (int, error) {
	var n int
	err := o.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var events []domain.ReservationEvent
		err := tx.NewSelect().
			Model(&events).
			Where("published_at IS NULL").
			OrderExpr("id ASC").
			Limit(limit).
			For("UPDATE SKIP LOCKED").
			Scan(ctx)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		if err := publish(ctx, events); err != nil {
			return err
		}

		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		_, err = tx.NewUpdate().
			Model((*domain.ReservationEvent)(nil)).
			Set("published_at = now()").
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return err
		}
		n = len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
