package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"reservo/internal/domain"
	"reservo/internal/store"
)

type ScheduleRepo struct {
	db bun.IDB
}

func NewScheduleRepo(db bun.IDB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) UpsertWindow(ctx context.Context, w domain.WeeklyWindow) (domain.WeeklyWindow, error) {
	m := domain.WeeklyWindow{
		ProviderID:  w.ProviderID,
		DayOfWeek:   w.DayOfWeek,
		StartMinute: w.StartMinute,
		EndMinute:   w.EndMinute,
		Active:      true,
	}

	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (provider_id, day_of_week) DO UPDATE").
		Set("start_minute = EXCLUDED.start_minute").
		Set("end_minute = EXCLUDED.end_minute").
		Set("active = TRUE").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.WeeklyWindow{}, classify(err)
	}
	return m, nil
}

func (r *ScheduleRepo) SetWindowActive(ctx context.Context, providerID string, day domain.Weekday, active bool) (domain.WeeklyWindow, error) {
	m := domain.WeeklyWindow{ProviderID: providerID, DayOfWeek: day, Active: active}
	res, err := r.db.NewUpdate().
		Model(&m).
		Column("active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.WeeklyWindow{}, classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WeeklyWindow{}, err
	}
	if affected == 0 {
		return domain.WeeklyWindow{}, store.ErrNotFound
	}
	return r.GetWindow(ctx, providerID, day)
}

func (r *ScheduleRepo) GetWindow(ctx context.Context, providerID string, day domain.Weekday) (domain.WeeklyWindow, error) {
	var m domain.WeeklyWindow
	err := r.db.NewSelect().
		Model(&m).
		Where("provider_id = ?", providerID).
		Where("day_of_week = ?", day).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.WeeklyWindow{}, classify(err)
	}
	return m, nil
}

func (r *ScheduleRepo) ListWindows(ctx context.Context, providerID string) ([]domain.WeeklyWindow, error) {
	var rows []domain.WeeklyWindow
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		OrderExpr("day_of_week ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type Catalog struct {
	db bun.IDB
}

func NewCatalog(db bun.IDB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) GetPolicy(ctx context.Context, serviceID string) (domain.ServicePolicy, error) {
	var m domain.ServicePolicy
	err := c.db.NewSelect().
		Model(&m).
		Where("id = ?", serviceID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.ServicePolicy{}, classify(err)
	}
	return m, nil
}
