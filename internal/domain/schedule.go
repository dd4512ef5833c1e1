package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type WeeklyWindow struct {
	bun.BaseModel `bun:"table:provider_schedules"`

	ProviderID  string    `bun:"provider_id,pk"`
	DayOfWeek   Weekday   `bun:"day_of_week,pk,type:smallint"`
	StartMinute ClockTime `bun:"start_minute,notnull"`
	EndMinute   ClockTime `bun:"end_minute,notnull"`
	Active      bool      `bun:"active,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func (w *WeeklyWindow) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		if w.UpdatedAt.IsZero() {
			w.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		w.UpdatedAt = now
	}
	return nil
}

func (w WeeklyWindow) Validate() error {
	if !w.DayOfWeek.Valid() {
		return ErrInvalidWindow
	}
	if w.StartMinute < 0 || w.EndMinute > MinutesPerDay || w.StartMinute >= w.EndMinute {
		return ErrInvalidWindow
	}
	return nil
}

// On returns the concrete window for date in loc.
func (w WeeklyWindow) On(d Date, loc *time.Location) Window {
	return Window{Start: d.At(loc, w.StartMinute), End: d.At(loc, w.EndMinute)}
}
