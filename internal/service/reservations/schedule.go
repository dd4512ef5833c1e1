package reservations

import (
	"context"
	"errors"
	"strings"

	"reservo/internal/domain"
	"reservo/internal/store"
)

type UpsertWindowInput struct {
	ProviderID string
	Day        domain.Weekday
	Start      domain.ClockTime
	End        domain.ClockTime
}

// UpsertWeeklyWindow replaces the provider's hours for one weekday and activates
// the day.
func (s *Service) UpsertWeeklyWindow(ctx context.Context, in UpsertWindowInput) (domain.WeeklyWindow, error) {
	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		return domain.WeeklyWindow{}, validationError("provider_id is required")
	}
	if !in.Day.Valid() {
		return domain.WeeklyWindow{}, validationError("invalid day_of_week")
	}

	w := domain.WeeklyWindow{
		ProviderID:  providerID,
		DayOfWeek:   in.Day,
		StartMinute: in.Start,
		EndMinute:   in.End,
		Active:      true,
	}
	if err := w.Validate(); err != nil {
		return domain.WeeklyWindow{}, err
	}
	return s.schedule.UpsertWindow(ctx, w)
}

// SetWeeklyWindowActive turns a configured day on or off without touching its
// hours.
func (s *Service) SetWeeklyWindowActive(ctx context.Context, providerID string, day domain.Weekday, active bool) (domain.WeeklyWindow, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return domain.WeeklyWindow{}, validationError("provider_id is required")
	}
	if !day.Valid() {
		return domain.WeeklyWindow{}, validationError("invalid day_of_week")
	}

	w, err := s.schedule.SetWindowActive(ctx, providerID, day, active)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.WeeklyWindow{}, domain.ErrWindowNotFound
		}
		return domain.WeeklyWindow{}, err
	}
	return w, nil
}

func (s *Service) GetWeeklySchedule(ctx context.Context, providerID string) ([]domain.WeeklyWindow, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, validationError("provider_id is required")
	}
	rows, err := s.schedule.ListWindows(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.WeeklyWindow{}
	}
	return rows, nil
}
