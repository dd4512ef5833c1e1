package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type DurationUnit string

const (
	DurationUnitMinutes DurationUnit = "MINUTES"
	DurationUnitDays    DurationUnit = "DAYS"
)

func ParseDurationUnit(s string) (DurationUnit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MINUTES", "MINS", "MIN":
		return DurationUnitMinutes, nil
	case "DAYS", "DAY":
		return DurationUnitDays, nil
	}
	return "", fmt.Errorf("invalid duration unit %q", s)
}

type ServicePolicy struct {
	bun.BaseModel `bun:"table:services"`

	ServiceID     string       `bun:"id,pk"`
	ProviderID    string       `bun:"provider_id,notnull"`
	DurationValue int          `bun:"duration,notnull"`
	DurationUnit  DurationUnit `bun:"duration_unit,notnull"`
}

// Duration is the length of one booking for MINUTES policies. DAYS policies block
// until the end of the calendar day and do not use it.
func (p ServicePolicy) Duration() time.Duration {
	return time.Duration(p.DurationValue) * time.Minute
}

func (p ServicePolicy) BlocksWholeDay() bool {
	return p.DurationUnit == DurationUnitDays
}

func (p ServicePolicy) OwnedBy(providerID string) bool {
	return p.ProviderID == providerID
}
