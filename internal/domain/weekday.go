package domain

import (
	"fmt"
	"strings"
	"time"
)

// Weekday uses ISO ordinals so that ordering by the stored value yields MON..SUN.
type Weekday int16

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var (
	weekdayNames     = [...]string{"", "MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}
	weekdayLongNames = [...]string{"", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}
)

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int16(d))
	}
	return weekdayNames[d]
}

func WeekdayOf(wd time.Weekday) Weekday {
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

func ParseWeekday(s string) (Weekday, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i := Monday; i <= Sunday; i++ {
		if weekdayNames[i] == name || weekdayLongNames[i] == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid day of week %q", s)
}

func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}
