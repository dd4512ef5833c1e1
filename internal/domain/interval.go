package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const MinutesPerDay = 24 * 60

// ClockTime is a wall-clock time of day expressed as minutes since midnight.
type ClockTime int

func (c ClockTime) String() string {
	return ToClock(int(c))
}

func (c ClockTime) Duration() time.Duration {
	return time.Duration(c) * time.Minute
}

// ParseClock parses "HH:MM" or "HH:MM:SS". Seconds are validated and then dropped.
func ParseClock(s string) (ClockTime, error) {
	m, err := ToMinutes(s)
	if err != nil {
		return 0, err
	}
	return ClockTime(m), nil
}

func ToMinutes(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}

	limits := []int{23, 59, 59}
	values := make([]int, len(parts))
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
		}
		values[i] = n
	}

	return values[0]*60 + values[1], nil
}

// ParseWindowEnd is ParseClock plus "24:00", which can only close a window.
func ParseWindowEnd(s string) (ClockTime, error) {
	switch strings.TrimSpace(s) {
	case "24:00", "24:00:00":
		return ClockTime(MinutesPerDay), nil
	}
	return ParseClock(s)
}

// ToClock renders minutes since midnight as zero-padded "HH:MM".
func ToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Valid() bool {
	return w.Start.Before(w.End)
}

func (w Window) Overlaps(other Window) bool {
	return Overlaps(w, other)
}

// Overlaps reports whether two half-open windows intersect. Touching windows
// (a.End == b.Start) do not overlap, which is what allows back-to-back bookings.
func Overlaps(a, b Window) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Date is a calendar day with no zone attached.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return DateOf(t), nil
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// At returns the instant at clock c on this date in loc.
func (d Date) At(loc *time.Location, c ClockTime) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc).Add(c.Duration())
}

// Span returns the whole calendar day [00:00, next 00:00) in loc.
func (d Date) Span(loc *time.Location) Window {
	start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

func (d Date) Weekday() Weekday {
	return WeekdayOf(time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday())
}
