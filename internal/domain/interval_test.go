package domain

import (
	"errors"
	"testing"
	"time"
)

func TestToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{in: "00:00", want: 0},
		{in: "09:00", want: 540},
		{in: "9:05", want: 545},
		{in: "17:30:00", want: 1050},
		{in: "23:59:59", want: 1439},
	}
	for _, tt := range tests {
		got, err := ToMinutes(tt.in)
		if err != nil {
			t.Fatalf("ToMinutes(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ToMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseWindowEnd(t *testing.T) {
	for in, want := range map[string]ClockTime{"24:00": MinutesPerDay, "24:00:00": MinutesPerDay, "17:00": 1020} {
		got, err := ParseWindowEnd(in)
		if err != nil {
			t.Fatalf("ParseWindowEnd(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseWindowEnd(%q) = %d, want %d", in, got, want)
		}
	}
	for _, in := range []string{"24:01", "24:00:01", "25:00"} {
		if _, err := ParseWindowEnd(in); !errors.Is(err, ErrMalformedTime) {
			t.Fatalf("ParseWindowEnd(%q) err = %v, want ErrMalformedTime", in, err)
		}
	}

	end, _ := ParseWindowEnd("24:00")
	w := WeeklyWindow{ProviderID: "p1", DayOfWeek: Friday, StartMinute: 22 * 60, EndMinute: end, Active: true}
	if err := w.Validate(); err != nil {
		t.Fatalf("Validate() error for window ending at midnight: %v", err)
	}
	if got := ToClock(int(end)); got != "24:00" {
		t.Fatalf("ToClock(%d) = %q, want 24:00", end, got)
	}
}

func TestToMinutes_Malformed(t *testing.T) {
	for _, in := range []string{"", "9", "24:00", "24:01", "12:60", "12:00:60", "ab:cd", "12:5x", "1:2:3:4", "123:00", "-1:00"} {
		t.Run(in, func(t *testing.T) {
			_, err := ToMinutes(in)
			if !errors.Is(err, ErrMalformedTime) {
				t.Fatalf("ToMinutes(%q) err = %v, want ErrMalformedTime", in, err)
			}
		})
	}
}

func TestToClock(t *testing.T) {
	if got := ToClock(545); got != "09:05" {
		t.Fatalf("ToClock(545) = %q, want %q", got, "09:05")
	}
	if got := ToClock(0); got != "00:00" {
		t.Fatalf("ToClock(0) = %q, want %q", got, "00:00")
	}
	if got := ClockTime(1439).String(); got != "23:59" {
		t.Fatalf("ClockTime(1439) = %q, want %q", got, "23:59")
	}
}

func TestOverlaps(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2026, 1, 5, h, m, 0, 0, time.UTC) }
	base := Window{Start: at(10, 0), End: at(11, 0)}

	tests := []struct {
		name  string
		other Window
		want  bool
	}{
		{name: "identical", other: base, want: true},
		{name: "touching before", other: Window{Start: at(9, 0), End: at(10, 0)}, want: false},
		{name: "touching after", other: Window{Start: at(11, 0), End: at(12, 0)}, want: false},
		{name: "partial start", other: Window{Start: at(9, 30), End: at(10, 30)}, want: true},
		{name: "partial end", other: Window{Start: at(10, 59), End: at(12, 0)}, want: true},
		{name: "contained", other: Window{Start: at(10, 15), End: at(10, 45)}, want: true},
		{name: "containing", other: Window{Start: at(8, 0), End: at(12, 0)}, want: true},
		{name: "disjoint", other: Window{Start: at(13, 0), End: at(14, 0)}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(base, tt.other); got != tt.want {
				t.Fatalf("Overlaps(base, other) = %v, want %v", got, tt.want)
			}
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Fatalf("Overlaps(other, base) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2026-01-05")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if d.Weekday() != Monday {
		t.Fatalf("weekday = %s, want MON", d.Weekday())
	}
	if d.String() != "2026-01-05" {
		t.Fatalf("String() = %q", d.String())
	}

	loc := time.FixedZone("UTC+2", 2*60*60)
	span := d.Span(loc)
	if got := span.End.Sub(span.Start); got != 24*time.Hour {
		t.Fatalf("span = %v, want 24h", got)
	}
	if got := d.At(loc, 9*60).UTC(); !got.Equal(time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("At = %v", got)
	}

	if _, err := ParseDate("2026-13-01"); err == nil {
		t.Fatalf("expected error for invalid month")
	}
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]Weekday{"MON": Monday, "sunday": Sunday, " Wed ": Wednesday, "Thursday": Thursday} {
		got, err := ParseWeekday(in)
		if err != nil {
			t.Fatalf("ParseWeekday(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseWeekday(%q) = %s, want %s", in, got, want)
		}
	}
	for _, in := range []string{"XYZ", "MONKEY", "TUESDAYS", "THURS", "SU"} {
		if _, err := ParseWeekday(in); err == nil {
			t.Fatalf("ParseWeekday(%q): expected error", in)
		}
	}
	if WeekdayOf(time.Sunday) != Sunday || WeekdayOf(time.Monday) != Monday {
		t.Fatalf("WeekdayOf mapping is not ISO")
	}
}
