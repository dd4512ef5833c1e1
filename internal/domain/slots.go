package domain

import (
	"iter"
	"time"
)

// SlotStep is the cadence at which candidate start times are generated.
const SlotStep = 30 * time.Minute

// lastDayClock ends a whole-day booking made through a slot request.
const lastDayClock ClockTime = 23*60 + 59

// PlanSlots yields the start times on date that a new reservation under policy could
// take without overlapping busy. busy must hold the occupying windows of the
// resource key; the sequence is recomputed on every iteration.
func PlanSlots(policy ServicePolicy, date Date, window WeeklyWindow, busy []Window, loc *time.Location) iter.Seq[ClockTime] {
	return func(yield func(ClockTime) bool) {
		if !window.Active || window.Validate() != nil {
			return
		}

		if policy.BlocksWholeDay() {
			day := date.Span(loc)
			for _, b := range busy {
				if Overlaps(day, b) {
					return
				}
			}
			yield(window.StartMinute)
			return
		}

		dur := policy.Duration()
		if dur <= 0 {
			return
		}
		base := date.At(loc, 0)
		start := window.StartMinute.Duration()
		end := window.EndMinute.Duration()

		for t := start; t+dur <= end; t += SlotStep {
			candidate := Window{Start: base.Add(t), End: base.Add(t + dur)}
			if overlapsAny(candidate, busy) {
				continue
			}
			if !yield(ClockTime(t / time.Minute)) {
				return
			}
		}
	}
}

func overlapsAny(w Window, busy []Window) bool {
	for _, b := range busy {
		if Overlaps(w, b) {
			return true
		}
	}
	return false
}

// BookingRequest is either a RangeRequest or a SlotRequest.
type BookingRequest interface {
	bookingRequest()
}

// RangeRequest books the exact instants given.
type RangeRequest struct {
	Start time.Time
	End   time.Time
}

// SlotRequest books a start time on a calendar day; the end follows from the
// service policy.
type SlotRequest struct {
	Date  Date
	Start ClockTime
}

func (RangeRequest) bookingRequest() {}
func (SlotRequest) bookingRequest()  {}

// ResolveWindow turns a booking request into the canonical half-open window.
func ResolveWindow(req BookingRequest, policy ServicePolicy, loc *time.Location) (Window, error) {
	var w Window
	switch r := req.(type) {
	case RangeRequest:
		w = Window{Start: r.Start, End: r.End}
	case SlotRequest:
		if r.Date.IsZero() || r.Start < 0 || r.Start >= MinutesPerDay {
			return Window{}, ErrInvalidWindow
		}
		start := r.Date.At(loc, r.Start)
		if policy.BlocksWholeDay() {
			w = Window{Start: start, End: r.Date.At(loc, lastDayClock)}
		} else {
			w = Window{Start: start, End: start.Add(policy.Duration())}
		}
	default:
		return Window{}, ErrInvalidWindow
	}

	if !w.Valid() {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

// OccupancySpan is the window an admission must find free. A whole-day slot
// request conflicts with anything on its calendar day, matching PlanSlots.
func OccupancySpan(req BookingRequest, policy ServicePolicy, w Window, loc *time.Location) Window {
	if r, ok := req.(SlotRequest); ok && policy.BlocksWholeDay() {
		return r.Date.Span(loc)
	}
	return w
}
