// Package timetable detects collisions between weekly class periods.
//
// Everything here is a pure function over values supplied by the caller: no persistence access, no
// shared state. Intervals are half-open, so a period ending at 10:00 and another starting at 10:00 on
// the same day never collide.
package timetable

import (
	"fmt"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

// Interval is a validated [Start, End) span on one day of the week.
type Interval struct {
	day   models.DayOfWeek
	start models.ClockTime
	end   models.ClockTime
}

// NewInterval validates and builds an interval. Zero-length and inverted spans are rejected.
func NewInterval(day models.DayOfWeek, start, end models.ClockTime) (Interval, error) {
	if !day.Valid() {
		return Interval{}, fmt.Errorf("unknown day of week %q", day)
	}
	if !start.Valid() || !end.Valid() {
		return Interval{}, fmt.Errorf("time of day out of range: %s-%s", start, end)
	}
	if start >= end {
		return Interval{}, fmt.Errorf("start time %s must be before end time %s", start, end)
	}
	return Interval{day: day, start: start, end: end}, nil
}

// IntervalOf builds the interval of a schedule entry.
func IntervalOf(entry models.ScheduleEntry) (Interval, error) {
	return NewInterval(entry.DayOfWeek, entry.StartTime, entry.EndTime)
}

// Day returns the day of week.
func (i Interval) Day() models.DayOfWeek { return i.day }

// Start returns the inclusive start time.
func (i Interval) Start() models.ClockTime { return i.start }

// End returns the exclusive end time.
func (i Interval) End() models.ClockTime { return i.end }

// Duration returns the length of the interval in minutes.
func (i Interval) Duration() int { return int(i.end - i.start) }

func (i Interval) String() string {
	return fmt.Sprintf("%s %s-%s", i.day, i.start, i.end)
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not count.
func Overlaps(a, b Interval) bool {
	return a.day == b.day && a.start < b.end && b.start < a.end
}
