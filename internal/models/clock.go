package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DayOfWeek enumerates the weekly days a class period can occupy.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekOrder = map[DayOfWeek]int{
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
	Saturday:  6,
	Sunday:    7,
}

// ParseDayOfWeek normalises user input ("mon", "Monday", "MONDAY") into a DayOfWeek.
func ParseDayOfWeek(raw string) (DayOfWeek, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for day := range weekOrder {
		if string(day) == value || string(day)[:3] == value {
			return day, nil
		}
	}
	return "", fmt.Errorf("unknown day of week %q", raw)
}

// Valid reports whether d is one of the seven known days.
func (d DayOfWeek) Valid() bool {
	_, ok := weekOrder[d]
	return ok
}

// Ordinal returns 1 for Monday through 7 for Sunday, 0 when unknown.
func (d DayOfWeek) Ordinal() int {
	return weekOrder[d]
}

// ClockTime is a wall-clock time of day with minute precision, stored as minutes after midnight.
type ClockTime int

const minutesPerDay = 24 * 60

// EndOfDay is 24:00. It is only meaningful as the end of a period that runs until midnight.
const EndOfDay ClockTime = minutesPerDay

// NewClockTime builds a ClockTime from hour and minute components.
func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid clock time %02d:%02d", hour, minute)
	}
	return ClockTime(hour*60 + minute), nil
}

// MustClock is NewClockTime for literals; it panics on invalid input.
func MustClock(hour, minute int) ClockTime {
	c, err := NewClockTime(hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClockTime accepts "HH:MM" or "HH:MM:SS" (seconds are discarded) plus "24:00" for EndOfDay.
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	if raw == "24:00" || raw == "24:00:00" {
		return EndOfDay, nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return ClockTime(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q, expected HH:MM", raw)
}

// Hour returns the hour component.
func (c ClockTime) Hour() int { return int(c) / 60 }

// Minute returns the minute component.
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Valid reports whether c lies within a single day, EndOfDay included.
func (c ClockTime) Valid() bool {
	return c >= 0 && c <= EndOfDay
}

// MarshalJSON renders the time as "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON parses "HH:MM".
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("clock time must be a string: %w", err)
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the time as a postgres TIME literal.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String() + ":00", nil
}

// Scan reads postgres TIME columns delivered as text or time.Time.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case time.Time:
		*c = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

func (c *ClockTime) scanString(raw string) error {
	// lib/pq may append fractional seconds or a zone to TIME values.
	if idx := strings.IndexAny(raw, ".+-"); idx > 0 {
		raw = raw[:idx]
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
