package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	cases := map[string]ClockTime{
		"08:15":    MustClock(8, 15),
		"23:59:30": MustClock(23, 59),
		" 07:00 ":  MustClock(7, 0),
		"24:00":    EndOfDay,
		"24:00:00": EndOfDay,
	}
	for raw, want := range cases {
		got, err := ParseClockTime(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"24:01", "25:00", "8am", ""} {
		_, err := ParseClockTime(raw)
		assert.Error(t, err, raw)
	}
}

func TestClockTimeEndOfDayRoundTrip(t *testing.T) {
	value, err := EndOfDay.Value()
	require.NoError(t, err)
	assert.Equal(t, "24:00:00", value)

	var scanned ClockTime
	require.NoError(t, scanned.Scan([]byte("24:00:00")))
	assert.Equal(t, EndOfDay, scanned)
	assert.True(t, scanned.Valid())
	assert.False(t, (EndOfDay + 1).Valid())
}

func TestParseDayOfWeek(t *testing.T) {
	day, err := ParseDayOfWeek("tue")
	require.NoError(t, err)
	assert.Equal(t, Tuesday, day)

	_, err = ParseDayOfWeek("someday")
	assert.Error(t, err)
}
