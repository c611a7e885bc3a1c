package timeutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceDate = time.Date(2015, 11, 23, 0, 0, 0, 0, time.UTC)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantAt      time.Time
		wantMinutes float64
	}{
		{
			name:        "Morning time",
			input:       "07:23:05",
			wantAt:      time.Date(2015, 11, 23, 7, 23, 5, 0, time.UTC),
			wantMinutes: 60*7 + 23 + 5/60.0,
		},
		{
			name:        "Afternoon time",
			input:       "14:08:30",
			wantAt:      time.Date(2015, 11, 23, 14, 8, 30, 0, time.UTC),
			wantMinutes: 60*14 + 8 + 0.5,
		},
		{
			name:        "Midnight",
			input:       "00:00:00",
			wantAt:      serviceDate,
			wantMinutes: 0,
		},
		{
			name:        "Post-midnight service rolls into next calendar day",
			input:       "25:07:00",
			wantAt:      time.Date(2015, 11, 24, 1, 7, 0, 0, time.UTC),
			wantMinutes: 60*25 + 7,
		},
		{
			name:        "Exactly 24 hours",
			input:       "24:00:00",
			wantAt:      time.Date(2015, 11, 24, 0, 0, 0, 0, time.UTC),
			wantMinutes: 1440,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input, serviceDate)
			require.NoError(t, err)
			assert.Equal(t, tt.input, got.Raw)
			assert.Equal(t, tt.wantAt, got.At)
			assert.InDelta(t, tt.wantMinutes, got.Minutes, 1e-9)
		})
	}
}

func TestParseTimeOfDay_MinutesNotWrapped(t *testing.T) {
	// Ordering across midnight depends on minute values past 1440.
	before, err := ParseTimeOfDay("23:55:00", serviceDate)
	require.NoError(t, err)
	after, err := ParseTimeOfDay("24:05:00", serviceDate)
	require.NoError(t, err)

	assert.Greater(t, after.Minutes, before.Minutes)
	assert.True(t, after.At.After(before.At))
}

func TestParseTimeOfDay_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "Empty string", input: ""},
		{name: "Too few fields", input: "07:23"},
		{name: "Too many fields", input: "07:23:05:00"},
		{name: "Non-numeric hour", input: "ab:23:05"},
		{name: "Non-numeric second", input: "07:23:xx"},
		{name: "Negative minute", input: "07:-3:05"},
		{name: "Minute out of range", input: "07:61:05"},
		{name: "Second out of range", input: "07:23:75"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTimeOfDay(tt.input, serviceDate)
			require.Error(t, err)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.input, parseErr.Value)
		})
	}
}

func TestTimeOfDay_RoundTrip(t *testing.T) {
	inputs := []string{"00:00:00", "07:23:05", "14:08:30", "23:59:59", "24:00:00", "25:07:00", "27:45:10"}

	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			tod, err := ParseTimeOfDay(s, serviceDate)
			require.NoError(t, err)

			// string -> minutes -> string reproduces the original,
			// including hours past 24
			back := FromMinutes(tod.Minutes, serviceDate)
			assert.Equal(t, s, back.String())
			assert.Equal(t, tod.At, back.At)
		})
	}
}

func TestTimeOfDay_Seconds(t *testing.T) {
	tod, err := ParseTimeOfDay("01:02:03", serviceDate)
	require.NoError(t, err)
	assert.Equal(t, 3723, tod.Seconds())
}

func TestParseServiceDate(t *testing.T) {
	d, err := ParseServiceDate("20151123")
	require.NoError(t, err)

	assert.Equal(t, 2015, d.Year())
	assert.Equal(t, time.November, d.Month())
	assert.Equal(t, 23, d.Day())
	assert.Equal(t, 0, d.Hour())
	assert.Equal(t, 0, d.Minute())
}

func TestParseServiceDate_Invalid(t *testing.T) {
	for _, s := range []string{"2015-11-23", "20151332", "junk", ""} {
		_, err := ParseServiceDate(s)
		require.Error(t, err, "input %q", s)

		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
		assert.Equal(t, "service date", parseErr.Kind)
	}
}

func TestEndOfServiceDate(t *testing.T) {
	end, err := EndOfServiceDate("20151123")
	require.NoError(t, err)

	start, err := ParseServiceDate("20151123")
	require.NoError(t, err)

	// last representable instant of the date
	assert.Equal(t, start.Add(24*time.Hour-time.Microsecond), end)
	assert.True(t, end.Before(start.Add(24*time.Hour)))

	// a timestamp at 23:59:59 on the end date is inside an inclusive range
	lateEvening := start.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	assert.False(t, lateEvening.After(end))
}
