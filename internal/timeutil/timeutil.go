// Package timeutil converts between the three representations of a
// schedule time-of-day: the HH:MM:SS string found in source files, an
// absolute timestamp anchored to a service date, and a float count of
// minutes after midnight of the service date.
//
// Hours of 24 and above are valid and denote service continuing past
// midnight on the same service day ("25:07:00" is 1:07 AM the next
// calendar day). The minute value is never wrapped modulo 1440, so
// ordering is preserved across midnight.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseError reports a malformed time-of-day or date string.
type ParseError struct {
	Kind   string // "time of day" or "service date"
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s: %s", e.Value, e.Kind, e.Reason)
}

// TimeOfDay is a schedule time in all three representations, kept in sync.
type TimeOfDay struct {
	// Raw is the source string, e.g. "07:23:05" or "25:07:00".
	Raw string
	// At is the absolute timestamp: service date plus the time of day,
	// with hour overflow carried into the following calendar day.
	At time.Time
	// Minutes is minutes after midnight of the service date. Values past
	// 1440 are preserved for post-midnight service.
	Minutes float64

	hour, min, sec int
}

// ParseTimeOfDay parses an HH:MM:SS string anchored to the given service date.
// serviceDate must be a midnight timestamp (see clock.Midnight).
func ParseTimeOfDay(s string, serviceDate time.Time) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return TimeOfDay{}, &ParseError{Kind: "time of day", Value: s, Reason: "expected three colon-separated fields"}
	}

	var fields [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return TimeOfDay{}, &ParseError{Kind: "time of day", Value: s, Reason: "non-numeric field " + strconv.Quote(p)}
		}
		if v < 0 {
			return TimeOfDay{}, &ParseError{Kind: "time of day", Value: s, Reason: "negative field " + strconv.Quote(p)}
		}
		fields[i] = v
	}
	hour, min, sec := fields[0], fields[1], fields[2]
	if min > 59 || sec > 59 {
		return TimeOfDay{}, &ParseError{Kind: "time of day", Value: s, Reason: "minute and second fields must be 0-59"}
	}

	offset := time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second
	return TimeOfDay{
		Raw:     s,
		At:      serviceDate.Add(offset),
		Minutes: float64(60*hour+min) + float64(sec)/60.0,
		hour:    hour,
		min:     min,
		sec:     sec,
	}, nil
}

// String renders the canonical HH:MM:SS form, with hours of 24 or more
// preserved rather than wrapped.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.hour, t.min, t.sec)
}

// Seconds returns whole seconds after midnight of the service day.
func (t TimeOfDay) Seconds() int {
	return 3600*t.hour + 60*t.min + t.sec
}

// FromMinutes reconstructs a TimeOfDay from an unwrapped minutes-after-midnight
// value anchored to serviceDate. Fractional minutes become seconds, rounded to
// the nearest second.
func FromMinutes(minutes float64, serviceDate time.Time) TimeOfDay {
	total := int(minutes*60 + 0.5)
	hour := total / 3600
	min := (total % 3600) / 60
	sec := total % 60
	t := TimeOfDay{
		At:      serviceDate.Add(time.Duration(total) * time.Second),
		Minutes: minutes,
		hour:    hour,
		min:     min,
		sec:     sec,
	}
	t.Raw = t.String()
	return t
}

const serviceDateLayout = "20060102"

// ParseServiceDate parses a YYYYMMDD string into local midnight of that date.
func ParseServiceDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(serviceDateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, &ParseError{Kind: "service date", Value: s, Reason: "expected YYYYMMDD"}
	}
	return d, nil
}

// EndOfServiceDate parses a YYYYMMDD string into the last representable
// instant of that date (23:59:59.999999), so inclusive range checks are
// correct at the boundary.
func EndOfServiceDate(s string) (time.Time, error) {
	d, err := ParseServiceDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return d.Add(24*time.Hour - time.Microsecond), nil
}
