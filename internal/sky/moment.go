package sky

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseMoment combines a calendar date and an hour of day into a UTC
// instant. The date is "YYYY-MM-DD"; anything after a 'T' or a space (a
// time-of-day suffix from date pickers) is ignored.
func ParseMoment(date string, hour int) (time.Time, error) {
	day := strings.TrimSpace(date)
	if i := strings.IndexAny(day, "T "); i >= 0 {
		day = day[:i]
	}

	d, err := time.Parse(dateLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", date, ErrInvalidInstant)
	}
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("hour %d outside [0, 23]: %w", hour, ErrInvalidInstant)
	}

	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC), nil
}

// ObservationInstant returns base shifted by offsetHours. Offsets are always
// applied to the same base, never chained.
func ObservationInstant(base time.Time, offsetHours int) time.Time {
	return base.Add(time.Duration(offsetHours) * time.Hour)
}
