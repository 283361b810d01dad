package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses an ISO-8601 timestamp. A timestamp without an offset
// is read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ParseBound parses a week bound. A bare YYYY-MM-DD date is read in loc at
// 00:00:00, or 23:59:59 when end is set. Anything else goes through
// ParseTimestamp.
func ParseBound(s string, loc *time.Location, end bool) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		if end {
			d = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, loc)
		}
		return d.UTC(), nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or an ISO-8601 timestamp", s)
	}
	return t, nil
}

// WeekRange parses both bounds of a scheduling range.
func WeekRange(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	from, err := ParseBound(start, loc, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseBound(end, loc, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("range end %s is not after start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return from, to, nil
}
