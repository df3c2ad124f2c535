package model

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// DateRange is an inclusive range of UTC calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDate parses an exact YYYY-MM-DD string that denotes a real calendar day.
// Values that normalize to a different day (e.g. 2024-02-30) are rejected, as is any
// surrounding whitespace.
func ParseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil || t.Format(DateLayout) != value {
		return time.Time{}, fmt.Errorf("%s must be a valid date in YYYY-MM-DD format", field)
	}
	return t, nil
}

// ParseDateRange validates a launch window against now.
// The start may be at most maxAge in the past (maxAge <= 0 disables the check) and the end
// may be at most one day after today.
func ParseDateRange(start, end string, now time.Time, maxAge time.Duration) (DateRange, error) {
	s, err := ParseDate("start_date", start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate("end_date", end)
	if err != nil {
		return DateRange{}, err
	}
	if s.After(e) {
		return DateRange{}, fmt.Errorf("start_date must be on or before end_date")
	}

	today := Today(now)
	if maxAge > 0 {
		oldest := today.Add(-maxAge)
		if s.Before(oldest) {
			return DateRange{}, fmt.Errorf("start_date cannot be earlier than %s", oldest.Format(DateLayout))
		}
	}
	tomorrow := today.AddDate(0, 0, 1)
	if e.After(tomorrow) {
		return DateRange{}, fmt.Errorf("end_date cannot be later than %s", tomorrow.Format(DateLayout))
	}
	return DateRange{Start: s, End: e}, nil
}

// LastDays returns the range covering the n days ending today.
func LastDays(now time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	today := Today(now)
	return DateRange{Start: today.AddDate(0, 0, -(n - 1)), End: today}
}

// Today truncates now to the UTC calendar day.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days yields every day in the range in ascending order.
func (r DateRange) Days() iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// NumDays returns the number of days in the range.
func (r DateRange) NumDays() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// StartKey returns the first day's partition key.
func (r DateRange) StartKey() string { return r.Start.Format(DateLayout) }

// EndKey returns the last day's partition key.
func (r DateRange) EndKey() string { return r.End.Format(DateLayout) }
