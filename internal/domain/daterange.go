package domain

import (
	"fmt"
	"time"
)

// Archive availability bounds. The EA keeps roughly two years of daily
// archive files, and the newest days appear with a publication lag.
const (
	archiveMaxAge     = 730 * 24 * time.Hour
	archivePublishLag = 48 * time.Hour
)

// DayFormat is the calendar-day layout used in archive file names and CLI
// flags.
const DayFormat = "2006-01-02"

// DateRange is an inclusive [Start, End] interval in UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range, rejecting a start after its end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.After(end) {
		return DateRange{}, fmt.Errorf("range start %s is after end %s",
			start.Format(DayFormat), end.Format(DayFormat))
	}
	return DateRange{Start: start.UTC(), End: end.UTC()}, nil
}

// Days returns one midnight-UTC instant per calendar day the range touches,
// inclusive of both endpoints.
func (r DateRange) Days() []time.Time {
	first := midnightUTC(r.Start)
	last := midnightUTC(r.End)
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Split divides the range into count consecutive sub-ranges of equal
// duration. The last sub-range absorbs any rounding remainder so the union
// always covers [Start, End] exactly.
func (r DateRange) Split(count int) ([]DateRange, error) {
	if count < 1 {
		return nil, fmt.Errorf("split count must be positive, got %d", count)
	}
	step := r.End.Sub(r.Start) / time.Duration(count)
	out := make([]DateRange, 0, count)
	prev := r.Start
	for i := 1; i <= count; i++ {
		next := r.Start.Add(step * time.Duration(i))
		if i == count {
			next = r.End
		}
		out = append(out, DateRange{Start: prev, End: next})
		prev = next
	}
	return out, nil
}

// ValidateArchiveRange checks that the range falls inside the archive's
// availability window relative to the current clock: no older than 730 days
// and at least two days behind now.
func ValidateArchiveRange(r DateRange) error {
	if r.Start.After(r.End) {
		return fmt.Errorf("range start %s is after end %s",
			r.Start.Format(DayFormat), r.End.Format(DayFormat))
	}
	now := clock.Now()
	oldest := now.Add(-archiveMaxAge)
	newest := now.Add(-archivePublishLag)
	if r.Start.Before(oldest) {
		return fmt.Errorf("range start %s is before the oldest available archive day %s",
			r.Start.Format(DayFormat), oldest.Format(DayFormat))
	}
	if r.End.After(newest) {
		return fmt.Errorf("range end %s is after the newest available archive day %s",
			r.End.Format(DayFormat), newest.Format(DayFormat))
	}
	return nil
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
