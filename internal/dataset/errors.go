package dataset

import (
	"fmt"
	"time"
)

// InsufficientDataError reports an input series too short to produce a
// single window.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need at least %d readings, have %d", e.Need, e.Have)
}

// NonMonotonicTimestampError reports a reading whose timestamp does not
// strictly increase over its predecessor. The reshaper validates ordering
// rather than sorting, so upstream data defects stay visible.
type NonMonotonicTimestampError struct {
	Index int
	Prev  time.Time
	Curr  time.Time
}

func (e *NonMonotonicTimestampError) Error() string {
	return fmt.Sprintf("non-monotonic timestamps at index %d: %s does not advance past %s",
		e.Index, e.Curr.Format(time.RFC3339), e.Prev.Format(time.RFC3339))
}

// DataGapError reports two adjacent readings spaced further apart than the
// expected sampling interval.
type DataGapError struct {
	Index    int
	Prev     time.Time
	Curr     time.Time
	Interval time.Duration
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("data gap at index %d: %s to %s exceeds the %s sampling interval",
		e.Index, e.Prev.Format(time.RFC3339), e.Curr.Format(time.RFC3339), e.Interval)
}
