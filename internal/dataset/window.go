// Package dataset reshapes time-ordered reading series into fixed-length
// windows suitable for sequence-model training, along with the train/test
// plumbing that goes with them: chronological splits, normalization and the
// CSV formats the CLI reads and writes.
//
// Windowing is purely functional. All validation happens before the first
// window is yielded, and re-iterating the returned sequence produces
// identical windows.
package dataset

import (
	"fmt"
	"iter"
	"time"

	"github.com/gaugeworks/floodgauge/internal/domain"
)

// Config controls how a series is cut into windows.
type Config struct {
	// WindowLength is the number of consecutive readings per window.
	WindowLength int

	// Horizon is how many steps past the window's last reading the target
	// sits. Zero targets the window's own final reading.
	Horizon int

	// Stride is the offset between successive window starts. A stride
	// smaller than WindowLength produces overlapping windows.
	Stride int

	// Interval is the expected spacing between adjacent readings, used for
	// gap detection. Zero infers it from the first pair.
	Interval time.Duration

	// RequireContiguous rejects a series containing any gap larger than
	// Interval instead of windowing across it.
	RequireContiguous bool
}

func (c Config) validate() error {
	if c.WindowLength < 1 {
		return fmt.Errorf("window length must be positive, got %d", c.WindowLength)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %d", c.Horizon)
	}
	if c.Stride < 1 {
		return fmt.Errorf("stride must be positive, got %d", c.Stride)
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must be non-negative, got %s", c.Interval)
	}
	return nil
}

// Count returns how many windows the configuration yields over a series of
// n readings, zero when the series is too short.
func (c Config) Count(n int) int {
	if n < c.WindowLength+c.Horizon {
		return 0
	}
	return (n-c.WindowLength-c.Horizon)/c.Stride + 1
}

// Window pairs WindowLength consecutive readings with their prediction
// target. Input aliases the source series; callers must not mutate it.
type Window struct {
	Input  []domain.Reading
	Target domain.Reading
}

// Start returns the timestamp of the window's first reading.
func (w Window) Start() time.Time { return w.Input[0].Time }

// Values returns the window's reading values in order.
func (w Window) Values() []float64 {
	out := make([]float64, len(w.Input))
	for i, r := range w.Input {
		out[i] = r.Value
	}
	return out
}

// Windows validates the series against the configuration and returns a lazy
// sequence of windows in increasing start order.
//
// A series shorter than WindowLength+Horizon fails with
// [InsufficientDataError]. Timestamps must strictly increase or windowing
// fails with [NonMonotonicTimestampError] naming the offending pair. With
// RequireContiguous set, the first gap wider than the sampling interval
// fails with [DataGapError] at the gap's position. In every failure case no
// windows are produced at all.
func Windows(series []domain.Reading, cfg Config) (iter.Seq[Window], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if need := cfg.WindowLength + cfg.Horizon; len(series) < need {
		return nil, &InsufficientDataError{Have: len(series), Need: need}
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Time.After(series[i-1].Time) {
			return nil, &NonMonotonicTimestampError{
				Index: i,
				Prev:  series[i-1].Time,
				Curr:  series[i].Time,
			}
		}
	}
	if cfg.RequireContiguous && len(series) > 1 {
		interval := cfg.Interval
		if interval == 0 {
			interval = series[1].Time.Sub(series[0].Time)
		}
		for i := 1; i < len(series); i++ {
			if series[i].Time.Sub(series[i-1].Time) > interval {
				return nil, &DataGapError{
					Index:    i,
					Prev:     series[i-1].Time,
					Curr:     series[i].Time,
					Interval: interval,
				}
			}
		}
	}
	return func(yield func(Window) bool) {
		for s := 0; s+cfg.WindowLength+cfg.Horizon <= len(series); s += cfg.Stride {
			w := Window{
				Input:  series[s : s+cfg.WindowLength : s+cfg.WindowLength],
				Target: series[s+cfg.WindowLength+cfg.Horizon-1],
			}
			if !yield(w) {
				return
			}
		}
	}, nil
}
