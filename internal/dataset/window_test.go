package dataset

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaugeworks/floodgauge/internal/domain"
)

var seriesStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

const seriesInterval = 15 * time.Minute

func TestWindowsCount(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		config Config
		want   int
	}{
		{name: "unit stride", n: 10, config: Config{WindowLength: 3, Horizon: 1, Stride: 1}, want: 7},
		{name: "zero horizon", n: 10, config: Config{WindowLength: 3, Horizon: 0, Stride: 1}, want: 8},
		{name: "wide stride", n: 10, config: Config{WindowLength: 4, Horizon: 2, Stride: 3}, want: 2},
		{name: "exact fit yields one window", n: 5, config: Config{WindowLength: 5, Horizon: 0, Stride: 1}, want: 1},
		{name: "stride two", n: 10, config: Config{WindowLength: 3, Horizon: 1, Stride: 2}, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := Windows(makeSeries(tt.n), tt.config)
			require.NoError(t, err)

			got := slices.Collect(seq)
			assert.Len(t, got, tt.want)
			assert.Equal(t, tt.want, tt.config.Count(tt.n))
		})
	}
}

func TestWindowsContent(t *testing.T) {
	series := makeSeries(10)
	seq, err := Windows(series, Config{WindowLength: 3, Horizon: 1, Stride: 1})
	require.NoError(t, err)

	got := slices.Collect(seq)
	require.Len(t, got, 7)

	first := got[0]
	assert.Equal(t, []float64{0, 1, 2}, first.Values())
	assert.Equal(t, 3.0, first.Target.Value)
	assert.Equal(t, seriesStart, first.Start())

	last := got[6]
	assert.Equal(t, []float64{6, 7, 8}, last.Values())
	assert.Equal(t, 9.0, last.Target.Value)
}

func TestWindowsTargetTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "one step ahead", config: Config{WindowLength: 3, Horizon: 1, Stride: 1}},
		{name: "three steps ahead", config: Config{WindowLength: 4, Horizon: 3, Stride: 2}},
		{name: "zero horizon", config: Config{WindowLength: 5, Horizon: 0, Stride: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := Windows(makeSeries(20), tt.config)
			require.NoError(t, err)

			steps := time.Duration(tt.config.WindowLength+tt.config.Horizon-1) * seriesInterval
			for w := range seq {
				assert.Equal(t, w.Start().Add(steps), w.Target.Time)
			}
		})
	}
}

func TestWindowsHorizonZero(t *testing.T) {
	seq, err := Windows(makeSeries(6), Config{WindowLength: 3, Horizon: 0, Stride: 1})
	require.NoError(t, err)

	for w := range seq {
		assert.Equal(t, w.Input[len(w.Input)-1], w.Target)
	}
}

func TestWindowsNonOverlappingStride(t *testing.T) {
	seq, err := Windows(makeSeries(6), Config{WindowLength: 2, Horizon: 0, Stride: 2})
	require.NoError(t, err)

	got := slices.Collect(seq)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{0, 1}, got[0].Values())
	assert.Equal(t, []float64{2, 3}, got[1].Values())
	assert.Equal(t, []float64{4, 5}, got[2].Values())
}

func TestWindowsInsufficientData(t *testing.T) {
	_, err := Windows(makeSeries(3), Config{WindowLength: 3, Horizon: 1, Stride: 1})

	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Have)
	assert.Equal(t, 4, insufficient.Need)
}

func TestWindowsNonMonotonic(t *testing.T) {
	t.Run("timestamp going backwards", func(t *testing.T) {
		series := makeSeries(5)
		series[1].Time = series[0].Time.Add(-seriesInterval)

		_, err := Windows(series, Config{WindowLength: 2, Horizon: 0, Stride: 1})

		var nonMonotonic *NonMonotonicTimestampError
		require.ErrorAs(t, err, &nonMonotonic)
		assert.Equal(t, 1, nonMonotonic.Index)
		assert.Equal(t, series[0].Time, nonMonotonic.Prev)
		assert.Equal(t, series[1].Time, nonMonotonic.Curr)
	})

	t.Run("duplicate timestamp", func(t *testing.T) {
		series := makeSeries(5)
		series[3].Time = series[2].Time

		_, err := Windows(series, Config{WindowLength: 2, Horizon: 0, Stride: 1})

		var nonMonotonic *NonMonotonicTimestampError
		require.ErrorAs(t, err, &nonMonotonic)
		assert.Equal(t, 3, nonMonotonic.Index)
	})
}

func TestWindowsGapDetection(t *testing.T) {
	gapped := makeSeries(6)
	for i := 3; i < len(gapped); i++ {
		gapped[i].Time = gapped[i].Time.Add(seriesInterval)
	}

	t.Run("gap rejected when contiguity is required", func(t *testing.T) {
		_, err := Windows(gapped, Config{WindowLength: 2, Horizon: 0, Stride: 1, RequireContiguous: true})

		var gap *DataGapError
		require.ErrorAs(t, err, &gap)
		assert.Equal(t, 3, gap.Index)
		assert.Equal(t, seriesInterval, gap.Interval)
		assert.Equal(t, 2*seriesInterval, gap.Curr.Sub(gap.Prev))
	})

	t.Run("gap ignored by default", func(t *testing.T) {
		seq, err := Windows(gapped, Config{WindowLength: 2, Horizon: 0, Stride: 1})
		require.NoError(t, err)
		assert.Len(t, slices.Collect(seq), 5)
	})

	t.Run("explicit interval overrides inference", func(t *testing.T) {
		cfg := Config{WindowLength: 2, Horizon: 0, Stride: 1, Interval: time.Hour, RequireContiguous: true}
		seq, err := Windows(gapped, cfg)
		require.NoError(t, err)
		assert.Len(t, slices.Collect(seq), 5)
	})
}

func TestWindowsIdempotent(t *testing.T) {
	series := makeSeries(12)
	cfg := Config{WindowLength: 4, Horizon: 2, Stride: 2}

	first, err := Windows(series, cfg)
	require.NoError(t, err)
	second, err := Windows(series, cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(slices.Collect(first), slices.Collect(second)); diff != "" {
		t.Errorf("windows differ between runs (-first +second):\n%s", diff)
	}
}

func TestWindowsReiterable(t *testing.T) {
	seq, err := Windows(makeSeries(8), Config{WindowLength: 3, Horizon: 1, Stride: 1})
	require.NoError(t, err)

	if diff := cmp.Diff(slices.Collect(seq), slices.Collect(seq)); diff != "" {
		t.Errorf("re-iteration differs (-first +second):\n%s", diff)
	}
}

func TestWindowsEarlyBreak(t *testing.T) {
	seq, err := Windows(makeSeries(100), Config{WindowLength: 3, Horizon: 1, Stride: 1})
	require.NoError(t, err)

	var got []Window
	for w := range seq {
		got = append(got, w)
		if len(got) == 2 {
			break
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, []float64{1, 2, 3}, got[1].Values())
}

func TestWindowsConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "zero window length", config: Config{WindowLength: 0, Stride: 1}},
		{name: "negative horizon", config: Config{WindowLength: 3, Horizon: -1, Stride: 1}},
		{name: "zero stride", config: Config{WindowLength: 3, Stride: 0}},
		{name: "negative interval", config: Config{WindowLength: 3, Stride: 1, Interval: -time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Windows(makeSeries(10), tt.config)
			require.Error(t, err)

			var insufficient *InsufficientDataError
			assert.False(t, errors.As(err, &insufficient))
		})
	}
}

// makeSeries builds n readings at 15-minute spacing with value i at index i.
func makeSeries(n int) []domain.Reading {
	series := make([]domain.Reading, n)
	for i := range series {
		series[i] = domain.Reading{
			StationReference: "1029TH",
			Time:             seriesStart.Add(time.Duration(i) * seriesInterval),
			Parameter:        domain.ParameterLevel,
			Value:            float64(i),
		}
	}
	return series
}
