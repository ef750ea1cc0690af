package dataset

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaugeworks/floodgauge/internal/domain"
)

func TestSplit(t *testing.T) {
	t.Run("seventy thirty", func(t *testing.T) {
		series := makeSeries(10)
		train, test, err := Split(series, 0.7)

		require.NoError(t, err)
		assert.Len(t, train, 7)
		assert.Len(t, test, 3)
		assert.Equal(t, series[0], train[0])
		assert.Equal(t, series[7], test[0])
	})

	t.Run("rounding truncates", func(t *testing.T) {
		train, test, err := Split(makeSeries(9), 0.5)

		require.NoError(t, err)
		assert.Len(t, train, 4)
		assert.Len(t, test, 5)
	})

	t.Run("invalid fractions", func(t *testing.T) {
		for _, frac := range []float64{0, 1, -0.5, 1.5} {
			_, _, err := Split(makeSeries(10), frac)
			assert.Error(t, err)
		}
	})
}

func TestFitNormalizer(t *testing.T) {
	t.Run("mean and sample deviation", func(t *testing.T) {
		series := valueSeries(1, 2, 3, 4, 5)
		n, err := FitNormalizer(series)

		require.NoError(t, err)
		assert.InDelta(t, 3.0, n.Mean, 1e-12)
		assert.InDelta(t, 1.5811388300841898, n.Std, 1e-12)
	})

	t.Run("constant series", func(t *testing.T) {
		_, err := FitNormalizer(valueSeries(2, 2, 2))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "constant series")
	})

	t.Run("too few readings", func(t *testing.T) {
		_, err := FitNormalizer(valueSeries(1))
		require.Error(t, err)
	})
}

func TestNormalizerApply(t *testing.T) {
	train := valueSeries(1, 2, 3, 4, 5)
	n, err := FitNormalizer(train)
	require.NoError(t, err)

	t.Run("standardizes to zero mean", func(t *testing.T) {
		scaled := n.Apply(train)

		var sum float64
		for _, r := range scaled {
			sum += r.Value
		}
		assert.InDelta(t, 0, sum/float64(len(scaled)), 1e-12)
	})

	t.Run("input is untouched", func(t *testing.T) {
		n.Apply(train)
		assert.Equal(t, 1.0, train[0].Value)
		assert.Equal(t, 5.0, train[4].Value)
	})

	t.Run("train statistics applied to test values", func(t *testing.T) {
		scaled := n.Apply(valueSeries(3))
		assert.InDelta(t, 0, scaled[0].Value, 1e-12)

		scaled = n.Apply(valueSeries(3 + 1.5811388300841898))
		assert.InDelta(t, 1, scaled[0].Value, 1e-12)
	})
}

func TestSeriesCSVRoundTrip(t *testing.T) {
	series := makeSeries(5)

	var buf bytes.Buffer
	require.NoError(t, WriteSeriesCSV(&buf, series))

	got, err := ReadSeriesCSV(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(series, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadSeriesCSV(t *testing.T) {
	t.Run("header keyed in any column order", func(t *testing.T) {
		in := strings.Join([]string{
			"value,dateTime,stationReference",
			"0.42,2024-03-01T00:00:00Z,1029TH",
			"0.43,2024-03-01T00:15:00Z,1029TH",
		}, "\n")

		got, err := ReadSeriesCSV(strings.NewReader(in))

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "1029TH", got[0].StationReference)
		assert.Equal(t, 0.42, got[0].Value)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 15, 0, 0, time.UTC), got[1].Time)
	})

	t.Run("missing value column", func(t *testing.T) {
		in := "dateTime,stationReference\n2024-03-01T00:00:00Z,1029TH\n"
		_, err := ReadSeriesCSV(strings.NewReader(in))

		require.Error(t, err)
		assert.Contains(t, err.Error(), `"value"`)
	})

	t.Run("bad row names the line", func(t *testing.T) {
		in := strings.Join([]string{
			"dateTime,value",
			"2024-03-01T00:00:00Z,0.42",
			"not-a-time,0.43",
		}, "\n")
		_, err := ReadSeriesCSV(strings.NewReader(in))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 3")
	})
}

func TestWriteWindowsCSV(t *testing.T) {
	series := makeSeries(4)
	seq, err := Windows(series, Config{WindowLength: 2, Horizon: 1, Stride: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteWindowsCSV(&buf, seq, 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "start,targetTime,target,v0,v1", lines[0])
	assert.Equal(t, "2024-03-01T00:00:00Z,2024-03-01T00:30:00Z,2,0,1", lines[1])
	assert.Equal(t, "2024-03-01T00:15:00Z,2024-03-01T00:45:00Z,3,1,2", lines[2])
}

// valueSeries builds a monotonically timestamped series with the given
// values.
func valueSeries(values ...float64) []domain.Reading {
	series := make([]domain.Reading, len(values))
	for i, v := range values {
		series[i] = domain.Reading{
			Time:  seriesStart.Add(time.Duration(i) * seriesInterval),
			Value: v,
		}
	}
	return series
}
