package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testStationRef = "1029TH"
	testDateTime   = "2024-03-01T09:15:00Z"
)

func TestParseParameter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Parameter
		wantErr bool
	}{
		{name: "rainfall", input: "rainfall", want: ParameterRainfall},
		{name: "level", input: "level", want: ParameterLevel},
		{name: "flow", input: "flow", want: ParameterFlow},
		{name: "empty selects any", input: "", want: ParameterAny},
		{name: "case and space folded", input: "  Level ", want: ParameterLevel},
		{name: "unknown parameter", input: "snow", wantErr: true},
		{name: "qualifier is not a parameter", input: "tidal level", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParameter(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMeasure(t *testing.T) {
	t.Run("river level measure URI", func(t *testing.T) {
		uri := "http://environment.data.gov.uk/flood-monitoring/id/measures/1029TH-level-stage-i-15_min-mASD"
		m, err := ParseMeasure(uri)

		require.NoError(t, err)
		assert.Equal(t, testStationRef, m.StationReference)
		assert.Equal(t, ParameterLevel, m.Parameter)
		assert.Equal(t, "stage", m.Qualifier)
		assert.Equal(t, "i", m.ValueType)
		assert.Equal(t, "15_min", m.Period)
		assert.Equal(t, "mASD", m.Unit)
	})

	t.Run("bare rainfall notation", func(t *testing.T) {
		m, err := ParseMeasure("52203-rainfall-tipping_bucket_raingauge-t-15_min-mm")

		require.NoError(t, err)
		assert.Equal(t, "52203", m.StationReference)
		assert.Equal(t, ParameterRainfall, m.Parameter)
		assert.Equal(t, "tipping_bucket_raingauge", m.Qualifier)
		assert.Equal(t, "t", m.ValueType)
		assert.Equal(t, "mm", m.Unit)
	})

	t.Run("station reference containing dashes", func(t *testing.T) {
		m, err := ParseMeasure("E21136-3-level-stage-i-15_min-mASD")

		require.NoError(t, err)
		assert.Equal(t, "E21136-3", m.StationReference)
		assert.Equal(t, ParameterLevel, m.Parameter)
	})

	t.Run("flow measure", func(t *testing.T) {
		m, err := ParseMeasure("L0607-flow-logged-i-15_min-m3_s")

		require.NoError(t, err)
		assert.Equal(t, ParameterFlow, m.Parameter)
		assert.Equal(t, "m3_s", m.Unit)
	})

	t.Run("unrecognized notation", func(t *testing.T) {
		_, err := ParseMeasure("not-a-measure")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unrecognized measure notation")
	})

	t.Run("empty string", func(t *testing.T) {
		_, err := ParseMeasure("")
		require.Error(t, err)
	})
}

func TestParseArchiveRow(t *testing.T) {
	t.Run("valid level row", func(t *testing.T) {
		row := ArchiveRow{
			DateTime:         testDateTime,
			Parameter:        "level",
			Qualifier:        "Stage",
			StationReference: testStationRef,
			Value:            "0.432",
			Unit:             "mASD",
		}
		r, err := ParseArchiveRow(row)

		require.NoError(t, err)
		assert.Equal(t, testStationRef, r.StationReference)
		assert.Equal(t, time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC), r.Time)
		assert.Equal(t, ParameterLevel, r.Parameter)
		assert.Equal(t, "Stage", r.Qualifier)
		assert.Equal(t, "mASD", r.Unit)
		assert.Equal(t, 0.432, r.Value)
	})

	t.Run("rainfall row", func(t *testing.T) {
		row := ArchiveRow{
			DateTime:         "2024-03-01T09:00:00Z",
			Parameter:        "rainfall",
			StationReference: "52203",
			Value:            "0.2",
		}
		r, err := ParseArchiveRow(row)

		require.NoError(t, err)
		assert.Equal(t, ParameterRainfall, r.Parameter)
		assert.Equal(t, 0.2, r.Value)
	})

	t.Run("unknown parameter passes through", func(t *testing.T) {
		row := ArchiveRow{
			DateTime:         testDateTime,
			Parameter:        "Temperature",
			StationReference: "E1234",
			Value:            "11.5",
		}
		r, err := ParseArchiveRow(row)

		require.NoError(t, err)
		assert.Equal(t, Parameter("temperature"), r.Parameter)
	})

	t.Run("missing station reference", func(t *testing.T) {
		row := ArchiveRow{DateTime: testDateTime, Value: "1.0"}
		_, err := ParseArchiveRow(row)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing stationReference")
	})

	t.Run("bad timestamp", func(t *testing.T) {
		row := ArchiveRow{DateTime: "01/03/2024 09:15", StationReference: testStationRef, Value: "1.0"}
		_, err := ParseArchiveRow(row)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse dateTime")
	})

	t.Run("empty value", func(t *testing.T) {
		row := ArchiveRow{DateTime: testDateTime, StationReference: testStationRef, Value: "  "}
		_, err := ParseArchiveRow(row)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty value")
	})

	t.Run("pipe-separated value", func(t *testing.T) {
		row := ArchiveRow{DateTime: testDateTime, StationReference: testStationRef, Value: "0.42|0.43"}
		_, err := ParseArchiveRow(row)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "multi-valued")
	})

	t.Run("non-numeric value", func(t *testing.T) {
		row := ArchiveRow{DateTime: testDateTime, StationReference: testStationRef, Value: "n/a"}
		_, err := ParseArchiveRow(row)

		require.Error(t, err)
	})
}

func TestStationSupports(t *testing.T) {
	s := Station{Reference: testStationRef, Parameters: []Parameter{ParameterLevel, ParameterFlow}}

	assert.True(t, s.Supports(ParameterLevel))
	assert.True(t, s.Supports(ParameterFlow))
	assert.True(t, s.Supports(ParameterAny))
	assert.False(t, s.Supports(ParameterRainfall))
}

func TestStationRelativeLevel(t *testing.T) {
	t.Run("scaled by typical range high", func(t *testing.T) {
		s := Station{StageScale: &StageScale{TypicalRangeHigh: 2.0}}
		got, ok := s.RelativeLevel(0.5)

		require.True(t, ok)
		assert.Equal(t, 0.25, got)
	})

	t.Run("no stage scale", func(t *testing.T) {
		_, ok := Station{}.RelativeLevel(0.5)
		assert.False(t, ok)
	})

	t.Run("degenerate typical range", func(t *testing.T) {
		s := Station{StageScale: &StageScale{TypicalRangeHigh: 0}}
		_, ok := s.RelativeLevel(0.5)
		assert.False(t, ok)
	})
}
