package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaugeworks/floodgauge/internal/domain"
	"github.com/gaugeworks/floodgauge/internal/observability"
	"github.com/gaugeworks/floodgauge/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	rows    map[string][]domain.ArchiveRow
	failOn  map[string]error
	fetched []string
}

func (m *mockExtractor) ArchiveDay(_ context.Context, day time.Time) ([]domain.ArchiveRow, error) {
	key := day.Format(domain.DayFormat)
	m.fetched = append(m.fetched, key)
	if err := m.failOn[key]; err != nil {
		return nil, err
	}
	return m.rows[key], nil
}

type mockLoader struct {
	batches [][]domain.Reading
	err     error
}

func (m *mockLoader) LoadBatch(_ context.Context, readings []domain.Reading) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, readings)
	return nil
}

func newTestPipeline(ext *mockExtractor, ldr *mockLoader) *pipeline.Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return pipeline.New(ext, pipeline.NewTransformer(), ldr, logger, observability.NewMetricsForTesting())
}

func archiveRow(ts, station, value string) domain.ArchiveRow {
	return domain.ArchiveRow{
		DateTime:         ts,
		Parameter:        "level",
		Qualifier:        "Stage",
		StationReference: station,
		Value:            value,
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{rows: map[string][]domain.ArchiveRow{
		"2024-03-01": {
			archiveRow("2024-03-01T00:00:00Z", "1029TH", "0.42"),
			archiveRow("2024-03-01T00:15:00Z", "1029TH", "0.43"),
		},
		"2024-03-02": {
			archiveRow("2024-03-02T00:00:00Z", "1029TH", "0.44"),
		},
	}}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr)

	days := []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	sum, err := p.Run(context.Background(), days)

	require.NoError(t, err)
	assert.Equal(t, pipeline.Summary{Days: 2, Rows: 3, Loaded: 3}, sum)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, ext.fetched)

	require.Len(t, ldr.batches, 2)
	want := []domain.Reading{
		{
			StationReference: "1029TH",
			Time:             time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Parameter:        domain.ParameterLevel,
			Qualifier:        "Stage",
			Value:            0.42,
		},
		{
			StationReference: "1029TH",
			Time:             time.Date(2024, 3, 1, 0, 15, 0, 0, time.UTC),
			Parameter:        domain.ParameterLevel,
			Qualifier:        "Stage",
			Value:            0.43,
		},
	}
	if diff := cmp.Diff(want, ldr.batches[0]); diff != "" {
		t.Errorf("first batch mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_SkipsBadRows(t *testing.T) {
	ext := &mockExtractor{rows: map[string][]domain.ArchiveRow{
		"2024-03-01": {
			archiveRow("2024-03-01T00:00:00Z", "1029TH", "0.42"),
			archiveRow("2024-03-01T00:15:00Z", "1029TH", "0.42|0.43"),
			archiveRow("not-a-time", "1029TH", "0.44"),
		},
	}}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr)

	sum, err := p.Run(context.Background(), []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})

	require.NoError(t, err)
	assert.Equal(t, pipeline.Summary{Days: 1, Rows: 3, Loaded: 1, Skipped: 2}, sum)
	require.Len(t, ldr.batches, 1)
	assert.Len(t, ldr.batches[0], 1)
}

func TestPipeline_Run_ExtractFailureAborts(t *testing.T) {
	ext := &mockExtractor{
		rows: map[string][]domain.ArchiveRow{
			"2024-03-01": {archiveRow("2024-03-01T00:00:00Z", "1029TH", "0.42")},
		},
		failOn: map[string]error{"2024-03-02": errors.New("boom")},
	}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr)

	days := []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	}
	sum, err := p.Run(context.Background(), days)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-03-02")
	assert.Equal(t, 1, sum.Days)
	assert.Len(t, ldr.batches, 1)
	// The third day must never be fetched.
	assert.Equal(t, []string{"2024-03-01", "2024-03-02"}, ext.fetched)
}

func TestPipeline_Run_LoadFailureAborts(t *testing.T) {
	ext := &mockExtractor{rows: map[string][]domain.ArchiveRow{
		"2024-03-01": {archiveRow("2024-03-01T00:00:00Z", "1029TH", "0.42")},
	}}
	ldr := &mockLoader{err: errors.New("disk full")}
	p := newTestPipeline(ext, ldr)

	sum, err := p.Run(context.Background(), []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Zero(t, sum.Days)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})

	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ext.fetched)
}

func TestPipeline_Progress(t *testing.T) {
	ext := &mockExtractor{rows: map[string][]domain.ArchiveRow{
		"2024-03-01": {archiveRow("2024-03-01T00:00:00Z", "1029TH", "0.42")},
	}}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr)

	assert.Equal(t, pipeline.Summary{}, p.Progress())

	sum, err := p.Run(context.Background(), []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, sum, p.Progress())
}

func TestPipeline_CheckReadiness(t *testing.T) {
	ext := &mockExtractor{rows: map[string][]domain.ArchiveRow{
		"2024-03-01": {archiveRow("2024-03-01T00:00:00Z", "1029TH", "0.42")},
	}}
	ldr := &mockLoader{}
	p := newTestPipeline(ext, ldr)

	require.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.Run(context.Background(), []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	assert.NoError(t, p.CheckReadiness(context.Background()))
}
