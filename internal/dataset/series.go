package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gaugeworks/floodgauge/internal/domain"
)

// Split divides a series chronologically, putting the first frac of readings
// in train and the remainder in test. Both halves alias the input; nothing
// is reordered or copied.
func Split(series []domain.Reading, frac float64) (train, test []domain.Reading, err error) {
	if frac <= 0 || frac >= 1 {
		return nil, nil, fmt.Errorf("split fraction must be in (0, 1), got %g", frac)
	}
	cut := int(frac * float64(len(series)))
	return series[:cut], series[cut:], nil
}

// Normalizer holds the location and scale fitted on a training series.
// Applying train-fitted statistics to the test series keeps the two halves
// comparable without leaking test data into the fit.
type Normalizer struct {
	Mean float64
	Std  float64
}

// FitNormalizer computes the mean and sample standard deviation of the
// series values.
func FitNormalizer(series []domain.Reading) (Normalizer, error) {
	if len(series) < 2 {
		return Normalizer{}, fmt.Errorf("need at least 2 readings to fit a normalizer, have %d", len(series))
	}
	var sum float64
	for _, r := range series {
		sum += r.Value
	}
	mean := sum / float64(len(series))
	var ss float64
	for _, r := range series {
		d := r.Value - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(series)-1))
	if std == 0 {
		return Normalizer{}, errors.New("cannot normalize a constant series")
	}
	return Normalizer{Mean: mean, Std: std}, nil
}

// Apply returns a copy of the series with every value standardized. The
// input is left untouched.
func (n Normalizer) Apply(series []domain.Reading) []domain.Reading {
	out := make([]domain.Reading, len(series))
	for i, r := range series {
		r.Value = (r.Value - n.Mean) / n.Std
		out[i] = r
	}
	return out
}

// ReadSeriesCSV loads a reading series from header-keyed CSV. The dateTime
// and value columns are required; stationReference, parameter, qualifier and
// unit are carried through when present.
func ReadSeriesCSV(r io.Reader) ([]domain.Reading, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read series header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"dateTime", "value"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("series CSV is missing the %q column", required)
		}
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var series []domain.Reading
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read series row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, get(row, "dateTime"))
		if err != nil {
			return nil, fmt.Errorf("series line %d: parse dateTime: %w", line, err)
		}
		value, err := strconv.ParseFloat(get(row, "value"), 64)
		if err != nil {
			return nil, fmt.Errorf("series line %d: parse value: %w", line, err)
		}
		series = append(series, domain.Reading{
			StationReference: get(row, "stationReference"),
			Time:             ts.UTC(),
			Parameter:        domain.Parameter(get(row, "parameter")),
			Qualifier:        get(row, "qualifier"),
			Unit:             get(row, "unit"),
			Value:            value,
		})
	}
	return series, nil
}

// WriteSeriesCSV writes a series in the format ReadSeriesCSV loads.
func WriteSeriesCSV(w io.Writer, series []domain.Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"dateTime", "stationReference", "parameter", "value"}); err != nil {
		return fmt.Errorf("write series header: %w", err)
	}
	for _, r := range series {
		rec := []string{
			r.Time.UTC().Format(time.RFC3339),
			r.StationReference,
			string(r.Parameter),
			strconv.FormatFloat(r.Value, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write series row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteWindowsCSV writes one row per window: the window start, the target
// timestamp and value, then the window values v0..vN in order. windowLength
// must match the configuration the windows were produced with.
func WriteWindowsCSV(w io.Writer, windows iter.Seq[Window], windowLength int) error {
	header := []string{"start", "targetTime", "target"}
	for i := 0; i < windowLength; i++ {
		header = append(header, "v"+strconv.Itoa(i))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write windows header: %w", err)
	}
	for win := range windows {
		rec := make([]string, 0, len(header))
		rec = append(rec,
			win.Start().UTC().Format(time.RFC3339),
			win.Target.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(win.Target.Value, 'g', -1, 64),
		)
		for _, v := range win.Values() {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write window row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
