// Command seriescheck verifies built windows CSVs against the series they
// were cut from. It re-runs the dataset pipeline with the same knobs the
// build used and compares the result row by row, so any drift between the
// files and the windowing code shows up as a failure.
//
// Usage:
//
//	go run ./cmd/seriescheck \
//	  -series series.csv -windows train.csv -test-windows test.csv \
//	  -window-length 96 -horizon 1 -split 0.8 -normalize
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gaugeworks/floodgauge/internal/dataset"
	"github.com/gaugeworks/floodgauge/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type checkConfig struct {
	seriesPath  string
	windowsPath string
	testPath    string
	cfg         dataset.Config
	split       float64
	normalize   bool
}

func main() {
	seriesPath := flag.String("series", "", "source series CSV")
	windowsPath := flag.String("windows", "", "train windows CSV to verify")
	testPath := flag.String("test-windows", "", "test windows CSV to verify (with -split)")
	windowLength := flag.Int("window-length", 96, "readings per window used at build time")
	horizon := flag.Int("horizon", 1, "target offset used at build time")
	stride := flag.Int("stride", 1, "window stride used at build time")
	interval := flag.Duration("interval", 0, "expected reading spacing, 0 to infer")
	contiguous := flag.Bool("contiguous", false, "whether the build required a contiguous series")
	split := flag.Float64("split", 0, "train fraction used at build time, 0 for none")
	normalize := flag.Bool("normalize", false, "whether values were normalized at build time")
	flag.Parse()

	if *seriesPath == "" || *windowsPath == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *split > 0 && *testPath == "" {
		fmt.Fprintln(os.Stderr, "FATAL: -split requires -test-windows")
		os.Exit(1)
	}

	c := checkConfig{
		seriesPath:  *seriesPath,
		windowsPath: *windowsPath,
		testPath:    *testPath,
		cfg: dataset.Config{
			WindowLength:      *windowLength,
			Horizon:           *horizon,
			Stride:            *stride,
			Interval:          *interval,
			RequireContiguous: *contiguous,
		},
		split:     *split,
		normalize: *normalize,
	}

	if code := run(c); code != 0 {
		os.Exit(code)
	}
}

func run(c checkConfig) int {
	// ── Load all data sources ──
	fmt.Println("=== Windows Dataset Validation ===")
	fmt.Println()

	series, err := loadSeries(c.seriesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load series: %v\n", err)
		return 1
	}

	trainRows, err := loadWindows(c.windowsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load train windows: %v\n", err)
		return 1
	}

	var testRows []windowRow
	if c.testPath != "" {
		if testRows, err = loadWindows(c.testPath); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load test windows: %v\n", err)
			return 1
		}
	}

	// ── Re-run the dataset pipeline ──
	train, test := series, []domain.Reading(nil)
	if c.split > 0 {
		if train, test, err = dataset.Split(series, c.split); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: split series: %v\n", err)
			return 1
		}
	}
	if c.normalize {
		norm, err := dataset.FitNormalizer(train)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: fit normalizer: %v\n", err)
			return 1
		}
		train = norm.Apply(train)
		test = norm.Apply(test)
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateSeriesOrder(series),
		validateGeometry("train", trainRows, c.cfg, len(train)),
		validateReproduction("train", trainRows, train, c.cfg),
	}
	if c.testPath != "" {
		phases = append(phases,
			validateGeometry("test", testRows, c.cfg, len(test)),
			validateReproduction("test", testRows, test, c.cfg),
			validateNoLeakage(trainRows, testRows),
		)
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d series readings, %d train windows, %d test windows\n",
		len(series), len(trainRows), len(testRows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// windowRow is one parsed line of a windows CSV.
type windowRow struct {
	lineNum    int
	start      time.Time
	targetTime time.Time
	target     float64
	values     []float64
}

func loadSeries(path string) ([]domain.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ReadSeriesCSV(f)
}

func loadWindows(path string) ([]windowRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 1 {
		return nil, fmt.Errorf("no header in %s", path)
	}

	header := all[0]
	if len(header) < 4 || header[0] != "start" || header[1] != "targetTime" || header[2] != "target" {
		return nil, fmt.Errorf("unexpected header %q", strings.Join(header, ","))
	}

	var rows []windowRow
	for i, rec := range all[1:] {
		lineNum := i + 2
		if len(rec) != len(header) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", lineNum, len(rec), len(header))
		}
		row := windowRow{lineNum: lineNum}
		if row.start, err = time.Parse(time.RFC3339, rec[0]); err != nil {
			return nil, fmt.Errorf("line %d: parse start: %w", lineNum, err)
		}
		if row.targetTime, err = time.Parse(time.RFC3339, rec[1]); err != nil {
			return nil, fmt.Errorf("line %d: parse targetTime: %w", lineNum, err)
		}
		if row.target, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("line %d: parse target: %w", lineNum, err)
		}
		row.values = make([]float64, 0, len(rec)-3)
		for j, s := range rec[3:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse v%d: %w", lineNum, j, err)
			}
			row.values = append(row.values, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ── Phase 1: Series Integrity ──
// The source series must be strictly time-ordered for any windows file built
// from it to mean anything.

func validateSeriesOrder(series []domain.Reading) *phase {
	p := &phase{name: "Series integrity"}
	for i := 1; i < len(series); i++ {
		prev, curr := series[i-1].Time, series[i].Time
		switch {
		case curr.Equal(prev):
			p.errorf("reading %d: duplicate timestamp %s", i, curr.Format(time.RFC3339))
		case curr.Before(prev):
			p.errorf("reading %d: timestamp %s before predecessor %s",
				i, curr.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	return p
}

// ── Phase 2: Window Geometry ──
// Window counts and widths must match what the configuration dictates for a
// part of this length.

func validateGeometry(label string, rows []windowRow, cfg dataset.Config, n int) *phase {
	p := &phase{name: fmt.Sprintf("Window geometry (%s)", label)}

	if expected := cfg.Count(n); len(rows) != expected {
		p.errorf("expected %d windows for %d readings, file has %d", expected, n, len(rows))
	}
	for _, row := range rows {
		if len(row.values) != cfg.WindowLength {
			p.errorf("line %d: %d values, window length is %d", row.lineNum, len(row.values), cfg.WindowLength)
		}
		if !row.start.Before(row.targetTime) && cfg.Horizon > 0 {
			p.errorf("line %d: target time %s does not follow start %s",
				row.lineNum, row.targetTime.Format(time.RFC3339), row.start.Format(time.RFC3339))
		}
	}
	return p
}

// ── Phase 3: Reproduction ──
// Re-cut the part with the same configuration and compare every window.

func validateReproduction(label string, rows []windowRow, part []domain.Reading, cfg dataset.Config) *phase {
	p := &phase{name: fmt.Sprintf("Reproduction (%s)", label)}

	seq, err := dataset.Windows(part, cfg)
	if err != nil {
		p.errorf("windowing the %s part failed: %v", label, err)
		return p
	}
	want := slices.Collect(seq)

	if len(want) != len(rows) {
		p.errorf("recomputed %d windows, file has %d", len(want), len(rows))
		return p
	}

	for i, w := range want {
		row := rows[i]
		if !row.start.Equal(w.Start()) {
			p.errorf("line %d: start %s, recomputed %s",
				row.lineNum, row.start.Format(time.RFC3339), w.Start().Format(time.RFC3339))
		}
		if !row.targetTime.Equal(w.Target.Time) {
			p.errorf("line %d: targetTime %s, recomputed %s",
				row.lineNum, row.targetTime.Format(time.RFC3339), w.Target.Time.Format(time.RFC3339))
		}
		if !floatEq(row.target, w.Target.Value) {
			p.errorf("line %d: target %g, recomputed %g", row.lineNum, row.target, w.Target.Value)
		}
		for j, v := range w.Values() {
			if j >= len(row.values) {
				break
			}
			if !floatEq(row.values[j], v) {
				p.errorf("line %d: v%d %g, recomputed %g", row.lineNum, j, row.values[j], v)
			}
		}
	}
	return p
}

// ── Phase 4: Split Leakage ──
// Every train target must precede every test window start.

func validateNoLeakage(train, test []windowRow) *phase {
	p := &phase{name: "Split leakage"}
	if len(train) == 0 || len(test) == 0 {
		return p
	}

	var lastTrain time.Time
	for _, r := range train {
		if r.targetTime.After(lastTrain) {
			lastTrain = r.targetTime
		}
	}
	firstTest := test[0].start
	for _, r := range test {
		if r.start.Before(firstTest) {
			firstTest = r.start
		}
	}

	if !lastTrain.Before(firstTest) {
		p.errorf("latest train target %s is not before earliest test start %s",
			lastTrain.Format(time.RFC3339), firstTest.Format(time.RFC3339))
	}
	return p
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
