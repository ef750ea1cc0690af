// Command genseries writes a synthetic reading series CSV for exercising the
// dataset tooling. Values follow a daily cycle with a little noise, and the
// -gap-at and -invert-at flags inject the two timeline faults the windowing
// code detects. It writes through the actual dataset package so the output
// matches what the CLI itself would emit.
//
// Usage:
//
//	go run ./cmd/genseries -station TEST01 -count 960 -out series.csv
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/gaugeworks/floodgauge/internal/dataset"
	"github.com/gaugeworks/floodgauge/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	station := flag.String("station", "TEST01", "station reference to stamp on every reading")
	parameter := flag.String("parameter", "level", "parameter to stamp on every reading")
	start := flag.String("start", "2024-01-01", "first reading day (YYYY-MM-DD)")
	interval := flag.Duration("interval", 15*time.Minute, "spacing between readings")
	count := flag.Int("count", 960, "number of readings")
	seed := flag.Uint64("seed", 1, "noise seed")
	gapAt := flag.Int("gap-at", -1, "skip the reading at this index, leaving a sampling gap")
	invertAt := flag.Int("invert-at", -1, "push this reading's timestamp behind its predecessor")
	out := flag.String("out", "", "output CSV path")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	param, err := domain.ParseParameter(*parameter)
	if err != nil {
		return err
	}
	startDay, err := time.Parse(domain.DayFormat, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	series := generate(genConfig{
		station:  *station,
		param:    param,
		start:    startDay,
		interval: *interval,
		count:    *count,
		seed:     *seed,
		gapAt:    *gapAt,
		invertAt: *invertAt,
	})

	if err := writeCSV(*out, series); err != nil {
		return fmt.Errorf("writing series: %w", err)
	}
	log.Printf("wrote %d readings to %s", len(series), *out)
	return nil
}

type genConfig struct {
	station  string
	param    domain.Parameter
	start    time.Time
	interval time.Duration
	count    int
	seed     uint64
	gapAt    int
	invertAt int
}

// generate follows a daily sine cycle around a 1m baseline, the shape of a
// typical river level trace.
func generate(cfg genConfig) []domain.Reading {
	rng := rand.New(rand.NewPCG(cfg.seed, 0))
	cycle := 24 * time.Hour

	series := make([]domain.Reading, 0, cfg.count)
	for i := 0; i < cfg.count; i++ {
		if i == cfg.gapAt {
			continue
		}
		ts := cfg.start.Add(time.Duration(i) * cfg.interval)
		if i == cfg.invertAt {
			ts = ts.Add(-2 * cfg.interval)
		}
		phase := 2 * math.Pi * float64(ts.Sub(cfg.start)%cycle) / float64(cycle)
		value := 1.0 + 0.4*math.Sin(phase) + 0.05*rng.NormFloat64()
		series = append(series, domain.Reading{
			StationReference: cfg.station,
			Time:             ts,
			Parameter:        cfg.param,
			Value:            math.Round(value*1000) / 1000,
		})
	}
	return series
}

func writeCSV(path string, series []domain.Reading) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteSeriesCSV(f, series); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	return f.Close()
}
