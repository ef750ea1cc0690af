// Package catalog holds the in-memory station catalog. It is populated from
// a CSV snapshot, either the one compiled into the binary or a previously
// saved file, and can be refreshed online from the station-list endpoint.
// A refresh is a full replace; there is no merging.
package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/gaugeworks/floodgauge/internal/domain"
	"github.com/gaugeworks/floodgauge/internal/osgb"
)

//go:embed stations.csv
var embeddedSnapshot []byte

var snapshotHeader = []string{
	"reference", "label", "river", "town", "lat", "long", "easting", "northing",
	"parameters", "typicalRangeLow", "typicalRangeHigh", "minOnRecord", "maxOnRecord",
}

// StationSource is the remote side of a refresh.
type StationSource interface {
	Stations(ctx context.Context, param domain.Parameter) ([]domain.Station, error)
}

// DetailSource fills in per-station detail such as the stage scale.
type DetailSource interface {
	StationDetail(ctx context.Context, ref string) (domain.Station, error)
}

// Catalog maps station references to stations. Reads take a shared lock;
// Refresh and the snapshot loaders replace the whole map under the write
// lock, so readers never see a half-applied update.
type Catalog struct {
	mu       sync.RWMutex
	stations map[string]domain.Station
	logger   *slog.Logger
}

// New returns an empty catalog.
func New(logger *slog.Logger) *Catalog {
	return &Catalog{
		stations: make(map[string]domain.Station),
		logger:   logger,
	}
}

// LoadEmbedded populates the catalog from the snapshot compiled into the
// binary.
func (c *Catalog) LoadEmbedded() error {
	return c.load(bytes.NewReader(embeddedSnapshot), "embedded")
}

// LoadSnapshot populates the catalog from a snapshot file.
func (c *Catalog) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open station snapshot: %w", err)
	}
	defer f.Close()
	return c.load(f, path)
}

func (c *Catalog) load(r io.Reader, source string) error {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read snapshot header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["reference"]; !ok {
		return errors.New(`station snapshot is missing the "reference" column`)
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	next := make(map[string]domain.Station)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read snapshot row: %w", err)
		}
		st, err := stationFromRow(row, get)
		if err != nil {
			return fmt.Errorf("snapshot line %d: %w", line, err)
		}
		if st.Reference == "" {
			continue
		}
		next[st.Reference] = st
	}

	c.mu.Lock()
	c.stations = next
	c.mu.Unlock()
	c.logger.Debug("station catalog loaded", "source", source, "stations", len(next))
	return nil
}

func stationFromRow(row []string, get func([]string, string) string) (domain.Station, error) {
	st := domain.Station{
		Reference: get(row, "reference"),
		Name:      get(row, "label"),
		RiverName: get(row, "river"),
		Town:      get(row, "town"),
	}

	var err error
	parse := func(name string) float64 {
		s := get(row, name)
		if s == "" || err != nil {
			return 0
		}
		var v float64
		v, err = strconv.ParseFloat(s, 64)
		if err != nil {
			err = fmt.Errorf("parse %s %q: %w", name, s, err)
		}
		return v
	}
	st.Lat = parse("lat")
	st.Lon = parse("long")
	st.Easting = parse("easting")
	st.Northing = parse("northing")

	for _, p := range strings.Split(get(row, "parameters"), "|") {
		if p = strings.TrimSpace(p); p != "" {
			st.Parameters = append(st.Parameters, domain.Parameter(p))
		}
	}

	scaleFields := []string{"typicalRangeLow", "typicalRangeHigh", "minOnRecord", "maxOnRecord"}
	hasScale := false
	for _, f := range scaleFields {
		if get(row, f) != "" {
			hasScale = true
			break
		}
	}
	if hasScale {
		st.StageScale = &domain.StageScale{
			TypicalRangeLow:  parse("typicalRangeLow"),
			TypicalRangeHigh: parse("typicalRangeHigh"),
			MinOnRecord:      parse("minOnRecord"),
			MaxOnRecord:      parse("maxOnRecord"),
		}
	}
	return st, err
}

// SaveSnapshot writes the catalog to a snapshot file in the format the
// loaders read, stations sorted by reference. The parent directory is
// created if needed.
func (c *Catalog) SaveSnapshot(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create station snapshot: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(snapshotHeader); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	for _, st := range c.List() {
		params := make([]string, len(st.Parameters))
		for i, p := range st.Parameters {
			params[i] = string(p)
		}
		row := []string{
			st.Reference, st.Name, st.RiverName, st.Town,
			formatFloat(st.Lat), formatFloat(st.Lon),
			formatFloat(st.Easting), formatFloat(st.Northing),
			strings.Join(params, "|"),
			"", "", "", "",
		}
		if st.StageScale != nil {
			row[9] = formatFloat(st.StageScale.TypicalRangeLow)
			row[10] = formatFloat(st.StageScale.TypicalRangeHigh)
			row[11] = formatFloat(st.StageScale.MinOnRecord)
			row[12] = formatFloat(st.StageScale.MaxOnRecord)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write snapshot row for %s: %w", st.Reference, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush station snapshot: %w", err)
	}
	c.logger.Info("station snapshot saved", "path", path, "stations", c.Len())
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Refresh replaces the entire catalog with the source's current station
// list and returns the new station count. Stations absent from the response
// are gone after a refresh.
func (c *Catalog) Refresh(ctx context.Context, source StationSource, param domain.Parameter) (int, error) {
	stations, err := source.Stations(ctx, param)
	if err != nil {
		return 0, fmt.Errorf("refresh station catalog: %w", err)
	}

	next := make(map[string]domain.Station, len(stations))
	for _, st := range stations {
		next[st.Reference] = st
	}

	c.mu.Lock()
	c.stations = next
	c.mu.Unlock()
	c.logger.Info("station catalog refreshed", "stations", len(next), "parameter", string(param))
	return len(next), nil
}

// Get looks up one station by reference.
func (c *Catalog) Get(ref string) (domain.Station, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.stations[ref]
	return st, ok
}

// Len returns the number of stations in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stations)
}

// List returns a copy of the catalog sorted by station reference.
func (c *Catalog) List() []domain.Station {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Station, 0, len(c.stations))
	for _, st := range c.stations {
		out = append(out, st)
	}
	slices.SortFunc(out, func(a, b domain.Station) int {
		return strings.Compare(a.Reference, b.Reference)
	})
	return out
}

// Nearest returns the catalog station closest to the given grid position,
// considering only stations that measure param and carry grid coordinates.
func (c *Catalog) Nearest(easting, northing float64, param domain.Parameter) (domain.Station, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		best     domain.Station
		bestDist = math.MaxFloat64
		found    bool
	)
	for _, st := range c.stations {
		if !st.Supports(param) || (st.Easting == 0 && st.Northing == 0) {
			continue
		}
		if d := osgb.Distance(easting, northing, st.Easting, st.Northing); d < bestDist {
			best, bestDist, found = st, d, true
		}
	}
	return best, found
}

// EnrichDetail fetches station detail for every level station missing a
// stage scale and fills the scale in, one request at a time. Stations whose
// detail fetch fails are left as they were; the error count is logged. The
// context aborts the sweep between requests.
func (c *Catalog) EnrichDetail(ctx context.Context, source DetailSource) (int, error) {
	var refs []string
	for _, st := range c.List() {
		if st.StageScale == nil && st.Supports(domain.ParameterLevel) {
			refs = append(refs, st.Reference)
		}
	}

	enriched, failed := 0, 0
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return enriched, err
		}
		detail, err := source.StationDetail(ctx, ref)
		if err != nil {
			failed++
			c.logger.Warn("station detail fetch failed", "station", ref, "error", err)
			continue
		}
		if detail.StageScale == nil {
			continue
		}
		c.mu.Lock()
		if st, ok := c.stations[ref]; ok {
			st.StageScale = detail.StageScale
			c.stations[ref] = st
			enriched++
		}
		c.mu.Unlock()
	}
	c.logger.Info("station catalog enriched", "enriched", enriched, "failed", failed)
	return enriched, nil
}
