// Package floodapi is the HTTP adapter for the Environment Agency real-time
// flood-monitoring API. It exposes the live measure sweep, per-station
// readings, the station list and detail endpoints, and the daily archive
// CSV download, all decoded into domain types.
package floodapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gaugeworks/floodgauge/internal/domain"
	"github.com/gaugeworks/floodgauge/internal/observability"
)

const (
	// DefaultBaseURL is the public flood-monitoring API root.
	DefaultBaseURL = "https://environment.data.gov.uk/flood-monitoring"

	// pageLimit caps list responses. The API default of 500 is far too
	// small for a national measure or station sweep.
	pageLimit = 10000
)

// Client talks to the flood-monitoring API. All methods issue exactly one
// request; there is no retrying, caching or pagination follow-up.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient builds a client for the given API root. An empty baseURL selects
// the public endpoint.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// LatestMeasures returns the newest reading of every measure for a
// parameter, one reading per measure. Dormant measures report their latest
// reading as a bare URI instead of an object; those are skipped.
func (c *Client) LatestMeasures(ctx context.Context, param domain.Parameter) ([]domain.Reading, error) {
	u := c.baseURL + "/id/measures.json?_limit=" + strconv.Itoa(pageLimit)
	if param != domain.ParameterAny {
		u += "&parameter=" + url.QueryEscape(string(param))
	}

	var resp measuresResponse
	if err := c.getJSON(ctx, "measures", u, &resp); err != nil {
		return nil, err
	}

	readings := make([]domain.Reading, 0, len(resp.Items))
	skipped := 0
	for _, item := range resp.Items {
		var latest latestReading
		if len(item.LatestReading) == 0 || json.Unmarshal(item.LatestReading, &latest) != nil {
			skipped++
			continue
		}
		ts, err := time.Parse(time.RFC3339, latest.DateTime)
		if err != nil {
			skipped++
			continue
		}
		readings = append(readings, domain.Reading{
			StationReference: item.StationReference,
			Time:             ts.UTC(),
			Parameter:        domain.Parameter(item.Parameter),
			Qualifier:        item.Qualifier,
			Unit:             item.UnitName,
			Value:            float64(latest.Value),
		})
	}
	c.logger.Debug("fetched latest measures",
		"parameter", string(param),
		"readings", len(readings),
		"skipped", skipped)
	return readings, nil
}

// StationReadings returns up to limit readings for one station, oldest
// first. The readings endpoint carries measure URIs rather than parameter
// fields, so parameter, qualifier and unit come from parsing the measure
// notation; readings under an unparseable notation keep empty fields.
func (c *Client) StationReadings(ctx context.Context, stationRef string, limit int) ([]domain.Reading, error) {
	if stationRef == "" {
		return nil, errors.New("station reference is required")
	}
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}
	u := fmt.Sprintf("%s/data/readings.json?stationReference=%s&_sorted&_limit=%d",
		c.baseURL, url.QueryEscape(stationRef), limit)

	var resp readingsResponse
	if err := c.getJSON(ctx, "readings", u, &resp); err != nil {
		return nil, err
	}

	readings := make([]domain.Reading, 0, len(resp.Items))
	for _, item := range resp.Items {
		ts, err := time.Parse(time.RFC3339, item.DateTime)
		if err != nil {
			return nil, &ParseError{URL: u, Err: fmt.Errorf("reading dateTime %q: %w", item.DateTime, err)}
		}
		r := domain.Reading{
			StationReference: stationRef,
			Time:             ts.UTC(),
			Value:            float64(item.Value),
		}
		if m, err := domain.ParseMeasure(item.Measure); err == nil {
			r.Parameter = m.Parameter
			r.Qualifier = m.Qualifier
			r.Unit = m.Unit
		}
		readings = append(readings, r)
	}

	// The _sorted view is newest first; callers want chronological order.
	slices.SortFunc(readings, func(a, b domain.Reading) int {
		return a.Time.Compare(b.Time)
	})
	c.logger.Debug("fetched station readings", "station", stationRef, "readings", len(readings))
	return readings, nil
}

// Stations returns the station list for a parameter, ParameterAny for all.
func (c *Client) Stations(ctx context.Context, param domain.Parameter) ([]domain.Station, error) {
	u := c.baseURL + "/id/stations.json?_view=full&_limit=" + strconv.Itoa(pageLimit)
	if param != domain.ParameterAny {
		u += "&parameter=" + url.QueryEscape(string(param))
	}

	var resp stationsResponse
	if err := c.getJSON(ctx, "stations", u, &resp); err != nil {
		return nil, err
	}

	stations := make([]domain.Station, 0, len(resp.Items))
	for _, item := range resp.Items {
		st := item.toDomain()
		if st.Reference == "" {
			continue
		}
		stations = append(stations, st)
	}
	c.logger.Debug("fetched station list", "parameter", string(param), "stations", len(stations))
	return stations, nil
}

// StationDetail fetches one station's full record, including its stage
// scale when the station has one.
func (c *Client) StationDetail(ctx context.Context, ref string) (domain.Station, error) {
	if ref == "" {
		return domain.Station{}, errors.New("station reference is required")
	}
	u := c.baseURL + "/id/stations/" + url.PathEscape(ref) + ".json"

	var resp stationDetailResponse
	if err := c.getJSON(ctx, "station_detail", u, &resp); err != nil {
		return domain.Station{}, err
	}
	st := resp.Items.toDomain()
	if st.Reference == "" {
		st.Reference = ref
	}
	return st, nil
}

// ArchiveDay downloads and parses the full readings archive for one UTC
// day. Rows come back raw; domain.ParseArchiveRow turns them into readings.
func (c *Client) ArchiveDay(ctx context.Context, day time.Time) ([]domain.ArchiveRow, error) {
	u := fmt.Sprintf("%s/archive/readings-full-%s.csv", c.baseURL, day.UTC().Format(domain.DayFormat))

	body, err := c.get(ctx, "archive", u)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	rows, err := parseArchiveCSV(body)
	if err != nil {
		return nil, &ParseError{URL: u, Err: err}
	}
	c.logger.Debug("fetched archive day", "day", day.UTC().Format(domain.DayFormat), "rows", len(rows))
	return rows, nil
}

// get issues one GET and returns the response body after a status check.
func (c *Client) get(ctx context.Context, endpoint, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, &FetchError{URL: url, Err: err}
	}
	c.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	c.metrics.APIRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// getJSON issues one GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, endpoint, url string, out any) error {
	body, err := c.get(ctx, endpoint, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return &ParseError{URL: url, Err: err}
	}
	return nil
}

// parseArchiveCSV reads a readings-full archive file. Columns are located by
// header name because the column set varies between archive days; dateTime,
// stationReference and value must be present.
func parseArchiveCSV(r io.Reader) ([]domain.ArchiveRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read archive header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"dateTime", "stationReference", "value"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("archive CSV is missing the %q column", required)
		}
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var rows []domain.ArchiveRow
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive row: %w", err)
		}
		rows = append(rows, domain.ArchiveRow{
			DateTime:         get(row, "dateTime"),
			Measure:          get(row, "measure"),
			Parameter:        get(row, "parameter"),
			Qualifier:        get(row, "qualifier"),
			StationReference: get(row, "stationReference"),
			Value:            get(row, "value"),
			Unit:             get(row, "unitName"),
		})
	}
	return rows, nil
}

// EA flood-monitoring API response types.

type measuresResponse struct {
	Items []measureItem `json:"items"`
}

type measureItem struct {
	StationReference string          `json:"stationReference"`
	Parameter        string          `json:"parameter"`
	Qualifier        string          `json:"qualifier"`
	UnitName         string          `json:"unitName"`
	LatestReading    json.RawMessage `json:"latestReading"`
}

type latestReading struct {
	DateTime string    `json:"dateTime"`
	Value    flexFloat `json:"value"`
}

type readingsResponse struct {
	Items []readingItem `json:"items"`
}

type readingItem struct {
	DateTime string    `json:"dateTime"`
	Measure  string    `json:"measure"`
	Value    flexFloat `json:"value"`
}

type stationsResponse struct {
	Items []stationItem `json:"items"`
}

type stationDetailResponse struct {
	Items stationItem `json:"items"`
}

type stationItem struct {
	StationReference string          `json:"stationReference"`
	Label            flexString      `json:"label"`
	RiverName        string          `json:"riverName"`
	Town             string          `json:"town"`
	Lat              flexFloat       `json:"lat"`
	Long             flexFloat       `json:"long"`
	Easting          flexFloat       `json:"easting"`
	Northing         flexFloat       `json:"northing"`
	Measures         []measureRef    `json:"measures"`
	StageScale       *stageScaleItem `json:"stageScale"`
}

type measureRef struct {
	Parameter string `json:"parameter"`
}

type stageScaleItem struct {
	TypicalRangeLow  float64      `json:"typicalRangeLow"`
	TypicalRangeHigh float64      `json:"typicalRangeHigh"`
	MinOnRecord      *recordValue `json:"minOnRecord"`
	MaxOnRecord      *recordValue `json:"maxOnRecord"`
}

type recordValue struct {
	Value float64 `json:"value"`
}

func (s stationItem) toDomain() domain.Station {
	st := domain.Station{
		Reference: s.StationReference,
		Name:      string(s.Label),
		RiverName: s.RiverName,
		Town:      s.Town,
		Lat:       float64(s.Lat),
		Lon:       float64(s.Long),
		Easting:   float64(s.Easting),
		Northing:  float64(s.Northing),
	}
	seen := make(map[domain.Parameter]bool)
	for _, m := range s.Measures {
		p := domain.Parameter(m.Parameter)
		if p == domain.ParameterAny || seen[p] {
			continue
		}
		seen[p] = true
		st.Parameters = append(st.Parameters, p)
	}
	if s.StageScale != nil {
		scale := domain.StageScale{
			TypicalRangeLow:  s.StageScale.TypicalRangeLow,
			TypicalRangeHigh: s.StageScale.TypicalRangeHigh,
		}
		if s.StageScale.MinOnRecord != nil {
			scale.MinOnRecord = s.StageScale.MinOnRecord.Value
		}
		if s.StageScale.MaxOnRecord != nil {
			scale.MaxOnRecord = s.StageScale.MaxOnRecord.Value
		}
		st.StageScale = &scale
	}
	return st
}

// flexString tolerates fields the API serves sometimes as a string and
// sometimes as an array of strings; the last entry wins.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var arr []string
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		if len(arr) > 0 {
			*f = flexString(arr[len(arr)-1])
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexString(s)
	return nil
}

// flexFloat does the same for numeric fields served as a number or an array
// of numbers; the first entry wins.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var arr []float64
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		if len(arr) > 0 {
			*f = flexFloat(arr[0])
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
