package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// measureRe splits a measure notation into its dash-delimited parts. Station
// references may themselves contain dashes, so the known parameter names
// anchor the split.
var measureRe = regexp.MustCompile(`^(.+)-(rainfall|level|flow|wind|temperature)-([a-z0-9_]+)-([a-z])-([0-9a-z_]+)-(.+)$`)

// ParseParameter validates a user-supplied parameter name. The empty string
// selects all parameters.
func ParseParameter(s string) (Parameter, error) {
	switch p := Parameter(strings.ToLower(strings.TrimSpace(s))); p {
	case ParameterAny, ParameterRainfall, ParameterLevel, ParameterFlow:
		return p, nil
	default:
		return ParameterAny, fmt.Errorf("unknown parameter %q (want rainfall, level, flow or empty)", s)
	}
}

// ParseMeasure extracts the station reference, parameter, qualifier, value
// type, period and unit from a measure URI or bare notation.
func ParseMeasure(uri string) (Measure, error) {
	notation := uri
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		notation = uri[i+1:]
	}
	m := measureRe.FindStringSubmatch(notation)
	if m == nil {
		return Measure{}, fmt.Errorf("unrecognized measure notation %q", notation)
	}
	return Measure{
		StationReference: m[1],
		Parameter:        Parameter(m[2]),
		Qualifier:        m[3],
		ValueType:        m[4],
		Period:           m[5],
		Unit:             m[6],
	}, nil
}

// ParseArchiveRow converts a raw archive CSV row into a Reading. The
// parameter passes through lower-cased rather than validated: archive files
// carry every parameter the API serves, and rows are filtered at query time.
func ParseArchiveRow(row ArchiveRow) (Reading, error) {
	station := strings.TrimSpace(row.StationReference)
	if station == "" {
		return Reading{}, fmt.Errorf("archive row: missing stationReference")
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(row.DateTime))
	if err != nil {
		return Reading{}, fmt.Errorf("archive row for %s: parse dateTime: %w", station, err)
	}
	value, err := parseReadingValue(row.Value)
	if err != nil {
		return Reading{}, fmt.Errorf("archive row for %s at %s: %w", station, row.DateTime, err)
	}
	return Reading{
		StationReference: station,
		Time:             ts.UTC(),
		Parameter:        Parameter(strings.ToLower(strings.TrimSpace(row.Parameter))),
		Qualifier:        strings.TrimSpace(row.Qualifier),
		Unit:             strings.TrimSpace(row.Unit),
		Value:            value,
	}, nil
}

// parseReadingValue parses a reading value string. A handful of archive rows
// carry several pipe-separated values for one instant; those are rejected
// rather than guessed at.
func parseReadingValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	if strings.Contains(s, "|") {
		return 0, fmt.Errorf("multi-valued reading %q", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", s, err)
	}
	return v, nil
}
