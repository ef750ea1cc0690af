package domain

import "time"

// Parameter identifies what a measure reports. The empty value means "any
// parameter" in query contexts.
type Parameter string

const (
	ParameterAny      Parameter = ""
	ParameterRainfall Parameter = "rainfall"
	ParameterLevel    Parameter = "level"
	ParameterFlow     Parameter = "flow"
)

// Reading is a single observed value from one station at one instant.
type Reading struct {
	StationReference string    `json:"stationReference"`
	Time             time.Time `json:"dateTime"`
	Parameter        Parameter `json:"parameter"`
	Qualifier        string    `json:"qualifier,omitempty"`
	Unit             string    `json:"unit,omitempty"`
	Value            float64   `json:"value"`
}

// Measure is the parsed form of an EA measure notation, e.g.
// "1029TH-level-stage-i-15_min-mASD".
type Measure struct {
	StationReference string
	Parameter        Parameter
	Qualifier        string
	ValueType        string
	Period           string
	Unit             string
}

// ArchiveRow is one row of a daily archive CSV, still in string form. Column
// values are kept verbatim; ParseArchiveRow turns a row into a Reading.
type ArchiveRow struct {
	DateTime         string
	Measure          string
	Parameter        string
	Qualifier        string
	StationReference string
	Value            string
	Unit             string
}
