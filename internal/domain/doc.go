// Package domain models Environment Agency (EA) flood-monitoring data.
//
// # Data Source
//
// Readings originate from the EA real-time flood-monitoring API at
// https://environment.data.gov.uk/flood-monitoring. Live values come from
// the measures and readings endpoints as JSON; historical values come from
// daily archive CSV files at /archive/readings-full-YYYY-MM-DD.csv. The
// archive keeps roughly the last two years, and the most recent days appear
// with a publication lag of about two days.
//
// # Parameters and Qualifiers
//
// Each measure reports one parameter:
//
//	rainfall  tipping-bucket gauge totals, usually 15-minute, in mm
//	level     water level against a local datum, usually 15-minute
//	flow      derived river flow, in m3/s
//
// The qualifier refines a level measure: "Stage" and "Downstream Stage" for
// river gauges, "Tidal Level" for coastal sites, "Groundwater" for boreholes.
// Archive files also carry parameters outside this set (wind, temperature);
// those pass through parsing unvalidated and are filtered at query time.
//
// # Measure Notation
//
// Measure URIs end in a dash-delimited notation:
//
//	{station}-{parameter}-{qualifier}-{valueType}-{period}-{unit}
//	e.g. "1029TH-level-stage-i-15_min-mASD"
//	     "52203-rainfall-tipping_bucket_raingauge-t-15_min-mm"
//
// Station references may contain dashes themselves, so [ParseMeasure] anchors
// the split on the known parameter names. Value type "i" marks instantaneous
// readings, "t" totals over the period.
//
// # Units and Datums
//
// Level readings are metres against a station datum: mASD (above stage
// datum), mAOD (above ordnance datum) or mBDAT for boreholes. A station's
// stage scale gives its typical range and records, which is what river maps
// divide by to show a comparable fraction per station.
//
// # Timestamps
//
// All API timestamps are UTC in RFC 3339 form ("2024-01-02T15:45:00Z").
// Readings are parsed into time.Time in UTC and never reinterpreted in local
// time.
//
// # Archive Availability
//
// Archive queries are validated against a moving window relative to the
// current clock: no older than 730 days, no newer than two days ago. See
// [ValidateArchiveRange]. Tests freeze the window via [SetClock].
package domain
