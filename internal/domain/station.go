package domain

// StageScale describes the historical behaviour of a level station's gauge.
// Values are metres against the station datum.
type StageScale struct {
	TypicalRangeLow  float64 `json:"typicalRangeLow"`
	TypicalRangeHigh float64 `json:"typicalRangeHigh"`
	MinOnRecord      float64 `json:"minOnRecord"`
	MaxOnRecord      float64 `json:"maxOnRecord"`
}

// Station is one EA monitoring station. Easting and Northing are OSGB36 grid
// coordinates; StageScale is nil until a station detail fetch fills it in.
type Station struct {
	Reference  string      `json:"stationReference"`
	Name       string      `json:"label"`
	RiverName  string      `json:"riverName,omitempty"`
	Town       string      `json:"town,omitempty"`
	Lat        float64     `json:"lat"`
	Lon        float64     `json:"long"`
	Easting    float64     `json:"easting"`
	Northing   float64     `json:"northing"`
	Parameters []Parameter `json:"parameters"`
	StageScale *StageScale `json:"stageScale,omitempty"`
}

// Supports reports whether the station measures the given parameter.
// ParameterAny matches every station.
func (s Station) Supports(p Parameter) bool {
	if p == ParameterAny {
		return true
	}
	for _, have := range s.Parameters {
		if have == p {
			return true
		}
	}
	return false
}

// RelativeLevel scales a level value by the station's typical range high, so
// 1.0 means "at the top of the typical range". It reports false when the
// station has no usable stage scale.
func (s Station) RelativeLevel(value float64) (float64, bool) {
	if s.StageScale == nil || s.StageScale.TypicalRangeHigh <= 0 {
		return 0, false
	}
	return value / s.StageScale.TypicalRangeHigh, true
}
