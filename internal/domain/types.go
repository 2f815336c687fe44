package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// Visibility is reported by the upstream API either as a bare number
// (e.g. 4.97) or as a string such as "10+" or "1 1/2SM". It accepts both
// JSON forms and preserves the textual value for downstream interpretation.
type Visibility string

func (v *Visibility) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*v = Visibility(str)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Visibility(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// CloudLayer is one cloud group from a METAR, e.g. {"cover":"BKN","base":2500}.
type CloudLayer struct {
	Cover string   `json:"cover"`
	Base  *float64 `json:"base"`
}

// RawMETAR is one current-observation record as returned by the upstream
// provider. Numeric fields are pointers because the provider omits them
// when the sensor did not report.
type RawMETAR struct {
	ICAOID   string       `json:"icaoId"`
	Name     string       `json:"name"`
	ObsTime  int64        `json:"obsTime"` // unix seconds
	Temp     *float64     `json:"temp"`    // °C
	Dewp     *float64     `json:"dewp"`    // °C
	Wdir     *float64     `json:"wdir"`    // degrees true
	Wspd     *float64     `json:"wspd"`    // knots
	Wgst     *float64     `json:"wgst"`    // knots
	Visib    Visibility   `json:"visib"`
	Altim    *float64     `json:"altim"` // hPa
	Slp      *float64     `json:"slp"`   // hPa
	Ceil     *float64     `json:"ceil"`  // ft AGL
	Clouds   []CloudLayer `json:"clouds"`
	WxString string       `json:"wxString"`
	FltCat   string       `json:"fltCat"`
	RawOb    string       `json:"rawOb"`
}

// RawTAF is one terminal-area forecast record.
type RawTAF struct {
	ICAOID    string `json:"icaoId"`
	IssueTime string `json:"issueTime"`
	ValidFrom int64  `json:"validTimeFrom"`
	ValidTo   int64  `json:"validTimeTo"`
	RawTAF    string `json:"rawTAF"`
}

// RawPIREP is one pilot report. Turbulence and icing live in the free-text
// body and are extracted by the normalizer.
type RawPIREP struct {
	ICAOID      string   `json:"icaoId"`
	AircraftRef string   `json:"aircraftRef"`
	ObsTime     int64    `json:"obsTime"`
	Altitude    *float64 `json:"alt"` // ft
	RawOb       string   `json:"rawOb"`
}

// RawSIGMET is one area-wide hazard advisory.
type RawSIGMET struct {
	ICAOID    string `json:"icaoId"`
	Hazard    string `json:"hazard"`
	IssueTime string `json:"issueTime"`
	RawSigmet string `json:"rawSigmet"`
}

// RawAFD is one area forecast discussion, a free-text forecaster narrative.
type RawAFD struct {
	ICAOID    string `json:"icaoId"`
	IssueTime string `json:"issueTime"`
	RawAFD    string `json:"rawAFD"`
}

// RawStation is one station-metadata record.
type RawStation struct {
	ICAOID  string   `json:"icaoId"`
	Site    string   `json:"site"`
	State   string   `json:"state"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Elev    *float64 `json:"elev"` // meters
}

// WeatherData bundles the raw per-kind collections for one pipeline
// invocation. Missing kinds are empty slices, never nil-vs-present.
type WeatherData struct {
	METAR  []RawMETAR  `json:"metar"`
	TAF    []RawTAF    `json:"taf"`
	PIREP  []RawPIREP  `json:"pirep"`
	SIGMET []RawSIGMET `json:"sigmet"`
	AFD    []RawAFD    `json:"afd"`
}

// Severity is a reported turbulence or icing intensity.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityTrace    Severity = "trace"
	SeverityLight    Severity = "light"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// NormalizedObservation is a per-station METAR with units standardized:
// visibility in kilometers, wind in knots, ceiling in feet AGL,
// temperature in Celsius.
type NormalizedObservation struct {
	Station        string   `json:"station"`
	VisibilityKm   *float64 `json:"visibility_km,omitempty"`
	CeilingFt      *float64 `json:"ceiling_ft,omitempty"`
	WindSpeedKt    *float64 `json:"wind_speed_kt,omitempty"`
	WindGustKt     *float64 `json:"wind_gust_kt,omitempty"`
	TemperatureC   *float64 `json:"temperature_c,omitempty"`
	DewpointC      *float64 `json:"dewpoint_c,omitempty"`
	PressureHpa    *float64 `json:"pressure_hpa,omitempty"`
	Weather        string   `json:"weather,omitempty"`
	FlightCategory string   `json:"flight_category,omitempty"`
	Raw            string   `json:"raw,omitempty"`
	ObsTime        int64    `json:"obs_time,omitempty"`
}

// NormalizedForecast is a per-station TAF reduced to its raw text and issue time.
type NormalizedForecast struct {
	Station  string `json:"station"`
	Forecast string `json:"forecast"`
	IssuedAt string `json:"issued_at,omitempty"`
}

// NormalizedPilotReport carries the turbulence and icing severities
// extracted from a PIREP's free text.
type NormalizedPilotReport struct {
	Station    string   `json:"station"`
	Turbulence Severity `json:"turbulence"`
	Icing      Severity `json:"icing"`
	AltitudeFt *float64 `json:"altitude_ft,omitempty"`
	Raw        string   `json:"raw,omitempty"`
	ObsTime    int64    `json:"obs_time,omitempty"`
}

// NormalizedAdvisory is a SIGMET. Advisories are always flagged at maximum
// severity; their presence is significant regardless of content.
type NormalizedAdvisory struct {
	Station  string   `json:"station"`
	Hazard   string   `json:"hazard"`
	Severity Severity `json:"severity"`
	Raw      string   `json:"raw,omitempty"`
	IssuedAt string   `json:"issued_at,omitempty"`
}

// NormalizedDiscussion is an AFD with its hazard keywords extracted.
type NormalizedDiscussion struct {
	Station  string   `json:"station"`
	Text     string   `json:"text,omitempty"`
	Keywords []string `json:"keywords"`
	IssuedAt string   `json:"issued_at,omitempty"`
}

// NormalizedData is the standardized view of one WeatherData bundle.
type NormalizedData struct {
	Observations []NormalizedObservation `json:"observations"`
	Forecasts    []NormalizedForecast    `json:"forecasts"`
	PilotReports []NormalizedPilotReport `json:"pilot_reports"`
	Advisories   []NormalizedAdvisory    `json:"advisories"`
	Discussions  []NormalizedDiscussion  `json:"discussions"`
}

// DecodedObservation holds the human-readable descriptors for one METAR.
// Error is set instead of the descriptors when decoding failed; decoding
// never aborts the caller.
type DecodedObservation struct {
	Station     string `json:"station"`
	AirportName string `json:"airport_name,omitempty"`
	ReportTime  string `json:"report_time,omitempty"`
	Temperature string `json:"temperature,omitempty"`
	Wind        string `json:"wind,omitempty"`
	Visibility  string `json:"visibility,omitempty"`
	Clouds      string `json:"clouds,omitempty"`
	Pressure    string `json:"pressure,omitempty"`
	Weather     string `json:"weather,omitempty"`
	Summary     string `json:"summary,omitempty"`
	RawText     string `json:"raw_metar"`
	Error       string `json:"error,omitempty"`
}

// RiskParameter names one scored weather dimension.
type RiskParameter string

const (
	ParamVisibility  RiskParameter = "visibility"
	ParamCeiling     RiskParameter = "ceiling"
	ParamWind        RiskParameter = "wind"
	ParamTemperature RiskParameter = "temperature"
	ParamTurbulence  RiskParameter = "turbulence"
	ParamIcing       RiskParameter = "icing"
	ParamSIGMET      RiskParameter = "sigmet"
	ParamAFD         RiskParameter = "afd"
)

// RiskBand is a named score range with a recommended operational action.
// The five bands cover [0,100] with no gaps or overlaps.
type RiskBand struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	MinScore int    `json:"min_score"`
	MaxScore int    `json:"max_score"`
	Color    string `json:"color"`
	Action   string `json:"action"`
}

// Recommendation is one actionable item attached to an assessment.
type Recommendation struct {
	Kind     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// RiskAssessment is the banded result of one scoring invocation.
// Computed fresh per call and never mutated afterwards.
type RiskAssessment struct {
	OverallScore    int                       `json:"overall_score"`
	Band            RiskBand                  `json:"band"`
	ParameterScores map[RiskParameter]float64 `json:"parameter_scores"`
	Recommendations []Recommendation          `json:"recommendations"`
	ComputedAt      time.Time                 `json:"computed_at"`
	Error           string                    `json:"error,omitempty"`
}

// DashboardAssessment is the projection of an assessment for display.
type DashboardAssessment struct {
	RiskScore       int              `json:"risk_score"`
	RiskLevel       string           `json:"risk_level"`
	RiskColor       string           `json:"risk_color"`
	Recommendations []Recommendation `json:"recommendations"`
	NeedsAttention  bool             `json:"needs_attention"`
	Timestamp       time.Time        `json:"timestamp"`
}
