package domain

import (
	"strconv"
	"strings"
)

const (
	milesToKm   = 1.60934
	msToKnots   = 1.94384
	metersPerKm = 1000.0
	maxReportSM = 10.0 // the "10+" sentinel normalizes to 10 statute miles
	windUnitCut = 50.0 // below this a wind value is assumed to already be knots
)

// severityTable is an ordered keyword table for free-text severity
// extraction. Entries are scanned worst-first so the most severe match wins.
type severityTable []struct {
	level    Severity
	keywords []string
}

var turbulenceTable = severityTable{
	{SeveritySevere, []string{"severe turbulence", "sev turb"}},
	{SeverityModerate, []string{"moderate turbulence", "mod turb"}},
	{SeverityLight, []string{"light turbulence", "lt turb"}},
}

var icingTable = severityTable{
	{SeveritySevere, []string{"severe icing", "sev ice"}},
	{SeverityModerate, []string{"moderate icing", "mod ice"}},
	{SeverityLight, []string{"light icing", "lt ice"}},
	{SeverityTrace, []string{"trace icing", "tr ice"}},
}

// hazardVocabulary is the fixed AFD keyword set, scanned case-insensitively.
var hazardVocabulary = []string{
	"ifr", "convection", "low ceiling", "turbulence", "icing", "fog", "thunderstorm",
}

func (t severityTable) match(text string) Severity {
	lower := strings.ToLower(text)
	for _, row := range t {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				return row.level
			}
		}
	}
	return SeverityNone
}

// ExtractTurbulence finds the worst turbulence severity mentioned in free
// text, or SeverityNone when nothing matches.
func ExtractTurbulence(text string) Severity {
	if text == "" {
		return SeverityNone
	}
	return turbulenceTable.match(text)
}

// ExtractIcing finds the worst icing severity mentioned in free text.
func ExtractIcing(text string) Severity {
	if text == "" {
		return SeverityNone
	}
	return icingTable.match(text)
}

// ExtractHazardKeywords returns the subset of the hazard vocabulary present
// in an area-discussion text, in vocabulary order.
func ExtractHazardKeywords(text string) []string {
	found := []string{}
	if text == "" {
		return found
	}
	lower := strings.ToLower(text)
	for _, kw := range hazardVocabulary {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// NormalizeVisibility converts a reported visibility to kilometers.
// "SM"-suffixed values are statute miles (simple and fractional forms such
// as "1/2SM" and "1 1/2SM"); the "10+" sentinel is treated as 10 statute
// miles; a bare numeric value is interpreted as meters.
func NormalizeVisibility(visib string) *float64 {
	visib = strings.TrimSpace(visib)
	if visib == "" {
		return nil
	}
	if strings.HasPrefix(visib, "10+") {
		km := maxReportSM * milesToKm
		return &km
	}
	if strings.HasSuffix(visib, "SM") {
		miles, ok := parseMiles(strings.TrimSuffix(visib, "SM"))
		if !ok {
			return nil
		}
		km := miles * milesToKm
		return &km
	}
	meters, err := strconv.ParseFloat(visib, 64)
	if err != nil {
		return nil
	}
	km := meters / metersPerKm
	return &km
}

// parseMiles parses "6", "1/2" and "1 1/2" style statute-mile values.
func parseMiles(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	whole := 0.0
	frac := s
	if fields := strings.Fields(s); len(fields) == 2 {
		w, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, false
		}
		whole = w
		frac = fields[1]
	}

	if num, den, ok := strings.Cut(frac, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return whole + n/d, true
	}

	v, err := strconv.ParseFloat(frac, 64)
	if err != nil {
		return 0, false
	}
	return whole + v, true
}

// NormalizeWindSpeed standardizes a wind value to knots. Values below 50
// are assumed to already be knots; values at or above 50 are assumed to be
// meters/second and converted. The threshold misclassifies genuinely severe
// knot-class winds; that ambiguity is inherited from the upstream data,
// which does not label the unit.
func NormalizeWindSpeed(speed *float64) *float64 {
	if speed == nil || *speed == 0 {
		return nil
	}
	if *speed < windUnitCut {
		v := *speed
		return &v
	}
	kt := *speed * msToKnots
	return &kt
}

// Normalize maps raw per-kind collections into standardized per-station
// records: units fixed, severities and hazard keywords extracted. Ceilings
// pass through unchanged; the source already reports feet AGL.
func Normalize(data WeatherData) NormalizedData {
	n := NormalizedData{
		Observations: make([]NormalizedObservation, 0, len(data.METAR)),
		Forecasts:    make([]NormalizedForecast, 0, len(data.TAF)),
		PilotReports: make([]NormalizedPilotReport, 0, len(data.PIREP)),
		Advisories:   make([]NormalizedAdvisory, 0, len(data.SIGMET)),
		Discussions:  make([]NormalizedDiscussion, 0, len(data.AFD)),
	}

	for _, m := range data.METAR {
		n.Observations = append(n.Observations, NormalizedObservation{
			Station:        m.ICAOID,
			VisibilityKm:   NormalizeVisibility(string(m.Visib)),
			CeilingFt:      m.Ceil,
			WindSpeedKt:    NormalizeWindSpeed(m.Wspd),
			WindGustKt:     NormalizeWindSpeed(m.Wgst),
			TemperatureC:   m.Temp,
			DewpointC:      m.Dewp,
			PressureHpa:    m.Altim,
			Weather:        m.WxString,
			FlightCategory: m.FltCat,
			Raw:            m.RawOb,
			ObsTime:        m.ObsTime,
		})
	}

	for _, t := range data.TAF {
		n.Forecasts = append(n.Forecasts, NormalizedForecast{
			Station:  t.ICAOID,
			Forecast: t.RawTAF,
			IssuedAt: t.IssueTime,
		})
	}

	for _, p := range data.PIREP {
		n.PilotReports = append(n.PilotReports, NormalizedPilotReport{
			Station:    p.ICAOID,
			Turbulence: ExtractTurbulence(p.RawOb),
			Icing:      ExtractIcing(p.RawOb),
			AltitudeFt: p.Altitude,
			Raw:        p.RawOb,
			ObsTime:    p.ObsTime,
		})
	}

	for _, s := range data.SIGMET {
		n.Advisories = append(n.Advisories, NormalizedAdvisory{
			Station:  s.ICAOID,
			Hazard:   s.Hazard,
			Severity: SeveritySevere,
			Raw:      s.RawSigmet,
			IssuedAt: s.IssueTime,
		})
	}

	for _, a := range data.AFD {
		n.Discussions = append(n.Discussions, NormalizedDiscussion{
			Station:  a.ICAOID,
			Text:     a.RawAFD,
			Keywords: ExtractHazardKeywords(a.RawAFD),
			IssuedAt: a.IssueTime,
		})
	}

	return n
}
