// Package risk scores normalized weather data against operational minima
// and maps the result onto a five-band scale with recommended actions.
// Thresholds follow ICAO/FAA operational minima.
package risk

import (
	"math"
	"time"

	"github.com/skybrief/avwx-risk/internal/domain"
)

// kmPerMile converts normalized visibility back to statute miles, the
// unit the minima are expressed in.
const kmPerMile = 1.60934

// Operational minima per parameter.
const (
	visibilitySafeSM    = 6.0
	visibilityCautionSM = 3.0
	ceilingSafeFt       = 3000.0
	ceilingCautionFt    = 1000.0
	windCautionKt       = 20.0
	windHazardKt        = 35.0
	fogSpreadC          = 2.0
)

// weights distribute the eight parameter scores into the overall score.
// They sum to 1.0.
var weights = map[domain.RiskParameter]float64{
	domain.ParamVisibility:  0.20,
	domain.ParamCeiling:     0.20,
	domain.ParamWind:        0.15,
	domain.ParamTemperature: 0.10,
	domain.ParamTurbulence:  0.15,
	domain.ParamIcing:       0.10,
	domain.ParamSIGMET:      0.05,
	domain.ParamAFD:         0.05,
}

// bands cover [0,100] with no gaps or overlaps.
var bands = []domain.RiskBand{
	{Name: "low", Label: "Low Risk", MinScore: 0, MaxScore: 20, Color: "green", Action: "Routine operations"},
	{Name: "amberLow", Label: "Amber-Low", MinScore: 21, MaxScore: 45, Color: "amber", Action: "Monitor conditions; prepare mitigations"},
	{Name: "amberHigh", Label: "Amber-High", MinScore: 46, MaxScore: 70, Color: "amber", Action: "Likely operational impact; notify crew/dispatch"},
	{Name: "high", Label: "High Risk", MinScore: 71, MaxScore: 90, Color: "red", Action: "Restrict operations; consider delay/diversion"},
	{Name: "severe", Label: "Severe Risk", MinScore: 91, MaxScore: 100, Color: "red", Action: "Suspend operations; emergency procedures"},
}

// highRiskKeywords in a forecast discussion add a flat bonus to the
// keyword-count score.
var highRiskKeywords = map[string]bool{
	"thunderstorm":   true,
	"severe weather": true,
}

// Scores computes the eight parameter scores for one normalized bundle.
// Parameters with no source data score zero.
func Scores(data domain.NormalizedData) map[domain.RiskParameter]float64 {
	scores := map[domain.RiskParameter]float64{
		domain.ParamVisibility:  0,
		domain.ParamCeiling:     0,
		domain.ParamWind:        0,
		domain.ParamTemperature: 0,
		domain.ParamTurbulence:  0,
		domain.ParamIcing:       0,
		domain.ParamSIGMET:      0,
		domain.ParamAFD:         0,
	}

	if n := len(data.Observations); n > 0 {
		var sumVis, sumCeil, sumSpread, maxWind float64
		for _, obs := range data.Observations {
			// Missing readings contribute zero to the averages, biasing
			// visibility and ceiling toward caution and the temperature
			// spread toward the fog threshold.
			if obs.VisibilityKm != nil {
				sumVis += *obs.VisibilityKm / kmPerMile
			}
			if obs.CeilingFt != nil {
				sumCeil += *obs.CeilingFt
			}
			var temp, dewp float64
			if obs.TemperatureC != nil {
				temp = *obs.TemperatureC
			}
			if obs.DewpointC != nil {
				dewp = *obs.DewpointC
			}
			sumSpread += math.Abs(temp - dewp)

			var wind float64
			if obs.WindSpeedKt != nil {
				wind = *obs.WindSpeedKt
			}
			if obs.WindGustKt != nil && *obs.WindGustKt > wind {
				wind = *obs.WindGustKt
			}
			if wind > maxWind {
				maxWind = wind
			}
		}
		scores[domain.ParamVisibility] = visibilityRisk(sumVis / float64(n))
		scores[domain.ParamCeiling] = ceilingRisk(sumCeil / float64(n))
		scores[domain.ParamWind] = windRisk(maxWind)
		scores[domain.ParamTemperature] = temperatureRisk(sumSpread / float64(n))
	}

	if len(data.PilotReports) > 0 {
		var turbulence, icing []domain.Severity
		for _, pr := range data.PilotReports {
			if pr.Turbulence != domain.SeverityNone {
				turbulence = append(turbulence, pr.Turbulence)
			}
			if pr.Icing != domain.SeverityNone {
				icing = append(icing, pr.Icing)
			}
		}
		scores[domain.ParamTurbulence] = turbulenceRisk(turbulence)
		scores[domain.ParamIcing] = icingRisk(icing)
	}

	if len(data.Advisories) > 0 {
		scores[domain.ParamSIGMET] = 100
	}

	if len(data.Discussions) > 0 {
		var keywords []string
		for _, d := range data.Discussions {
			keywords = append(keywords, d.Keywords...)
		}
		scores[domain.ParamAFD] = discussionRisk(keywords)
	}

	return scores
}

func visibilityRisk(visibilitySM float64) float64 {
	switch {
	case visibilitySM >= visibilitySafeSM:
		return 0
	case visibilitySM >= visibilityCautionSM:
		return 30
	default:
		return 80
	}
}

func ceilingRisk(ceilingFt float64) float64 {
	switch {
	case ceilingFt >= ceilingSafeFt:
		return 0
	case ceilingFt >= ceilingCautionFt:
		return 40
	default:
		return 90
	}
}

func windRisk(windKt float64) float64 {
	switch {
	case windKt >= windHazardKt:
		return 100
	case windKt >= windCautionKt:
		return 50
	default:
		return 0
	}
}

func temperatureRisk(spreadC float64) float64 {
	if spreadC <= fogSpreadC {
		return 70
	}
	return 0
}

func turbulenceRisk(levels []domain.Severity) float64 {
	switch {
	case contains(levels, domain.SeveritySevere):
		return 100
	case contains(levels, domain.SeverityModerate):
		return 60
	case contains(levels, domain.SeverityLight):
		return 20
	default:
		return 0
	}
}

func icingRisk(levels []domain.Severity) float64 {
	switch {
	case contains(levels, domain.SeveritySevere), contains(levels, domain.SeverityModerate):
		return 100
	case contains(levels, domain.SeverityLight), contains(levels, domain.SeverityTrace):
		return 40
	default:
		return 0
	}
}

func discussionRisk(keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	score := float64(len(keywords)) * 10
	for _, kw := range keywords {
		if highRiskKeywords[kw] {
			score += 30
			break
		}
	}
	return math.Min(score, 80)
}

func contains(levels []domain.Severity, want domain.Severity) bool {
	for _, l := range levels {
		if l == want {
			return true
		}
	}
	return false
}

// Overall collapses the parameter scores into one weighted, rounded score.
func Overall(scores map[domain.RiskParameter]float64) int {
	var total float64
	for param, score := range scores {
		total += score * weights[param]
	}
	return int(math.Round(total))
}

// BandFor returns the band covering the given score. Out-of-range scores
// fall back to the lowest band.
func BandFor(score int) domain.RiskBand {
	for _, b := range bands {
		if score >= b.MinScore && score <= b.MaxScore {
			return b
		}
	}
	return bands[0]
}

// Recommendations builds the actionable items for one assessment: the
// band's general action first, then one item per elevated parameter.
func Recommendations(band domain.RiskBand, scores map[domain.RiskParameter]float64) []domain.Recommendation {
	recs := []domain.Recommendation{{
		Kind:     "general",
		Priority: "high",
		Message:  band.Action,
		Category: band.Label,
	}}

	if scores[domain.ParamVisibility] > 50 {
		recs = append(recs, domain.Recommendation{
			Kind:     "visibility",
			Priority: "high",
			Message:  "Low visibility conditions detected. Consider instrument approach procedures.",
			Category: "Visibility Risk",
		})
	}
	if scores[domain.ParamCeiling] > 50 {
		recs = append(recs, domain.Recommendation{
			Kind:     "ceiling",
			Priority: "high",
			Message:  "Low ceiling conditions. Monitor for approach minimums.",
			Category: "Ceiling Risk",
		})
	}
	if scores[domain.ParamWind] > 50 {
		recs = append(recs, domain.Recommendation{
			Kind:     "wind",
			Priority: "medium",
			Message:  "High wind conditions. Review crosswind limits and runway selection.",
			Category: "Wind Risk",
		})
	}
	if scores[domain.ParamTurbulence] > 50 {
		recs = append(recs, domain.Recommendation{
			Kind:     "turbulence",
			Priority: "medium",
			Message:  "Turbulence reported. Secure loose items and prepare for rough air.",
			Category: "Turbulence Risk",
		})
	}
	if scores[domain.ParamIcing] > 50 {
		recs = append(recs, domain.Recommendation{
			Kind:     "icing",
			Priority: "high",
			Message:  "Icing conditions reported. Ensure anti-ice systems are operational.",
			Category: "Icing Risk",
		})
	}
	if scores[domain.ParamSIGMET] > 0 {
		recs = append(recs, domain.Recommendation{
			Kind:     "sigmet",
			Priority: "critical",
			Message:  "SIGMET active. Severe weather conditions. Consider flight cancellation.",
			Category: "SIGMET Alert",
		})
	}

	return recs
}

// Assess scores one normalized bundle end to end. It is pure: the same
// input and timestamp always produce the same assessment.
func Assess(data domain.NormalizedData, now time.Time) domain.RiskAssessment {
	scores := Scores(data)
	overall := Overall(scores)
	band := BandFor(overall)

	return domain.RiskAssessment{
		OverallScore:    overall,
		Band:            band,
		ParameterScores: scores,
		Recommendations: Recommendations(band, scores),
		ComputedAt:      now,
	}
}
