package domain

import (
	"context"
	"fmt"
	"strings"
)

// Summarizer produces a narrative weather briefing from a raw data bundle.
// Implementations may call out to a language model; TemplateSummarizer is
// the deterministic default, so the pipeline works with no collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, data WeatherData) (string, error)
}

// TemplateSummarizer renders a fixed-format bullet briefing from the data.
// It never fails and never calls out.
type TemplateSummarizer struct{}

func (TemplateSummarizer) Summarize(_ context.Context, data WeatherData) (string, error) {
	var bullets []string

	for _, m := range data.METAR {
		decoded := DecodeObservation(m)
		if decoded.Error != "" {
			continue
		}
		bullets = append(bullets, fmt.Sprintf("• %s: %s", decoded.Station, decoded.Summary))
	}

	for _, t := range data.TAF {
		if t.RawTAF == "" {
			continue
		}
		bullets = append(bullets, fmt.Sprintf("• %s: Forecast %s", stationOrUnknown(t.ICAOID), t.RawTAF))
	}

	for _, p := range data.PIREP {
		if p.RawOb == "" {
			continue
		}
		bullets = append(bullets, fmt.Sprintf("• Pilot Report (%s): %s", stationOrUnknown(p.AircraftRef), p.RawOb))
	}

	for _, s := range data.SIGMET {
		desc := s.RawSigmet
		if desc == "" {
			desc = s.Hazard
		}
		if desc == "" {
			continue
		}
		bullets = append(bullets, fmt.Sprintf("• Weather Alert: %s", desc))
	}

	if len(bullets) == 0 {
		return "No weather data available for briefing.", nil
	}
	return strings.Join(bullets, "\n"), nil
}
