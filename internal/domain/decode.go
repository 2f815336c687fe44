package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	noWeather = "No significant weather"
	noClouds  = "No cloud information"
)

// compassPoints is the 16-point compass rose used for wind direction.
var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// cloudCoverNames maps METAR sky-cover codes to phrases. Unknown codes pass
// through unchanged.
var cloudCoverNames = map[string]string{
	"CLR": "Clear",
	"FEW": "Few clouds",
	"SCT": "Scattered clouds",
	"BKN": "Broken clouds",
	"OVC": "Overcast",
}

// weatherCodeNames maps METAR present-weather codes to descriptions.
// Unknown tokens pass through unchanged.
var weatherCodeNames = map[string]string{
	"RA": "Rain",
	"SN": "Snow",
	"FG": "Fog",
	"HZ": "Haze",
	"BR": "Mist",
	"TS": "Thunderstorm",
	"SH": "Showers",
	"DZ": "Drizzle",
	"GR": "Hail",
	"GS": "Small hail",
	"FU": "Smoke",
	"DU": "Dust",
	"SA": "Sand",
	"VA": "Volcanic ash",
	"SQ": "Squalls",
	"FC": "Funnel cloud",
	"SS": "Sandstorm",
	"DS": "Duststorm",
}

// DecodeObservation converts one raw METAR into human-readable descriptors
// and a narrative summary. Missing optional fields become "<field> not
// available" phrases; a failure mid-decode yields a minimal error record
// rather than propagating, so decoding never aborts the caller.
func DecodeObservation(m RawMETAR) (decoded DecodedObservation) {
	defer func() {
		if r := recover(); r != nil {
			decoded = DecodedObservation{
				Station: stationOrUnknown(m.ICAOID),
				RawText: rawOrUnavailable(m.RawOb),
				Error:   fmt.Sprintf("failed to decode METAR: %v", r),
			}
		}
	}()

	station := stationOrUnknown(m.ICAOID)
	name := m.Name
	if name == "" {
		name = "Unknown Airport"
	}

	timeStr := decodeReportTime(m.ObsTime)

	decoded = DecodedObservation{
		Station:     station,
		AirportName: name,
		ReportTime:  timeStr,
		Temperature: decodeTemperature(m.Temp, m.Dewp),
		Wind:        decodeWind(m.Wdir, m.Wspd, m.Wgst),
		Visibility:  decodeVisibility(string(m.Visib)),
		Clouds:      decodeClouds(m.Clouds),
		Pressure:    decodePressure(m.Altim, m.Slp),
		Weather:     decodeWeather(m.WxString),
		RawText:     rawOrUnavailable(m.RawOb),
	}
	decoded.Summary = buildSummary(m, name, station, timeStr)
	return decoded
}

func stationOrUnknown(id string) string {
	if id == "" {
		return "Unknown"
	}
	return id
}

func rawOrUnavailable(raw string) string {
	if raw == "" {
		return "Not available"
	}
	return raw
}

// decodeReportTime renders a unix observation time as "<day> at HH:MM UTC".
func decodeReportTime(obsTime int64) string {
	if obsTime == 0 {
		return "Unknown time"
	}
	dt := time.Unix(obsTime, 0).UTC()
	return fmt.Sprintf("%d at %s UTC", dt.Day(), dt.Format("15:04"))
}

func decodeTemperature(temp, dewp *float64) string {
	if temp == nil {
		return "Temperature not available"
	}
	tempC := int(math.Round(*temp))
	if dewp != nil {
		return fmt.Sprintf("Temperature %d°C, dew point %d°C", tempC, int(math.Round(*dewp)))
	}
	return fmt.Sprintf("Temperature %d°C", tempC)
}

// CompassPoint buckets a wind direction in degrees into the 16-point rose.
func CompassPoint(degrees float64) string {
	idx := int(math.Round((degrees+11.25)/22.5)) % 16
	return compassPoints[idx]
}

func decodeWind(wdir, wspd, wgst *float64) string {
	switch {
	case wdir != nil && wspd != nil:
		s := fmt.Sprintf("Wind from %.0f degrees (%s) at %.0f knots", *wdir, CompassPoint(*wdir), *wspd)
		if wgst != nil && *wgst > *wspd {
			s += fmt.Sprintf(", gusting to %.0f knots", *wgst)
		}
		return s
	case wdir != nil:
		return fmt.Sprintf("Wind from %.0f degrees", *wdir)
	case wspd != nil:
		return fmt.Sprintf("Wind speed %.0f knots", *wspd)
	default:
		return "Wind information not available"
	}
}

func decodeVisibility(visib string) string {
	if visib == "" {
		return "Visibility not available"
	}
	if visib == "10+" {
		return "Visibility 10+ miles (excellent)"
	}
	if strings.HasSuffix(visib, "SM") {
		miles := strings.TrimSuffix(visib, "SM")
		if miles == "10+" {
			return "Visibility 10+ miles (excellent)"
		}
		if v, err := strconv.ParseFloat(miles, 64); err == nil {
			return fmt.Sprintf("Visibility %s miles (%.1f km)", miles, v*1.609)
		}
		return fmt.Sprintf("Visibility %s", visib)
	}
	return fmt.Sprintf("Visibility %s", visib)
}

func decodeClouds(layers []CloudLayer) string {
	if len(layers) == 0 {
		return noClouds
	}
	descs := make([]string, 0, len(layers))
	for _, layer := range layers {
		cover := layer.Cover
		if name, ok := cloudCoverNames[cover]; ok {
			cover = name
		}
		if layer.Base != nil && *layer.Base > 0 {
			descs = append(descs, fmt.Sprintf("%s at %d feet", cover, int(math.Round(*layer.Base))))
		} else {
			descs = append(descs, cover)
		}
	}
	return strings.Join(descs, ". ")
}

// decodePressure prefers the altimeter setting and falls back to sea-level
// pressure.
func decodePressure(altim, slp *float64) string {
	if altim != nil {
		return fmt.Sprintf("Pressure %.1f hPa", *altim)
	}
	if slp != nil {
		return fmt.Sprintf("Sea level pressure %.1f hPa", *slp)
	}
	return "Pressure not available"
}

func decodeWeather(wxString string) string {
	if strings.TrimSpace(wxString) == "" {
		return noWeather
	}
	var conditions []string
	for _, code := range strings.Fields(wxString) {
		if desc, ok := weatherCodeNames[code]; ok {
			conditions = append(conditions, desc)
		} else {
			conditions = append(conditions, code)
		}
	}
	if len(conditions) == 0 {
		return noWeather
	}
	return strings.Join(conditions, ", ")
}

// buildSummary assembles the narrative briefing sentence by sentence.
// Defaults ("10+" visibility, no significant weather, no cloud info) are
// omitted rather than stated.
func buildSummary(m RawMETAR, name, station, timeStr string) string {
	parts := []string{fmt.Sprintf("%s (%s), report issued on the %s", name, station, timeStr)}

	if m.Wdir != nil && m.Wspd != nil {
		s := fmt.Sprintf("Wind from %.0f degrees at %.0f knots", *m.Wdir, *m.Wspd)
		if m.Wgst != nil && *m.Wgst > *m.Wspd {
			s += fmt.Sprintf(", gusting to %.0f knots", *m.Wgst)
		}
		parts = append(parts, s)
	}

	visib := string(m.Visib)
	if visib != "" {
		if visib == "10+" {
			parts = append(parts, "Visibility 10+ miles")
		} else if strings.HasSuffix(visib, "SM") {
			if miles := strings.TrimSuffix(visib, "SM"); miles != "10+" {
				parts = append(parts, fmt.Sprintf("Visibility %s miles", miles))
			}
		}
	}

	if wx := decodeWeather(m.WxString); wx != noWeather {
		parts = append(parts, wx)
	}
	if clouds := decodeClouds(m.Clouds); clouds != noClouds {
		parts = append(parts, clouds)
	}
	if m.Temp != nil {
		tempC := int(math.Round(*m.Temp))
		if m.Dewp != nil {
			parts = append(parts, fmt.Sprintf("Temperature %d°C, dew point %d°C", tempC, int(math.Round(*m.Dewp))))
		} else {
			parts = append(parts, fmt.Sprintf("Temperature %d°C", tempC))
		}
	}
	if m.Altim != nil {
		parts = append(parts, fmt.Sprintf("Pressure %.1f hPa", *m.Altim))
	}

	parts = append(parts, "No significant change expected")
	return strings.Join(parts, ". ") + "."
}
