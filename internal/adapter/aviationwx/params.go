package aviationwx

import (
	"net/url"
	"strconv"
	"strings"
)

// Kind identifies one upstream data endpoint.
type Kind string

const (
	KindMETAR       Kind = "metar"
	KindTAF         Kind = "taf"
	KindPIREP       Kind = "pirep"
	KindSIGMET      Kind = "sigmet"
	KindAFD         Kind = "afd"
	KindStationInfo Kind = "stationinfo"
)

// maxLookbackHours is the absolute ceiling the upstream accepts.
const maxLookbackHours = 24

// defaultLookbackHours is the per-kind lookback applied when the caller
// passes a non-positive value.
var defaultLookbackHours = map[Kind]int{
	KindMETAR:  2,
	KindTAF:    2,
	KindPIREP:  4,
	KindSIGMET: 6,
	KindAFD:    6,
}

// buildParams normalizes a request: machine-readable output, a clamped
// lookback window, and an "all subtypes" filter for advisory-like kinds.
// Station metadata has no lookback dimension.
func buildParams(kind Kind, stations []string, hours int) url.Values {
	q := url.Values{}
	q.Set("format", "json")

	if len(stations) > 0 {
		q.Set("ids", strings.Join(stations, ","))
	}

	if def, ok := defaultLookbackHours[kind]; ok {
		if hours <= 0 {
			hours = def
		}
		if hours > maxLookbackHours {
			hours = maxLookbackHours
		}
		q.Set("hours", strconv.Itoa(hours))
	}

	if kind == KindPIREP || kind == KindSIGMET {
		q.Set("type", "all")
	}

	return q
}

// cacheKey combines the data kind and the serialized parameter set.
// url.Values.Encode sorts by key, so equal parameter sets produce equal keys.
func cacheKey(kind Kind, params url.Values) string {
	return string(kind) + "_" + params.Encode()
}
