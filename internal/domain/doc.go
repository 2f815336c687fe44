// Package domain models aviation weather report data and the pure
// decode/normalize transformations applied to it.
//
// # Data Source
//
// Reports come from the Aviation Weather Center data API at
// https://aviationweather.gov/api/data, one endpoint per report kind
// (metar, taf, pirep, sigmet, afd, stationinfo), always requested in JSON.
//
// # Upstream Conventions
//
// Visibility:
//
//	Either a bare number or a string. "10+" is a sentinel for unlimited
//	visibility and normalizes to 10 statute miles. An "SM" suffix marks
//	statute miles, including fractional forms: "1/2SM", "1 1/2SM".
//	A bare numeric value is interpreted as meters.
//
// Wind:
//
//	Speeds are nominally knots, but some feeds report meters/second without
//	labeling the unit. Values >= 50 are assumed m/s and converted
//	(x 1.94384); values below 50 are taken as knots. The threshold
//	misclassifies genuinely severe knot-class winds; the upstream data does
//	not disambiguate, so the heuristic is preserved as-is.
//
// Ceiling:
//
//	Height AGL of the lowest broken-or-greater cloud layer, already in feet.
//
// Turbulence and icing:
//
//	Reported in PIREP free text ("MOD TURB", "severe icing"). Extracted by
//	ordered keyword tables scanned worst-first, so the most severe mention
//	wins. No mention means SeverityNone.
//
// SIGMETs:
//
//	Always treated as maximum severity. An active advisory is significant
//	regardless of its body text.
//
// Area forecast discussions:
//
//	Free-text narratives scanned against a fixed hazard vocabulary
//	(ifr, convection, low ceiling, turbulence, icing, fog, thunderstorm).
//
// Missing fields:
//
//	The provider omits numeric fields the sensor did not report; raw record
//	structs use pointers for those, and the decoder substitutes
//	"<field> not available" phrases rather than failing.
package domain
