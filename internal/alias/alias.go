// Package alias consolidates the city/airport lookup tables that would
// otherwise be scattered regex literals: city name -> airport code(s),
// airport code -> city name, and metro airport groups (e.g. NYC -> JFK,
// LGA, EWR). TripPlanner uses it for destination aliasing; the intent
// fallback uses it to resolve free-text locations to codes.
package alias

import "strings"

// airportGroups maps a metro code (or a bare airport code) to the set
// of airport codes that should be treated as equivalent destinations.
var airportGroups = map[string][]string{
	"NYC": {"JFK", "LGA", "EWR"},
	"LON": {"LHR", "LGW", "STN", "LTN"},
	"CHI": {"ORD", "MDW"},
	"WAS": {"DCA", "IAD", "BWI"},
	"PAR": {"CDG", "ORY"},
	"TYO": {"NRT", "HND"},
	"MIL": {"MXP", "LIN"},
	"SAO": {"GRU", "CGH"},
	"BUH": {"OTP"},
}

// cityToCode maps a lowercased city/colloquial name to a canonical
// airport or metro code.
var cityToCode = map[string]string{
	"new york":      "NYC",
	"nyc":           "NYC",
	"manhattan":     "NYC",
	"london":        "LON",
	"chicago":       "CHI",
	"washington":    "WAS",
	"dc":            "WAS",
	"paris":         "PAR",
	"tokyo":         "TYO",
	"milan":         "MIL",
	"sao paulo":     "SAO",
	"bucharest":     "BUH",
	"los angeles":   "LAX",
	"san francisco": "SFO",
	"miami":         "MIA",
	"dubai":         "DXB",
	"boston":        "BOS",
	"seattle":       "SEA",
	"denver":        "DEN",
	"atlanta":       "ATL",
	"dallas":        "DFW",
	"las vegas":     "LAS",
	"orlando":       "MCO",
	"honolulu":      "HNL",
	"toronto":       "YYZ",
	"mexico city":   "MEX",
	"cancun":        "CUN",
	"amsterdam":     "AMS",
	"rome":          "FCO",
	"barcelona":     "BCN",
	"madrid":        "MAD",
	"berlin":        "BER",
	"singapore":     "SIN",
	"hong kong":     "HKG",
	"sydney":        "SYD",
	"bangkok":       "BKK",
}

// codeToCity is the canonical code -> city-name lookup, used to match
// a flight's destination code against a hotel's free-text city field.
// Declared explicitly rather than derived by inverting cityToCode:
// several city spellings map to one code ("new york", "nyc",
// "manhattan" -> NYC), and the canonical spelling must be the one
// hotel city fields actually contain.
var codeToCity = map[string]string{
	"NYC": "new york",
	"LON": "london",
	"CHI": "chicago",
	"WAS": "washington",
	"PAR": "paris",
	"TYO": "tokyo",
	"MIL": "milan",
	"SAO": "sao paulo",
	"BUH": "bucharest",
	"LAX": "los angeles",
	"SFO": "san francisco",
	"MIA": "miami",
	"DXB": "dubai",
	"BOS": "boston",
	"SEA": "seattle",
	"DEN": "denver",
	"ATL": "atlanta",
	"DFW": "dallas",
	"LAS": "las vegas",
	"MCO": "orlando",
	"HNL": "honolulu",
	"YYZ": "toronto",
	"MEX": "mexico city",
	"CUN": "cancun",
	"AMS": "amsterdam",
	"FCO": "rome",
	"BCN": "barcelona",
	"MAD": "madrid",
	"BER": "berlin",
	"SIN": "singapore",
	"HKG": "hong kong",
	"SYD": "sydney",
	"BKK": "bangkok",
}

// ExpandDestination returns the set of airport codes a canonical
// destination code (possibly a metro code) resolves to. If code has no
// group entry, it resolves to itself.
func ExpandDestination(code string) []string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if group, ok := airportGroups[code]; ok {
		return group
	}
	return []string{code}
}

// ResolveCode maps free text (a city name or an airport/metro code) to
// a canonical code. Returns "", false if nothing matches.
func ResolveCode(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if code, ok := cityToCode[t]; ok {
		return code, true
	}
	upper := strings.ToUpper(strings.TrimSpace(text))
	if IsAirportCode(upper) {
		return upper, true
	}
	return "", false
}

// CityNameForCode returns the canonical lowercased city name used to
// match hotel city fields for a given airport/metro code.
func CityNameForCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if city, ok := codeToCity[code]; ok {
		return city, true
	}
	return "", false
}

// IsAirportCode reports whether s looks like a 3-letter IATA code.
func IsAirportCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// IsKnownAlias reports whether text is a city name in the tables or
// has the shape of a 3-letter airport/metro code (listed or not) —
// used by IntentParser validation to reject primary-path entities
// that are neither.
func IsKnownAlias(text string) bool {
	_, ok := ResolveCode(text)
	if ok {
		return true
	}
	t := strings.ToUpper(strings.TrimSpace(text))
	_, ok = codeToCity[t]
	return ok
}

// CityMatchesDestination reports whether a hotel's free-text city
// field textually contains the city name mapped from a destination
// code, case-insensitively.
func CityMatchesDestination(hotelCity, destinationCode string) bool {
	cityName, ok := CityNameForCode(destinationCode)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(hotelCity), cityName)
}
