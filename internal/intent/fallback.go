package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/travelintel/dealengine/internal/alias"
)

var (
	fromToPattern    = regexp.MustCompile(`(?i)from\s+([a-z .]+?)\s+to\s+([a-z .]+?)(?:[\.,!\?]|$|\s+(?:on|for|in|under|with))`)
	bareToPattern    = regexp.MustCompile(`(?i)\b([a-z .]+?)\s+to\s+([a-z .]+?)(?:[\.,!\?]|$|\s+(?:on|for|in|under|with))`)
	singleToPattern  = regexp.MustCompile(`(?i)\b(?:to|in)\s+([a-z .]+?)(?:[\.,!\?]|$|\s+(?:on|for|under|with))`)
	budgetPattern    = regexp.MustCompile(`(?i)(?:under|budget|less than|\$)\s*\$?(\d+(?:,\d{3})*)`)
	partySizePattern = regexp.MustCompile(`(?i)(\d+)\s*(?:people|passengers|travelers|adults|guests)`)
	monthDayRange    = regexp.MustCompile(`(?i)(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{1,2})\s*(?:-|to|through)\s*(\d{1,2})`)
)

// stopwords rejects entity strings that are clearly not place names —
// keywords from the query grammar itself leaking through as an
// extracted entity.
var stopwords = map[string]struct{}{
	"FIND": {}, "FLIGHT": {}, "FLIGHTS": {}, "FROM": {}, "PLAN": {},
	"TRIP": {}, "HOTEL": {}, "HOTELS": {}, "DEAL": {}, "DEALS": {},
	"CHEAP": {}, "BOOK": {}, "SEARCH": {},
}

// Fallback deterministically extracts intent and entities from free
// text without calling the external text-model. It is the path used
// whenever the primary result fails validation or the external call
// errors/times out.
func Fallback(message string) Result {
	lower := strings.ToLower(message)
	entities := Entities{}

	if m := fromToPattern.FindStringSubmatch(message); m != nil {
		entities.Origin = resolveOrSelf(m[1])
		entities.Destination = resolveOrSelf(m[2])
	} else if m := bareToPattern.FindStringSubmatch(message); m != nil {
		entities.Origin = resolveOrSelf(m[1])
		entities.Destination = resolveOrSelf(m[2])
	} else if m := singleToPattern.FindStringSubmatch(message); m != nil {
		entities.Destination = resolveOrSelf(m[1])
	}

	if m := budgetPattern.FindStringSubmatch(message); m != nil {
		cleaned := strings.ReplaceAll(m[1], ",", "")
		if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
			entities.Budget = &v
		}
	}

	if m := partySizePattern.FindStringSubmatch(message); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			entities.PartySize = &v
		}
	}

	if m := monthDayRange.FindStringSubmatch(message); m != nil {
		entities.StartDate = m[1] + " " + m[2]
		entities.EndDate = m[1] + " " + m[3]
	}

	in := inferIntent(lower, entities)
	return Result{Intent: in, Entities: entities, Confidence: fallbackConfidence(in, entities), Fallback: true}
}

func resolveOrSelf(text string) string {
	text = strings.TrimSpace(text)
	if code, ok := alias.ResolveCode(text); ok {
		return code
	}
	if allStopwords(text) {
		return ""
	}
	return strings.ToUpper(text)
}

// allStopwords reports whether every significant word in text is a
// query-grammar keyword, i.e. the "X to Y" form captured grammar words
// ("cheap flights to dubai") rather than a place name.
func allStopwords(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return true
	}
	for _, f := range fields {
		if len(f) <= 2 {
			continue
		}
		if !isStopword(f) {
			return false
		}
	}
	return true
}

func inferIntent(lower string, e Entities) Intent {
	switch {
	case containsAny(lower, "flight", "fly", "plane"):
		return IntentSearchFlights
	case containsAny(lower, "hotel", "stay", "room"):
		return IntentSearchHotels
	case containsAny(lower, "trip", "vacation") && e.Budget != nil:
		return IntentPlanTrip
	case containsAny(lower, "deal", "cheap"):
		return IntentFindDeals
	default:
		return IntentGeneralInquiry
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func fallbackConfidence(in Intent, e Entities) float64 {
	conf := 0.5
	if e.Destination != "" {
		conf += 0.2
	}
	if e.Origin != "" {
		conf += 0.1
	}
	if e.Budget != nil {
		conf += 0.1
	}
	if in == IntentGeneralInquiry {
		conf -= 0.2
	}
	if conf > 0.95 {
		conf = 0.95
	}
	if conf < 0.1 {
		conf = 0.1
	}
	return conf
}

// isStopword reports whether s (case-insensitive) is a query-grammar
// keyword rather than a genuine entity value.
func isStopword(s string) bool {
	_, ok := stopwords[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}
