package intent

import (
	"strings"

	"github.com/travelintel/dealengine/internal/alias"
)

// Validate is the post-hoc check on a parse result: the primary
// (external text-model) result is rejected if an origin/destination
// isn't a known code or alias, isn't textually present in the raw
// message, overlaps the stopword set, or exceeds the length cap.
func Validate(r Result, rawMessage string) bool {
	lower := strings.ToLower(rawMessage)

	for _, candidate := range []string{r.Entities.Origin, r.Entities.Destination} {
		if candidate == "" {
			continue
		}
		if len(candidate) > 20 {
			return false
		}
		if isStopword(candidate) {
			return false
		}
		if !alias.IsAirportCode(candidate) && !alias.IsKnownAlias(candidate) {
			return false
		}
	}

	if r.Entities.Destination != "" && !destinationPresentInMessage(r.Entities.Destination, lower) {
		return false
	}
	return true
}

// destinationPresentInMessage checks that the destination entity (a
// resolved code or a raw city name) is textually present in the
// message under some known alias, guarding against the model
// hallucinating a place the user never mentioned.
func destinationPresentInMessage(destination, lowerMessage string) bool {
	if strings.Contains(lowerMessage, strings.ToLower(destination)) {
		return true
	}
	if city, ok := alias.CityNameForCode(destination); ok && strings.Contains(lowerMessage, city) {
		return true
	}
	return false
}
