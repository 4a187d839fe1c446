package intent

import "strings"

// Refine extracts only the deltas from a follow-up message given a
// prior parsed context and returns an updated Result so the
// underlying search is re-issued rather than started over.
func Refine(prior Result, message string) Result {
	lower := strings.ToLower(message)
	next := prior
	next.Intent = IntentRefine
	next.Fallback = true

	if containsAny(lower, "cheaper", "less expensive", "lower price") {
		if m := budgetPattern.FindStringSubmatch(message); m != nil {
			fb := Fallback(message)
			if fb.Entities.Budget != nil {
				next.Entities.Budget = fb.Entities.Budget
			}
		} else if prior.Entities.Budget != nil {
			reduced := *prior.Entities.Budget * 0.8
			next.Entities.Budget = &reduced
		}
	}

	if containsAny(lower, "direct", "non-stop", "nonstop") {
		next.Entities.DirectOnly = true
	}

	if containsAny(lower, "morning") {
		next.Entities.TimePreference = "morning"
	} else if containsAny(lower, "afternoon") {
		next.Entities.TimePreference = "afternoon"
	} else if containsAny(lower, "evening") || containsAny(lower, "night") {
		next.Entities.TimePreference = "evening"
	}

	return next
}
