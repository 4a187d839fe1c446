// Package intent implements IntentParser: parse free-text queries into
// (intent, entities, confidence) via an external text-model client with
// a deterministic regex fallback and post-hoc validation.
package intent

// Intent enumerates the recognized query intents.
type Intent string

const (
	IntentSearch         Intent = "search"
	IntentSearchFlights  Intent = "search_flights"
	IntentSearchHotels   Intent = "search_hotels"
	IntentPlanTrip       Intent = "plan_trip"
	IntentFindDeals      Intent = "find_deals"
	IntentQuestion       Intent = "question"
	IntentRefine         Intent = "refine"
	IntentTrack          Intent = "track"
	IntentGeneralInquiry Intent = "general_inquiry"
)

// Entities is the structured extraction attached to a parsed message.
type Entities struct {
	Origin         string   `json:"origin,omitempty"`
	Destination    string   `json:"destination,omitempty"`
	StartDate      string   `json:"start_date,omitempty"`
	EndDate        string   `json:"end_date,omitempty"`
	Budget         *float64 `json:"budget,omitempty"`
	PartySize      *int     `json:"party_size,omitempty"`
	Preferences    []string `json:"preferences,omitempty"`
	DirectOnly     bool     `json:"direct_only,omitempty"`
	TimePreference string   `json:"time_preference,omitempty"`
}

// Result is the full parse outcome, whatever its source (primary
// text-model call or regex fallback).
type Result struct {
	Intent     Intent   `json:"intent"`
	Entities   Entities `json:"entities"`
	Confidence float64  `json:"confidence"`
	FromCache  bool     `json:"-"`
	Fallback   bool     `json:"-"`
}

// HistoryTurn is one prior exchange fed to the primary text-model call
// for multi-turn context.
type HistoryTurn struct {
	Message  string
	Response string
}
