package model

import (
	"encoding/json"
	"time"
)

const maxBoundedListLen = 10

// UserPreference tracks a user's accumulated search profile, updated
// opportunistically by the trip planner and the preferences HTTP
// endpoint.
type UserPreference struct {
	UserID          string `gorm:"primaryKey"`
	PreferencesJSON string `gorm:"column:preferences;type:text"`
	SearchCount     int
	UpdatedAt       time.Time
}

func (UserPreference) TableName() string { return "user_preferences" }

type Preferences struct {
	BudgetMax            *float64 `json:"budget_max,omitempty"`
	FrequentRoutes       []string `json:"frequent_routes,omitempty"`
	FavoriteDestinations []string `json:"favorite_destinations,omitempty"`
	PreferredAirlines    []string `json:"preferred_airlines,omitempty"`
	DirectFlightsOnly    bool     `json:"direct_flights_only"`
	TimePreference       string   `json:"time_preference,omitempty"`
}

func (u *UserPreference) Get() Preferences {
	var p Preferences
	if u.PreferencesJSON != "" {
		_ = json.Unmarshal([]byte(u.PreferencesJSON), &p)
	}
	return p
}

func (u *UserPreference) Set(p Preferences) {
	b, _ := json.Marshal(p)
	u.PreferencesJSON = string(b)
}

// RecordRoute appends a route to the bounded frequent-routes list,
// keeping at most the last maxBoundedListLen entries.
func (p *Preferences) RecordRoute(route string) {
	p.FrequentRoutes = appendBounded(p.FrequentRoutes, route, maxBoundedListLen)
}

func (p *Preferences) RecordDestination(dest string) {
	p.FavoriteDestinations = appendBounded(p.FavoriteDestinations, dest, maxBoundedListLen)
}

func appendBounded(list []string, v string, max int) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	list = append(list, v)
	if len(list) > max {
		list = list[len(list)-max:]
	}
	return list
}
