package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TripPlan is a persisted planner result: a ranked (flight, hotel)
// bundle for a user's query.
type TripPlan struct {
	ID               string `gorm:"primaryKey;column:plan_id"`
	UserID           string
	QuerySnapshotRaw string `gorm:"column:query_snapshot;type:text"`
	ItineraryRaw     string `gorm:"column:itinerary;type:text"`
	FitScore         float64
	TotalCost        float64
	CreatedAt        time.Time
}

func (TripPlan) TableName() string { return "trip_plans" }

func (p *TripPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// Itinerary is the structured shape serialized into ItineraryRaw.
type Itinerary struct {
	FlightDealID string  `json:"flight_deal_id"`
	HotelDealID  string  `json:"hotel_deal_id"`
	PartySize    int     `json:"party_size"`
	Nights       int     `json:"nights"`
	TotalCost    float64 `json:"total_cost"`
}

func (p *TripPlan) SetItinerary(it Itinerary) {
	b, _ := json.Marshal(it)
	p.ItineraryRaw = string(b)
}

func (p *TripPlan) GetItinerary() Itinerary {
	var it Itinerary
	_ = json.Unmarshal([]byte(p.ItineraryRaw), &it)
	return it
}

// TripQuery is the structured shape serialized into QuerySnapshotRaw.
type TripQuery struct {
	Origin      string     `json:"origin,omitempty"`
	Destination string     `json:"destination,omitempty"`
	Budget      *float64   `json:"budget,omitempty"`
	PartySize   int        `json:"party_size"`
	Preferences []string   `json:"preferences,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

func (p *TripPlan) SetQuery(q TripQuery) {
	b, _ := json.Marshal(q)
	p.QuerySnapshotRaw = string(b)
}

func (p *TripPlan) GetQuery() TripQuery {
	var q TripQuery
	_ = json.Unmarshal([]byte(p.QuerySnapshotRaw), &q)
	return q
}
