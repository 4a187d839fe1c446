package tripplanner

import (
	"context"
	"time"

	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
)

// PlanAndPersist runs Plan, persists each returned bundle as a
// TripPlan row, and opportunistically updates the user's preference
// profile (search_count, frequent_routes, favorite_destinations) on
// every planned search.
func (p *Planner) PlanAndPersist(ctx context.Context, q Query, met *obs.Metrics) ([]model.TripPlan, error) {
	bundles, err := p.Plan(ctx, q)
	if err != nil {
		return nil, err
	}

	plans := make([]model.TripPlan, 0, len(bundles))
	for _, b := range bundles {
		plan := &model.TripPlan{
			UserID:    q.UserID,
			FitScore:  b.FitScore,
			TotalCost: b.TotalCost,
			CreatedAt: time.Now(),
		}
		plan.SetQuery(model.TripQuery{
			Origin:      q.Origin,
			Destination: q.Destination,
			Budget:      q.Budget,
			PartySize:   q.PartySize,
			Preferences: q.Preferences,
			StartDate:   q.StartDate,
			EndDate:     q.EndDate,
		})
		plan.SetItinerary(model.Itinerary{
			FlightDealID: b.Flight.ID,
			HotelDealID:  b.Hotel.ID,
			PartySize:    q.PartySize,
			Nights:       nightsFor(q),
			TotalCost:    b.TotalCost,
		})
		if err := p.store.SaveTripPlan(ctx, plan); err != nil {
			continue
		}
		if met != nil {
			met.TripPlansCreated.Inc()
		}
		plans = append(plans, *plan)
	}

	p.updatePreferences(ctx, q)
	return plans, nil
}

func (p *Planner) updatePreferences(ctx context.Context, q Query) {
	pref, err := p.store.GetUserPreference(ctx, q.UserID)
	if err != nil {
		pref = &model.UserPreference{UserID: q.UserID}
	}
	prefs := pref.Get()
	if q.Origin != "" && q.Destination != "" {
		prefs.RecordRoute(q.Origin + "-" + q.Destination)
	}
	if q.Destination != "" {
		prefs.RecordDestination(q.Destination)
	}
	pref.Set(prefs)
	pref.SearchCount++
	_ = p.store.SaveUserPreference(ctx, pref)
}
