package tripplanner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/store"
	"github.com/travelintel/dealengine/internal/tripplanner"
)

func dayStart(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func seedDeal(t *testing.T, st *store.Memory, id string, typ model.DealType, price, score float64, meta map[string]interface{}, tags []string) {
	t.Helper()
	d := &model.Deal{ID: id, Type: typ, Title: id, Price: price, Score: score}
	d.SetMetadata(meta)
	d.SetTags(tags)
	_, err := st.UpsertDeal(context.Background(), d)
	require.NoError(t, err)
}

func TestPlanDestinationAliasing(t *testing.T) {
	st := store.NewMemory()
	seedDeal(t, st, "flight_1", model.DealTypeFlight, 500, 80,
		map[string]interface{}{"origin": "LAX", "destination": "JFK"}, nil)
	seedDeal(t, st, "flight_2", model.DealTypeFlight, 400, 70,
		map[string]interface{}{"origin": "LAX", "destination": "ORD"}, nil)
	seedDeal(t, st, "hotel_1", model.DealTypeHotel, 280, 75,
		map[string]interface{}{"city": "New York City"}, nil)
	seedDeal(t, st, "hotel_2", model.DealTypeHotel, 150, 90,
		map[string]interface{}{"city": "Chicago"}, nil)

	p := tripplanner.New(st, config.PlannerConfig{})
	budget := 1000.0
	bundles, err := p.Plan(context.Background(), tripplanner.Query{
		UserID:      "u1",
		Destination: "NYC",
		Budget:      &budget,
	})
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	b := bundles[0]
	assert.Equal(t, "flight_1", b.Flight.ID)
	assert.Equal(t, "hotel_1", b.Hotel.ID)
	assert.Equal(t, 780.0, b.TotalCost)
	// 780 <= 0.8 * 1000, so the budget sub-score alone is 40.
	assert.Equal(t, 40.0, b.FitScore)
}

func TestPlanNoDestinationSkipsFilter(t *testing.T) {
	st := store.NewMemory()
	seedDeal(t, st, "flight_1", model.DealTypeFlight, 300, 60,
		map[string]interface{}{"destination": "ORD"}, nil)
	seedDeal(t, st, "hotel_1", model.DealTypeHotel, 100, 60,
		map[string]interface{}{"city": "Chicago"}, nil)

	p := tripplanner.New(st, config.PlannerConfig{})
	bundles, err := p.Plan(context.Background(), tripplanner.Query{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, bundles, 1)
}

func TestPlanEmptyWhenNothingMatches(t *testing.T) {
	st := store.NewMemory()
	p := tripplanner.New(st, config.PlannerConfig{})
	bundles, err := p.Plan(context.Background(), tripplanner.Query{UserID: "u1", Destination: "NYC"})
	require.NoError(t, err)
	assert.Empty(t, bundles)
}

func TestPlanPartySizeAndNights(t *testing.T) {
	st := store.NewMemory()
	seedDeal(t, st, "flight_1", model.DealTypeFlight, 200, 60,
		map[string]interface{}{"destination": "MIA"}, nil)
	seedDeal(t, st, "hotel_1", model.DealTypeHotel, 100, 60,
		map[string]interface{}{"city": "Miami Beach"}, nil)

	p := tripplanner.New(st, config.PlannerConfig{})
	start := dayStart(2026, 3, 10)
	end := dayStart(2026, 3, 14)
	bundles, err := p.Plan(context.Background(), tripplanner.Query{
		UserID:      "u1",
		Destination: "MIA",
		PartySize:   2,
		StartDate:   &start,
		EndDate:     &end,
	})
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	// 200*2 + 100*4 nights.
	assert.Equal(t, 800.0, bundles[0].TotalCost)
}

func TestPlanIdempotentForFixedDealSet(t *testing.T) {
	st := store.NewMemory()
	for i, price := range []float64{500, 450, 400} {
		seedDeal(t, st, "flight_"+string(rune('a'+i)), model.DealTypeFlight, price, 50+float64(i)*10,
			map[string]interface{}{"destination": "JFK"}, nil)
	}
	seedDeal(t, st, "hotel_1", model.DealTypeHotel, 200, 70,
		map[string]interface{}{"city": "New York"}, []string{"near-transit"})

	p := tripplanner.New(st, config.PlannerConfig{})
	budget := 1200.0
	q := tripplanner.Query{UserID: "u1", Destination: "NYC", Budget: &budget, Preferences: []string{"near-transit"}}

	first, err := p.Plan(context.Background(), q)
	require.NoError(t, err)
	second, err := p.Plan(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFitScorePreferencesAndConvenience(t *testing.T) {
	var f, h model.Deal
	f.SetTags([]string{"non-stop"})
	h.SetTags([]string{"near-transit", "airport-shuttle", "breakfast-included"})

	// No budget: 20 base. Both preferences match: +35. Two convenience
	// amenities: +16.
	score := tripplanner.FitScore(500, nil, []string{"near-transit", "breakfast-included"}, f, h)
	assert.Equal(t, 71.0, score)
}
