package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/intent"
)

func TestFallbackCheapFlightsToDubai(t *testing.T) {
	r := intent.Fallback("cheap flights to dubai")
	assert.Equal(t, intent.IntentSearchFlights, r.Intent)
	assert.Equal(t, "DXB", r.Entities.Destination)
	assert.True(t, r.Fallback)
}

func TestFallbackFromToForm(t *testing.T) {
	r := intent.Fallback("find a flight from los angeles to new york")
	assert.Equal(t, intent.IntentSearchFlights, r.Intent)
	assert.Equal(t, "LAX", r.Entities.Origin)
	assert.Equal(t, "NYC", r.Entities.Destination)
}

func TestFallbackBudgetAndPartySize(t *testing.T) {
	r := intent.Fallback("plan a trip to paris under $2,500 for 4 people")
	require.NotNil(t, r.Entities.Budget)
	assert.Equal(t, 2500.0, *r.Entities.Budget)
	require.NotNil(t, r.Entities.PartySize)
	assert.Equal(t, 4, *r.Entities.PartySize)
	assert.Equal(t, "PAR", r.Entities.Destination)
	assert.Equal(t, intent.IntentPlanTrip, r.Intent)
}

func TestFallbackDateRange(t *testing.T) {
	r := intent.Fallback("hotels in miami, march 10-15")
	assert.Equal(t, intent.IntentSearchHotels, r.Intent)
	assert.Equal(t, "MIA", r.Entities.Destination)
	assert.Equal(t, "mar 10", r.Entities.StartDate)
	assert.Equal(t, "mar 15", r.Entities.EndDate)
}

func TestFallbackDealKeyword(t *testing.T) {
	r := intent.Fallback("any good deals this week?")
	assert.Equal(t, intent.IntentFindDeals, r.Intent)
}

func TestFallbackGeneralInquiry(t *testing.T) {
	r := intent.Fallback("what is your refund policy")
	assert.Equal(t, intent.IntentGeneralInquiry, r.Intent)
	assert.LessOrEqual(t, r.Confidence, 0.5)
}
