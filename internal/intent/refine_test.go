package intent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/intent"
)

func priorResult() intent.Result {
	budget := 1000.0
	return intent.Result{
		Intent: intent.IntentSearchFlights,
		Entities: intent.Entities{
			Origin:      "LAX",
			Destination: "NYC",
			Budget:      &budget,
		},
	}
}

func TestRefineCheaperReducesBudgetTwentyPercent(t *testing.T) {
	r := intent.Refine(priorResult(), "can you find something cheaper?")
	assert.Equal(t, intent.IntentRefine, r.Intent)
	require.NotNil(t, r.Entities.Budget)
	assert.InDelta(t, 800.0, *r.Entities.Budget, 0.001)
	// The rest of the context carries over untouched.
	assert.Equal(t, "LAX", r.Entities.Origin)
	assert.Equal(t, "NYC", r.Entities.Destination)
}

func TestRefineCheaperWithExplicitBudgetOverrides(t *testing.T) {
	r := intent.Refine(priorResult(), "cheaper please, under $600")
	require.NotNil(t, r.Entities.Budget)
	assert.Equal(t, 600.0, *r.Entities.Budget)
}

func TestRefineDirectOnly(t *testing.T) {
	r := intent.Refine(priorResult(), "only non-stop flights")
	assert.True(t, r.Entities.DirectOnly)
}

func TestRefineTimePreference(t *testing.T) {
	assert.Equal(t, "morning", intent.Refine(priorResult(), "morning departures only").Entities.TimePreference)
	assert.Equal(t, "evening", intent.Refine(priorResult(), "i prefer a night flight").Entities.TimePreference)
}
