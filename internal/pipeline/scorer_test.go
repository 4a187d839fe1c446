package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/pipeline"
)

func TestScoreClampsAtOneHundred(t *testing.T) {
	expires := time.Now().Add(12 * time.Hour)
	rec := model.NormalizedDeal{
		Type:               model.DealTypeHotel,
		Price:              80,
		AvailableInventory: 2,
		ExpiresAt:          &expires,
		Metadata: map[string]interface{}{
			"rating":             4.8,
			"refundable":         true,
			"free_cancellation":  true,
			"pet_friendly":       true,
			"near_transit":       true,
			"breakfast_included": true,
			"free_wifi":          true,
			"airport_shuttle":    true,
			"non_stop":           true,
		},
	}
	score := pipeline.Score(rec, 35)
	assert.Equal(t, 100.0, score)
}

func TestScoreZeroForUnremarkableDeal(t *testing.T) {
	rec := model.NormalizedDeal{
		Type:               model.DealTypeFlight,
		Price:              900,
		AvailableInventory: 50,
	}
	score := pipeline.Score(rec, 2)
	assert.Equal(t, 0.0, score)
}

func TestScorePriceVsListTiers(t *testing.T) {
	base := model.NormalizedDeal{Type: model.DealTypeFlight, Price: 900, AvailableInventory: 50}
	assert.Equal(t, 40.0, pipeline.Score(base, 30))
	assert.Equal(t, 30.0, pipeline.Score(base, 20))
	assert.Equal(t, 20.0, pipeline.Score(base, 15))
	assert.Equal(t, 10.0, pipeline.Score(base, 10))
	assert.Equal(t, 0.0, pipeline.Score(base, 5))
}
