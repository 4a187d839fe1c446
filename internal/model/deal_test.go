package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/travelintel/dealengine/internal/model"
)

func TestComputeDiscountPercent(t *testing.T) {
	assert.Equal(t, 20.0, model.ComputeDiscountPercent(200, 250))
	assert.Equal(t, 0.0, model.ComputeDiscountPercent(250, 250))
	// Price above list clamps at zero rather than going negative.
	assert.Equal(t, 0.0, model.ComputeDiscountPercent(300, 250))
	// Missing list price is neutral.
	assert.Equal(t, 0.0, model.ComputeDiscountPercent(200, 0))
}

func TestIsDealFlagged(t *testing.T) {
	assert.True(t, model.IsDealFlagged(250, 300)) // 250 <= 255
	assert.False(t, model.IsDealFlagged(260, 300))
	assert.False(t, model.IsDealFlagged(100, 0)) // no history, never flagged
}

func TestDealTagAccessors(t *testing.T) {
	var d model.Deal
	assert.Nil(t, d.Tags())
	d.SetTags([]string{"hot-deal", "refundable"})
	assert.True(t, d.HasTag("hot-deal"))
	assert.False(t, d.HasTag("luxury"))
}

func TestDealMetadataAccessors(t *testing.T) {
	var d model.Deal
	d.SetMetadata(map[string]interface{}{
		"city":         "Miami",
		"rating":       4.5,
		"pet_friendly": true,
	})
	assert.Equal(t, "Miami", d.MetadataString("city"))
	assert.Equal(t, 4.5, d.MetadataFloat("rating"))
	assert.True(t, d.MetadataBool("pet_friendly"))
	assert.Equal(t, "", d.MetadataString("missing"))
}

func TestAverage30d(t *testing.T) {
	now := time.Now()
	points := []model.PriceHistoryPoint{
		{Price: 100, RecordedAt: now.AddDate(0, 0, -40)}, // outside window
		{Price: 280, RecordedAt: now.AddDate(0, 0, -10)},
		{Price: 320, RecordedAt: now.AddDate(0, 0, -1)},
	}
	avg, ok := model.Average30d(points, 30, now)
	assert.True(t, ok)
	assert.Equal(t, 300.0, avg)

	_, ok = model.Average30d(points[:1], 30, now)
	assert.False(t, ok)
}

func TestPreferencesBoundedLists(t *testing.T) {
	var p model.Preferences
	for i := 0; i < 15; i++ {
		p.RecordDestination(string(rune('A' + i)))
	}
	assert.Len(t, p.FavoriteDestinations, 10)
	assert.Equal(t, "F", p.FavoriteDestinations[0], "oldest entries are evicted")

	// Duplicates are not re-appended.
	p.RecordDestination("O")
	assert.Len(t, p.FavoriteDestinations, 10)
}
