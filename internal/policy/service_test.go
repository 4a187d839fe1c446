package policy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/cache"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/policy"
	"github.com/travelintel/dealengine/internal/store"
)

// testMetrics is shared across this package's tests: promauto registers
// each collector with the default registry, so constructing more than
// one obs.Metrics per test binary would panic on duplicate registration.
var testMetrics = obs.NewMetrics()

func TestServiceAnswerQuestionCaches(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	svc := policy.NewService(store.NewMemory(), mem, obs.NewNop(), testMetrics)

	result, ok, err := svc.AnswerQuestion(ctx, "what are the baggage fees")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, result.Answer, "Baggage fees")

	cached, ok, err := svc.AnswerQuestion(ctx, "what are the baggage fees")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.Answer, cached.Answer)
}

func TestServiceAnswerQuestionUnknown(t *testing.T) {
	svc := policy.NewService(store.NewMemory(), cache.NewMemory(), obs.NewNop(), testMetrics)
	_, ok, err := svc.AnswerQuestion(context.Background(), "what time is it in Rome")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceExplainDealNotFound(t *testing.T) {
	svc := policy.NewService(store.NewMemory(), cache.NewMemory(), obs.NewNop(), testMetrics)
	_, err := svc.ExplainDeal(context.Background(), "missing-deal")
	assert.Error(t, err)
}

func TestServiceExplainDealFound(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_, err := st.UpsertDeal(ctx, &model.Deal{
		ID:            "deal-1",
		Type:          model.DealTypeHotel,
		Title:         "Lakefront Suite",
		Price:         150,
		OriginalPrice: 200,
		Score:         65,
		Active:        true,
	})
	require.NoError(t, err)

	svc := policy.NewService(st, cache.NewMemory(), obs.NewNop(), testMetrics)
	exp, err := svc.ExplainDeal(ctx, "deal-1")
	require.NoError(t, err)
	assert.Equal(t, "deal-1", exp.DealID)
}
