package hotdeal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/hotdeal"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/sessionhub"
	"github.com/travelintel/dealengine/internal/store"
)

type recordingTransport struct {
	mu     sync.Mutex
	frames []sessionhub.Frame
}

func (r *recordingTransport) WriteJSON(v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, v.(sessionhub.Frame))
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func (r *recordingTransport) alerts(subType string) []sessionhub.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sessionhub.Frame
	for _, f := range r.frames {
		if f.Type == "deal_alert" && f.SubType == subType {
			out = append(out, f)
		}
	}
	return out
}

func newFixture(t *testing.T, cfg config.HotDealConfig) (*store.Memory, *recordingTransport, *hotdeal.Monitor) {
	t.Helper()
	st := store.NewMemory()
	hub := sessionhub.New(config.SessionConfig{
		HeartbeatInterval: time.Minute,
		StaleTimeout:      5 * time.Minute,
		MaxQueueLen:       100,
		MaxFailures:       3,
	}, obs.NewNop(), nil)
	tr := &recordingTransport{}
	hub.Connect("u1", tr)
	return st, tr, hotdeal.New(st, hub, obs.NewNop(), nil, cfg)
}

func seed(t *testing.T, st *store.Memory, id string, price, original, discountPct float64) {
	t.Helper()
	d := &model.Deal{
		ID:              id,
		Type:            model.DealTypeHotel,
		Title:           id,
		Price:           price,
		OriginalPrice:   original,
		DiscountPercent: discountPct,
	}
	_, err := st.UpsertDeal(context.Background(), d)
	require.NoError(t, err)
}

func TestHotDealBroadcastOnce(t *testing.T) {
	ctx := context.Background()
	st, tr, mon := newFixture(t, config.HotDealConfig{Interval: time.Minute})

	// 40% off qualifies on savings percent.
	seed(t, st, "hotel_HOT", 120, 200, 40)
	// 5% off and a small dollar discount: not hot.
	seed(t, st, "hotel_MEH", 190, 200, 5)

	require.NoError(t, mon.CheckOnce(ctx))
	alerts := tr.alerts("hot_deal")
	require.Len(t, alerts, 1)
	data := alerts[0].Data.(map[string]interface{})
	assert.Equal(t, "hotel_HOT", data["deal_id"])

	// The seen set suppresses a duplicate broadcast on the next tick.
	require.NoError(t, mon.CheckOnce(ctx))
	assert.Len(t, tr.alerts("hot_deal"), 1)
}

func TestHotDealDollarDiscountQualifies(t *testing.T) {
	ctx := context.Background()
	st, tr, mon := newFixture(t, config.HotDealConfig{Interval: time.Minute})

	// Only 15% off, but $300 under list.
	seed(t, st, "hotel_BIG", 1700, 2000, 15)

	require.NoError(t, mon.CheckOnce(ctx))
	assert.Len(t, tr.alerts("hot_deal"), 1)
}

func TestTrendingScanEveryFifthTick(t *testing.T) {
	ctx := context.Background()
	st, tr, mon := newFixture(t, config.HotDealConfig{Interval: time.Minute})

	seed(t, st, "flight_POPULAR", 400, 410, 2)
	for i, user := range []string{"a", "b", "c"} {
		require.NoError(t, st.CreateWatch(ctx, &model.PriceWatch{
			ID: "w" + user, UserID: user, DealID: "flight_POPULAR", PriceThreshold: floatPtr(350 + float64(i)),
		}))
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, mon.CheckOnce(ctx))
	}
	trending := tr.alerts("trending")
	require.Len(t, trending, 1)
	data := trending[0].Data.(map[string]interface{})
	assert.Equal(t, "flight_POPULAR", data["deal_id"])
	assert.Equal(t, 3, data["watch_count"])
}

func floatPtr(f float64) *float64 { return &f }
