package watch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/sessionhub"
	"github.com/travelintel/dealengine/internal/store"
	"github.com/travelintel/dealengine/internal/watch"
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

func (r *recordingTransport) byType(typ string) []sessionhub.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sessionhub.Frame
	for _, f := range r.frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func newFixture(t *testing.T) (*store.Memory, *sessionhub.Hub, *recordingTransport, *watch.Monitor) {
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
	mon := watch.New(st, hub, obs.NewNop(), nil, config.WatchConfig{
		Interval:      30 * time.Second,
		ReAlertWindow: 30 * time.Second,
	})
	return st, hub, tr, mon
}

func seedDeal(t *testing.T, st *store.Memory, id string, price float64) {
	t.Helper()
	d := &model.Deal{ID: id, Type: model.DealTypeFlight, Title: id, Price: price}
	_, err := st.UpsertDeal(context.Background(), d)
	require.NoError(t, err)
}

func TestWatchTriggersOncePerThrottleWindow(t *testing.T) {
	ctx := context.Background()
	st, _, tr, mon := newFixture(t)

	seedDeal(t, st, "flight_F1", 200)
	threshold := 180.0
	w := &model.PriceWatch{ID: "w1", UserID: "u1", DealID: "flight_F1", PriceThreshold: &threshold}
	require.NoError(t, st.CreateWatch(ctx, w))

	// Above threshold: no alert.
	require.NoError(t, mon.CheckOnce(ctx))
	assert.Empty(t, tr.byType("price_alert"))

	// Price drops below threshold: exactly one alert.
	seedDeal(t, st, "flight_F1", 170)
	require.NoError(t, mon.CheckOnce(ctx))
	alerts := tr.byType("price_alert")
	require.Len(t, alerts, 1)
	data := alerts[0].Data.(map[string]interface{})
	assert.Equal(t, "w1", data["watch_id"])
	assert.Contains(t, data["reasons"], "price_below_threshold")

	// A second check inside the throttle window emits nothing.
	require.NoError(t, mon.CheckOnce(ctx))
	assert.Len(t, tr.byType("price_alert"), 1)

	watches, err := st.ListActiveWatches(ctx)
	require.NoError(t, err)
	require.Len(t, watches, 1)
	assert.NotNil(t, watches[0].LastNotified)
}

func TestWatchInventoryThreshold(t *testing.T) {
	ctx := context.Background()
	st, _, tr, mon := newFixture(t)

	seedDeal(t, st, "hotel_H1", 300)
	inv := 4
	require.NoError(t, st.AppendPriceHistory(ctx, model.PriceHistoryPoint{
		DealID: "hotel_H1", Price: 300, AvailableInventory: &inv,
	}))
	invThreshold := 5
	require.NoError(t, st.CreateWatch(ctx, &model.PriceWatch{
		ID: "w1", UserID: "u1", DealID: "hotel_H1", InventoryThreshold: &invThreshold,
	}))

	require.NoError(t, mon.CheckOnce(ctx))
	alerts := tr.byType("price_alert")
	require.Len(t, alerts, 1)
	data := alerts[0].Data.(map[string]interface{})
	assert.Contains(t, data["reasons"], "inventory_below_threshold")
}

func TestWatchDeactivatedWhenDealMissing(t *testing.T) {
	ctx := context.Background()
	st, _, tr, mon := newFixture(t)

	threshold := 100.0
	require.NoError(t, st.CreateWatch(ctx, &model.PriceWatch{
		ID: "w1", UserID: "u1", DealID: "flight_GONE", PriceThreshold: &threshold,
	}))

	require.NoError(t, mon.CheckOnce(ctx))
	assert.Empty(t, tr.byType("price_alert"))

	watches, err := st.ListActiveWatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, watches)
}
