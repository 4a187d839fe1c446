package sessionhub_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/sessionhub"
)

// fakeTransport records frames and can be switched into a failing mode.
type fakeTransport struct {
	mu     sync.Mutex
	frames []sessionhub.Frame
	fail   bool
	closed bool
}

func (f *fakeTransport) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.frames = append(f.frames, v.(sessionhub.Frame))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeTransport) snapshot() []sessionhub.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sessionhub.Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		HeartbeatInterval: 30 * time.Second,
		StaleTimeout:      90 * time.Second,
		MaxQueueLen:       100,
		MaxFailures:       3,
	}
}

func TestConnectSendsWelcomeWithHeartbeatInterval(t *testing.T) {
	hub := sessionhub.New(testConfig(), obs.NewNop(), nil)
	tr := &fakeTransport{}
	hub.Connect("u1", tr)

	frames := tr.snapshot()
	require.Len(t, frames, 1)
	assert.Equal(t, "connection_established", frames[0].Type)
	data := frames[0].Data.(map[string]interface{})
	assert.Equal(t, 30.0, data["heartbeat_interval"])
}

func TestSendToUserPreservesOrder(t *testing.T) {
	hub := sessionhub.New(testConfig(), obs.NewNop(), nil)
	tr := &fakeTransport{}
	hub.Connect("u1", tr)

	for _, n := range []string{"one", "two", "three"} {
		assert.True(t, hub.SendToUser("u1", sessionhub.Frame{Type: "notification", SubType: n}, true))
	}

	frames := tr.snapshot()
	require.Len(t, frames, 4) // welcome + 3
	assert.Equal(t, "one", frames[1].SubType)
	assert.Equal(t, "two", frames[2].SubType)
	assert.Equal(t, "three", frames[3].SubType)
}

func TestSendToUserUnknownUser(t *testing.T) {
	hub := sessionhub.New(testConfig(), obs.NewNop(), nil)
	assert.False(t, hub.SendToUser("ghost", sessionhub.Frame{Type: "notification"}, true))
}

func TestQueuedFramesFlushAfterRecovery(t *testing.T) {
	hub := sessionhub.New(testConfig(), obs.NewNop(), nil)
	tr := &fakeTransport{}
	hub.Connect("u1", tr)

	tr.setFail(true)
	assert.False(t, hub.SendToUser("u1", sessionhub.Frame{Type: "notification", SubType: "missed"}, true))
	tr.setFail(false)

	assert.True(t, hub.SendToUser("u1", sessionhub.Frame{Type: "notification", SubType: "live"}, true))

	frames := tr.snapshot()
	require.Len(t, frames, 3) // welcome, live, flushed "missed"
	assert.Equal(t, "live", frames[1].SubType)
	assert.Equal(t, "missed", frames[2].SubType)
}

func TestThreeConsecutiveFailuresDisconnect(t *testing.T) {
	hub := sessionhub.New(testConfig(), obs.NewNop(), nil)
	tr := &fakeTransport{}
	hub.Connect("u1", tr)
	tr.setFail(true)

	for i := 0; i < 3; i++ {
		hub.SendToUser("u1", sessionhub.Frame{Type: "notification"}, true)
	}
	assert.False(t, hub.IsConnected("u1"))
	assert.True(t, tr.closed)
}

func TestBroadcastExcludes(t *testing.T) {
	hub := sessionhub.New(testConfig(), obs.NewNop(), nil)
	tr1, tr2 := &fakeTransport{}, &fakeTransport{}
	hub.Connect("u1", tr1)
	hub.Connect("u2", tr2)

	hub.Broadcast(sessionhub.Frame{Type: "deal_alert", SubType: "hot_deal"}, "u2")

	assert.Len(t, tr1.snapshot(), 2) // welcome + alert
	assert.Len(t, tr2.snapshot(), 1) // welcome only
}

func TestRoomBroadcast(t *testing.T) {
	hub := sessionhub.New(testConfig(), obs.NewNop(), nil)
	tr1, tr2 := &fakeTransport{}, &fakeTransport{}
	hub.Connect("u1", tr1)
	hub.Connect("u2", tr2)

	hub.JoinRoom("u1", "flights")
	hub.BroadcastToRoom("flights", sessionhub.Frame{Type: "notification", SubType: "room"})

	assert.Len(t, tr1.snapshot(), 2)
	assert.Len(t, tr2.snapshot(), 1)

	hub.LeaveRoom("u1", "flights")
	hub.BroadcastToRoom("flights", sessionhub.Frame{Type: "notification", SubType: "room"})
	assert.Len(t, tr1.snapshot(), 2)
}

func TestSnapshotCounters(t *testing.T) {
	hub := sessionhub.New(testConfig(), obs.NewNop(), nil)
	tr := &fakeTransport{}
	hub.Connect("u1", tr)
	hub.SendToUser("u1", sessionhub.Frame{Type: "notification"}, true)
	hub.Touch("u1")

	stats := hub.Snapshot()
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, int64(2), stats.TotalSent) // welcome + notification
	assert.Equal(t, int64(1), stats.TotalReceived)
	assert.Equal(t, int64(2), stats.PerUser["u1"].Sent)
}

func TestCloseAll(t *testing.T) {
	hub := sessionhub.New(testConfig(), obs.NewNop(), nil)
	tr1, tr2 := &fakeTransport{}, &fakeTransport{}
	hub.Connect("u1", tr1)
	hub.Connect("u2", tr2)

	hub.CloseAll()
	assert.False(t, hub.IsConnected("u1"))
	assert.False(t, hub.IsConnected("u2"))
	assert.True(t, tr1.closed)
	assert.True(t, tr2.closed)
}
