// Package sessionhub implements the real-time fan-out layer: one
// in-process session per connected client, heartbeat, best-effort
// delivery with queued retry on transient send failure, rooms, and
// broadcast.
package sessionhub

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/obs"
)

// Transport abstracts the client connection so the hub's delivery and
// heartbeat logic can be exercised without a real websocket (tests
// supply a fake).
type Transport interface {
	WriteJSON(v interface{}) error
	Close() error
}

type wsTransport struct{ conn *websocket.Conn }

func NewWebsocketTransport(conn *websocket.Conn) Transport { return &wsTransport{conn: conn} }

func (t *wsTransport) WriteJSON(v interface{}) error { return t.conn.WriteJSON(v) }
func (t *wsTransport) Close() error                  { return t.conn.Close() }

// Frame is the envelope written to the client stream. Type discriminates
// the payload shape (connection_established, heartbeat,
// notification, deal_alert, price_alert, trip_update, stats, ack).
type Frame struct {
	Type    string      `json:"type"`
	SubType string      `json:"sub_type,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// session is the in-memory per-user state owned exclusively by Hub.
type session struct {
	userID          string
	transport       Transport
	connectedAt     time.Time
	lastHeartbeat   time.Time
	lastActivity    time.Time
	queue           []Frame
	failedSendCount int
	rooms           map[string]struct{}

	sent, received, failed, queued int64
}

// Hub is the SessionHub composition: session map, heartbeat loop, and
// per-user/global counters. External callers never touch session state
// directly — only through Hub's methods.
type Hub struct {
	cfg config.SessionConfig
	log *obs.Logger
	met *obs.Metrics

	mu       sync.RWMutex
	sessions map[string]*session

	totalSent, totalReceived, totalFailed, totalQueued int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.SessionConfig, log *obs.Logger, met *obs.Metrics) *Hub {
	return &Hub{
		cfg:      cfg,
		log:      log,
		met:      met,
		sessions: make(map[string]*session),
	}
}

// Connect accepts a new session, sends the welcome frame (including
// heartbeat_interval), and replaces any prior session for the user.
func (h *Hub) Connect(userID string, t Transport) {
	now := time.Now()
	h.mu.Lock()
	if existing, ok := h.sessions[userID]; ok {
		_ = existing.transport.Close()
	}
	h.sessions[userID] = &session{
		userID:        userID,
		transport:     t,
		connectedAt:   now,
		lastHeartbeat: now,
		lastActivity:  now,
		rooms:         make(map[string]struct{}),
	}
	h.mu.Unlock()

	if h.met != nil {
		h.met.ActiveSessions.Set(float64(h.sessionCount()))
	}

	h.sendLocked(userID, Frame{
		Type: "connection_established",
		Data: map[string]interface{}{
			"user_id":            userID,
			"heartbeat_interval": h.cfg.HeartbeatInterval.Seconds(),
		},
	}, false)
}

func (h *Hub) sessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Disconnect drops a session's state.
func (h *Hub) Disconnect(userID string) {
	h.mu.Lock()
	s, ok := h.sessions[userID]
	if ok {
		delete(h.sessions, userID)
	}
	h.mu.Unlock()
	if ok {
		_ = s.transport.Close()
	}
	if h.met != nil {
		h.met.ActiveSessions.Set(float64(h.sessionCount()))
	}
}

// Touch records client activity (e.g. a received ping), resetting the
// staleness clock.
func (h *Hub) Touch(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[userID]; ok {
		now := time.Now()
		s.lastHeartbeat = now
		s.lastActivity = now
		s.received++
		h.totalReceived++
	}
}

// SendToUser best-effort delivers a frame to userID. On failure the
// per-session failure counter increments; if queueOnFailure is true the
// frame is enqueued (bounded to MaxQueueLen); after MaxFailures
// consecutive failures the session is force-disconnected. Delivery
// order within a single user's queue is preserved.
func (h *Hub) SendToUser(userID string, frame Frame, queueOnFailure bool) bool {
	return h.sendLocked(userID, frame, queueOnFailure)
}

func (h *Hub) sendLocked(userID string, frame Frame, queueOnFailure bool) bool {
	h.mu.Lock()
	s, ok := h.sessions[userID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	h.mu.Unlock()

	if err := s.transport.WriteJSON(frame); err != nil {
		h.mu.Lock()
		s.failedSendCount++
		s.failed++
		h.totalFailed++
		disconnect := s.failedSendCount >= h.cfg.MaxFailures
		if queueOnFailure && !disconnect {
			s.queue = append(s.queue, frame)
			if len(s.queue) > h.cfg.MaxQueueLen {
				s.queue = s.queue[len(s.queue)-h.cfg.MaxQueueLen:]
			}
			s.queued++
			h.totalQueued++
		}
		h.mu.Unlock()

		if h.met != nil {
			h.met.SessionSendFail.Inc()
		}
		h.log.Warn("sessionhub: send failed", zap.String("user_id", userID), zap.Error(err))

		if disconnect {
			h.Disconnect(userID)
		}
		return false
	}

	h.mu.Lock()
	s.failedSendCount = 0
	s.sent++
	h.totalSent++
	// Flush any queued frames now that the transport is healthy again.
	pending := s.queue
	s.queue = nil
	h.mu.Unlock()

	for _, f := range pending {
		_ = s.transport.WriteJSON(f)
	}
	return true
}

// Broadcast fans a frame out to every connected session except those in
// exclude, removing any session whose send fails permanently.
func (h *Hub) Broadcast(frame Frame, exclude ...string) {
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	h.mu.RLock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		if _, skip := excluded[id]; !skip {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.sendLocked(id, frame, true)
	}
}

// JoinRoom adds userID to room's membership set.
func (h *Hub) JoinRoom(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[userID]; ok {
		s.rooms[room] = struct{}{}
	}
}

// LeaveRoom removes userID from room's membership set.
func (h *Hub) LeaveRoom(userID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[userID]; ok {
		delete(s.rooms, room)
	}
}

// BroadcastToRoom fans a frame out to every session that has joined
// room.
func (h *Hub) BroadcastToRoom(room string, frame Frame) {
	h.mu.RLock()
	var ids []string
	for id, s := range h.sessions {
		if _, in := s.rooms[room]; in {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.sendLocked(id, frame, true)
	}
}

// Stats is the per-user/global counter snapshot exposed over the
// get_stats/stats frames; it is not part of the /metrics output.
type Stats struct {
	ActiveSessions int                     `json:"active_sessions"`
	TotalSent      int64                   `json:"total_sent"`
	TotalReceived  int64                   `json:"total_received"`
	TotalFailed    int64                   `json:"total_failed"`
	TotalQueued    int64                   `json:"total_queued"`
	PerUser        map[string]UserCounters `json:"per_user,omitempty"`
}

type UserCounters struct {
	Sent     int64 `json:"sent"`
	Received int64 `json:"received"`
	Failed   int64 `json:"failed"`
	Queued   int64 `json:"queued"`
}

// Snapshot returns the current global and per-user counters, consumed
// by the get_stats WS frame. /metrics does not read it; the hub's only
// Prometheus series are the active-session gauge and the send-failure
// counter.
func (h *Hub) Snapshot() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	per := make(map[string]UserCounters, len(h.sessions))
	for id, s := range h.sessions {
		per[id] = UserCounters{Sent: s.sent, Received: s.received, Failed: s.failed, Queued: s.queued}
	}
	return Stats{
		ActiveSessions: len(h.sessions),
		TotalSent:      h.totalSent,
		TotalReceived:  h.totalReceived,
		TotalFailed:    h.totalFailed,
		TotalQueued:    h.totalQueued,
		PerUser:        per,
	}
}

// IsConnected reports whether userID currently has a live session.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}

// StartHeartbeat runs the periodic heartbeat loop until ctx is
// cancelled: purge sessions stale beyond StaleTimeout, otherwise send a
// heartbeat frame.
func (h *Hub) StartHeartbeat(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.heartbeatTick()
			}
		}
	}()
}

func (h *Hub) heartbeatTick() {
	now := time.Now()
	h.mu.RLock()
	var stale, live []string
	for id, s := range h.sessions {
		if now.Sub(s.lastHeartbeat) > h.cfg.StaleTimeout {
			stale = append(stale, id)
		} else {
			live = append(live, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range stale {
		h.log.Info("sessionhub: purging stale session", zap.String("user_id", id))
		h.Disconnect(id)
	}
	for _, id := range live {
		h.sendLocked(id, Frame{Type: "heartbeat"}, false)
	}
}

// Stop cancels the heartbeat loop and awaits its completion.
func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
}

// CloseAll force-disconnects every session, used during service
// shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.Disconnect(id)
	}
}
