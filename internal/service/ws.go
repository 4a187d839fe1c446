package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/sessionhub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebsocket upgrades /ws/events?user_id=... and hands the
// connection to SessionHub. The read loop translates client frames
// (ping, subscribe, unsubscribe, get_stats) into hub calls and answers
// them with ack and stats frames; the other server push traffic
// (heartbeat, deal_alert, price_alert) comes from the hub's heartbeat
// loop, the event notifier and the monitors. No notification or
// trip_update frames are sent.
func (s *Service) handleWebsocket(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: "user_id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	transport := sessionhub.NewWebsocketTransport(conn)
	s.Hub.Connect(userID, transport)
	defer s.Hub.Disconnect(userID)

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		s.Hub.Touch(userID)
		s.handleClientFrame(userID, frame)
	}
}

// clientFrame is the envelope a client may send: ping,
// subscribe {channel}, unsubscribe {channel}, get_stats.
type clientFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

func (s *Service) handleClientFrame(userID string, frame clientFrame) {
	switch frame.Type {
	case "ping":
		s.Hub.SendToUser(userID, sessionhub.Frame{Type: "ack", Data: map[string]interface{}{"for": "ping"}}, false)
	case "subscribe":
		s.Hub.JoinRoom(userID, frame.Channel)
		s.Hub.SendToUser(userID, sessionhub.Frame{Type: "ack", Data: map[string]interface{}{"for": "subscribe", "channel": frame.Channel}}, false)
	case "unsubscribe":
		s.Hub.LeaveRoom(userID, frame.Channel)
		s.Hub.SendToUser(userID, sessionhub.Frame{Type: "ack", Data: map[string]interface{}{"for": "unsubscribe", "channel": frame.Channel}}, false)
	case "get_stats":
		s.Hub.SendToUser(userID, sessionhub.Frame{Type: "stats", Data: s.Hub.Snapshot()}, false)
	}
}
