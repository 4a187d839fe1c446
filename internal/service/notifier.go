package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/bus"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/sessionhub"
)

// subscribeEventNotifier wires the last hop of the pipeline's data
// flow (Store + events -> SessionHub -> clients): every
// new_deal/price_update the Persister emits onto events is broadcast
// to live sessions as a deal_alert notification.
func (s *Service) subscribeEventNotifier(group string) error {
	return s.Bus.Subscribe(bus.TopicEvents, group, s.handleDealEvent)
}

func (s *Service) handleDealEvent(ctx context.Context, key string, payload []byte) error {
	var event model.DealEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.Log.Warn("event notifier: malformed event message, dropping", zap.Error(err))
		return nil
	}

	s.Hub.Broadcast(sessionhub.Frame{
		Type:    "deal_alert",
		SubType: event.EventType,
		Data:    event,
	})
	return nil
}
