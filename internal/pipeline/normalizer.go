// Package pipeline implements the four-stage deal pipeline: Normalizer
// consumes raw_feeds and emits canonical records to normalized; Scorer
// consumes normalized and emits to scored; Tagger consumes scored and
// emits to tagged; Persister consumes tagged, upserts into Store, and
// emits events.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/bus"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
)

// Normalizer widens free-form supplier payloads into canonical
// NormalizedDeal records. It is the only place in the pipeline allowed
// to deal with untyped map[string]interface{} input — every stage
// downstream operates on typed message variants.
type Normalizer struct {
	bus bus.MessageBus
	log *obs.Logger
	met *obs.Metrics
}

func NewNormalizer(b bus.MessageBus, log *obs.Logger, met *obs.Metrics) *Normalizer {
	if log == nil {
		log = obs.NewNop()
	}
	return &Normalizer{bus: b, log: log, met: met}
}

// Subscribe registers the Normalizer as a raw_feeds consumer under
// group.
func (n *Normalizer) Subscribe(group string) error {
	return n.bus.Subscribe(bus.TopicRawFeeds, group, n.handle)
}

func (n *Normalizer) handle(ctx context.Context, key string, payload []byte) error {
	n.met.MessagesConsumed.WithLabelValues(bus.TopicRawFeeds).Inc()

	var raw model.RawFeedMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		n.log.Warn("normalizer: malformed raw feed message, dropping", zap.Error(err))
		n.met.MessagesDropped.WithLabelValues(bus.TopicRawFeeds, "malformed_json").Inc()
		return nil
	}

	record, err := n.normalize(raw)
	if err != nil {
		n.log.Warn("normalizer: failed to normalize, dropping", zap.String("feed_type", raw.FeedType), zap.Error(err))
		n.met.MessagesDropped.WithLabelValues(bus.TopicRawFeeds, "normalize_failed").Inc()
		return nil
	}

	out, err := json.Marshal(record)
	if err != nil {
		return nil
	}
	if err := n.bus.Publish(ctx, bus.TopicNormalized, record.DealID, out); err != nil {
		return err
	}
	n.met.MessagesPublished.WithLabelValues(bus.TopicNormalized).Inc()
	n.log.PipelineEvent("normalizer", record.DealID, "emitted")
	return nil
}

func (n *Normalizer) normalize(raw model.RawFeedMessage) (model.NormalizedDeal, error) {
	switch strings.ToLower(raw.FeedType) {
	case "flight":
		return n.normalizeFlight(raw.Data)
	case "hotel":
		return n.normalizeHotel(raw.Data)
	default:
		return model.NormalizedDeal{}, fmt.Errorf("unknown feed_type %q", raw.FeedType)
	}
}

func (n *Normalizer) normalizeFlight(data map[string]interface{}) (model.NormalizedDeal, error) {
	id := stringField(data, "id", "route_id")
	if id == "" {
		return model.NormalizedDeal{}, fmt.Errorf("flight feed missing id/route_id")
	}
	origin := stringField(data, "origin")
	destination := stringField(data, "destination")
	airline := stringField(data, "airline")

	price := floatField(data, "price")
	originalPrice := floatField(data, "base_price", "original_price")
	if originalPrice == 0 {
		originalPrice = price
	}
	inventory := intField(data, "seats_left", "available_inventory")

	meta := map[string]interface{}{
		"origin":           origin,
		"destination":      destination,
		"airline":          airline,
		"departure":        stringField(data, "departure"),
		"arrival":          stringField(data, "arrival"),
		"cabin_class":      orDefault(stringField(data, "cabin_class"), "economy"),
		"baggage_included": boolField(data, "baggage_included"),
		"flight_code":      stringField(data, "flight_code"),
	}

	rec := model.NormalizedDeal{
		DealID:             "flight_" + id,
		Type:               model.DealTypeFlight,
		Title:              fmt.Sprintf("%s to %s - %s", orDefault(origin, "?"), orDefault(destination, "?"), orDefault(airline, "Unknown")),
		Description:        stringField(data, "description"),
		Price:              price,
		OriginalPrice:      originalPrice,
		AvailableInventory: inventory,
		Metadata:           meta,
	}
	if exp := timeField(data, "expires_at"); exp != nil {
		rec.ExpiresAt = exp
	}
	return rec, nil
}

func (n *Normalizer) normalizeHotel(data map[string]interface{}) (model.NormalizedDeal, error) {
	id := stringField(data, "hotel_id", "id")
	if id == "" {
		return model.NormalizedDeal{}, fmt.Errorf("hotel feed missing hotel_id/id")
	}
	name := orDefault(stringField(data, "name", "hotel_name"), "Hotel")

	price := floatField(data, "price", "price_per_night")
	originalPrice := floatField(data, "base_price", "original_price")
	if originalPrice == 0 {
		originalPrice = price
	}
	inventory := intField(data, "rooms_available", "available_inventory")

	meta := map[string]interface{}{
		"city":      stringField(data, "city"),
		"state":     stringField(data, "state"),
		"address":   stringField(data, "address"),
		"rating":    floatField(data, "rating"),
		"amenities": amenitiesField(data),
	}
	for _, flag := range []string{"refundable", "free_cancellation", "pet_friendly", "near_transit", "near_subway"} {
		if boolField(data, flag) {
			meta[flag] = true
		}
	}

	rec := model.NormalizedDeal{
		DealID:             "hotel_" + id,
		Type:               model.DealTypeHotel,
		Title:              name,
		Description:        stringField(data, "description"),
		Price:              price,
		OriginalPrice:      originalPrice,
		AvailableInventory: inventory,
		Metadata:           meta,
	}
	if exp := timeField(data, "expires_at"); exp != nil {
		rec.ExpiresAt = exp
	}
	return rec, nil
}

func amenitiesField(data map[string]interface{}) []string {
	raw, ok := data["amenities"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, a := range v {
			if s, ok := a.(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				out = append(out, t)
			}
		}
		return out
	default:
		return nil
	}
}

func stringField(data map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := data[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func floatField(data map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := data[k]; ok {
			switch n := v.(type) {
			case float64:
				return n
			case int:
				return float64(n)
			}
		}
	}
	return 0
}

func intField(data map[string]interface{}, keys ...string) int {
	return int(floatField(data, keys...))
}

func boolField(data map[string]interface{}, key string) bool {
	if v, ok := data[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func timeField(data map[string]interface{}, key string) *time.Time {
	v, ok := data[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
