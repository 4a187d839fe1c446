package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/bus"
	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/store"
)

// featureFlags is the amenity/feature bonus set checked against
// flight and hotel metadata alike.
var featureFlags = []string{
	"refundable", "free-cancellation", "pet-friendly", "near-transit",
	"breakfast-included", "free-wifi", "airport-shuttle", "non-stop",
}

// Scorer attaches 30-day rolling price history and a 0-100 multi-factor
// score to each normalized record, then forwards to scored.
type Scorer struct {
	bus   bus.MessageBus
	store store.Store
	log   *obs.Logger
	met   *obs.Metrics
	cfg   config.ScoringConfig
}

func NewScorer(b bus.MessageBus, st store.Store, log *obs.Logger, met *obs.Metrics, cfg config.ScoringConfig) *Scorer {
	return &Scorer{bus: b, store: st, log: log, met: met, cfg: cfg}
}

func (s *Scorer) Subscribe(group string) error {
	return s.bus.Subscribe(bus.TopicNormalized, group, s.handle)
}

func (s *Scorer) handle(ctx context.Context, key string, payload []byte) error {
	s.met.MessagesConsumed.WithLabelValues(bus.TopicNormalized).Inc()

	var rec model.NormalizedDeal
	if err := json.Unmarshal(payload, &rec); err != nil {
		s.log.Warn("scorer: malformed normalized message, dropping", zap.Error(err))
		s.met.MessagesDropped.WithLabelValues(bus.TopicNormalized, "malformed_json").Inc()
		return nil
	}

	windowDays := s.cfg.HistoryWindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	now := time.Now()
	points, err := s.store.PriceHistory(ctx, rec.DealID, now.AddDate(0, 0, -windowDays))
	if err != nil {
		s.log.Warn("scorer: price history lookup failed, proceeding without history", zap.String("deal_id", rec.DealID), zap.Error(err))
		points = nil
	}

	avg30d, ok := model.Average30d(points, windowDays, now)
	if !ok {
		avg30d = rec.Price
	}

	discountPercent := model.ComputeDiscountPercent(rec.Price, rec.OriginalPrice)

	scored := model.ScoredDeal{
		NormalizedDeal:  rec,
		Avg30dPrice:     avg30d,
		DiscountPercent: discountPercent,
		Score:           Score(rec, discountPercent),
		DealFlagged:     model.IsDealFlagged(rec.Price, avg30d),
	}

	if scored.Score < float64(s.cfg.MinScoreToPublish) {
		s.met.MessagesDropped.WithLabelValues(bus.TopicNormalized, "below_min_score").Inc()
		return nil
	}

	out, err := json.Marshal(scored)
	if err != nil {
		return nil
	}
	if err := s.bus.Publish(ctx, bus.TopicScored, rec.DealID, out); err != nil {
		return err
	}
	s.met.MessagesPublished.WithLabelValues(bus.TopicScored).Inc()
	s.log.PipelineEvent("scorer", rec.DealID, "emitted")
	return nil
}

// Score computes the clamped sum of the weighted scoring factors.
// It depends only on the normalized record, its discount percentage
// and, for the expiry-urgency tier, the current time.
func Score(rec model.NormalizedDeal, discountPercent float64) float64 {
	var total float64
	total += priceVsListScore(discountPercent)
	total += inventoryScarcityScore(rec.AvailableInventory)
	total += timeUrgencyScore(rec.ExpiresAt)
	total += amenityBonusScore(rec.Metadata)
	total += absoluteValueBonus(rec)
	total += ratingBonus(rec)
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total
}

func priceVsListScore(discountPercent float64) float64 {
	switch {
	case discountPercent >= 30:
		return 40
	case discountPercent >= 20:
		return 30
	case discountPercent >= 15:
		return 20
	case discountPercent >= 10:
		return 10
	default:
		return 0
	}
}

func inventoryScarcityScore(inventory int) float64 {
	switch {
	case inventory <= 0:
		return 0
	case inventory <= 3:
		return 25
	case inventory <= 5:
		return 20
	case inventory <= 10:
		return 15
	case inventory <= 20:
		return 10
	default:
		return 0
	}
}

func timeUrgencyScore(expiresAt *time.Time) float64 {
	if expiresAt == nil {
		return 0
	}
	remaining := time.Until(*expiresAt)
	switch {
	case remaining <= 24*time.Hour:
		return 20
	case remaining <= 48*time.Hour:
		return 15
	case remaining <= 72*time.Hour:
		return 10
	default:
		return 0
	}
}

func amenityBonusScore(metadata map[string]interface{}) float64 {
	matched := 0
	for _, f := range featureFlags {
		if metadataHasFeature(metadata, f) {
			matched++
		}
	}
	bonus := float64(matched) * 3
	if bonus > 15 {
		bonus = 15
	}
	return bonus
}

func metadataHasFeature(metadata map[string]interface{}, feature string) bool {
	key := strings.ReplaceAll(feature, "-", "_")
	if v, ok := metadata[key]; ok {
		if b, ok := v.(bool); ok && b {
			return true
		}
	}
	if amenities, ok := metadata["amenities"].([]interface{}); ok {
		for _, a := range amenities {
			if s, ok := a.(string); ok && strings.Contains(strings.ToLower(s), strings.ReplaceAll(feature, "-", " ")) {
				return true
			}
		}
	}
	return false
}

func absoluteValueBonus(rec model.NormalizedDeal) float64 {
	switch rec.Type {
	case model.DealTypeHotel:
		switch {
		case rec.Price < 100:
			return 20
		case rec.Price < 150:
			return 15
		case rec.Price < 200:
			return 10
		case rec.Price < 300:
			return 5
		default:
			return 0
		}
	case model.DealTypeFlight:
		switch {
		case rec.Price < 200:
			return 20
		case rec.Price < 350:
			return 15
		case rec.Price < 500:
			return 10
		case rec.Price < 700:
			return 5
		default:
			return 0
		}
	default:
		return 0
	}
}

func ratingBonus(rec model.NormalizedDeal) float64 {
	if rec.Type != model.DealTypeHotel {
		return 0
	}
	rating, _ := rec.Metadata["rating"].(float64)
	switch {
	case rating >= 4.5:
		return 10
	case rating >= 4.0:
		return 7
	case rating >= 3.5:
		return 5
	default:
		return 0
	}
}
