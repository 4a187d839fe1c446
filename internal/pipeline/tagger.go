package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/bus"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
)

// amenityTags maps a substring found in a free-form amenity string to
// the tag it implies, one entry per recognized amenity.
var amenityTags = map[string]string{
	"breakfast": "breakfast-included",
	"wifi":      "free-wifi",
	"pool":      "pool",
	"gym":       "fitness-center",
	"fitness":   "fitness-center",
	"parking":   "parking-available",
	"airport":   "airport-shuttle",
}

// Tagger derives a deduplicated tag set by pure function of a scored
// record's price deltas, inventory, and metadata, then forwards to
// tagged.
type Tagger struct {
	bus bus.MessageBus
	log *obs.Logger
	met *obs.Metrics
}

func NewTagger(b bus.MessageBus, log *obs.Logger, met *obs.Metrics) *Tagger {
	return &Tagger{bus: b, log: log, met: met}
}

func (t *Tagger) Subscribe(group string) error {
	return t.bus.Subscribe(bus.TopicScored, group, t.handle)
}

func (t *Tagger) handle(ctx context.Context, key string, payload []byte) error {
	t.met.MessagesConsumed.WithLabelValues(bus.TopicScored).Inc()

	var rec model.ScoredDeal
	if err := json.Unmarshal(payload, &rec); err != nil {
		t.log.Warn("tagger: malformed scored message, dropping", zap.Error(err))
		t.met.MessagesDropped.WithLabelValues(bus.TopicScored, "malformed_json").Inc()
		return nil
	}

	tagged := model.TaggedDeal{
		ScoredDeal: rec,
		Tags:       Tag(rec),
	}

	out, err := json.Marshal(tagged)
	if err != nil {
		return nil
	}
	if err := t.bus.Publish(ctx, bus.TopicTagged, rec.DealID, out); err != nil {
		return err
	}
	t.met.MessagesPublished.WithLabelValues(bus.TopicTagged).Inc()
	t.log.PipelineEvent("tagger", rec.DealID, "emitted")
	return nil
}

// Tag derives the categorical tag set for a scored record. It is a
// pure function of the record; duplicates are collapsed.
func Tag(rec model.ScoredDeal) []string {
	set := make(map[string]struct{})
	add := func(tags ...string) {
		for _, tag := range tags {
			set[tag] = struct{}{}
		}
	}

	switch {
	case rec.DiscountPercent >= 30:
		add("hot-deal")
	case rec.DiscountPercent >= 20:
		add("great-value")
	case rec.DiscountPercent >= 15:
		add("good-deal")
	}

	switch {
	case rec.AvailableInventory > 0 && rec.AvailableInventory <= 3:
		add("almost-sold-out")
	case rec.AvailableInventory > 0 && rec.AvailableInventory <= 10:
		add("limited-availability")
	}

	switch rec.Type {
	case model.DealTypeFlight:
		add(tagFlight(rec.Metadata)...)
	case model.DealTypeHotel:
		add(tagHotel(rec.Metadata)...)
	}

	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	return out
}

func tagFlight(metadata map[string]interface{}) []string {
	var tags []string
	if b, _ := metadata["baggage_included"].(bool); b {
		tags = append(tags, "baggage-included")
	}
	cabin, _ := metadata["cabin_class"].(string)
	cabin = strings.ToLower(cabin)
	if strings.Contains(cabin, "business") || strings.Contains(cabin, "first") {
		tags = append(tags, "premium-cabin")
	}
	return tags
}

func tagHotel(metadata map[string]interface{}) []string {
	var tags []string

	rating, _ := metadata["rating"].(float64)
	switch {
	case rating >= 4.5:
		tags = append(tags, "luxury")
	case rating >= 4.0:
		tags = append(tags, "upscale")
	case rating >= 3.0:
		tags = append(tags, "comfort")
	}

	refundable, _ := metadata["refundable"].(bool)
	freeCancellation, _ := metadata["free_cancellation"].(bool)
	if refundable || freeCancellation {
		tags = append(tags, "refundable")
	} else {
		tags = append(tags, "non-refundable")
	}

	if petFriendly, _ := metadata["pet_friendly"].(bool); petFriendly {
		tags = append(tags, "pet-friendly")
	}
	nearTransit, _ := metadata["near_transit"].(bool)
	nearSubway, _ := metadata["near_subway"].(bool)
	if nearTransit || nearSubway {
		tags = append(tags, "near-transit")
	}

	tags = append(tags, amenityTagsFor(metadata)...)
	return tags
}

func amenityTagsFor(metadata map[string]interface{}) []string {
	raw, ok := metadata["amenities"].([]interface{})
	if !ok {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for substr, tag := range amenityTags {
		for _, a := range raw {
			s, ok := a.(string)
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(s), substr) {
				if _, dup := seen[tag]; !dup {
					seen[tag] = struct{}{}
					tags = append(tags, tag)
				}
				break
			}
		}
	}
	return tags
}
