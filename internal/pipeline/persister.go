package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/bus"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/store"
)

// Persister consumes tagged, upserts the deal into Store as a single
// logical unit of work, appends a price-history point, and emits
// new_deal/price_update onto events.
type Persister struct {
	bus   bus.MessageBus
	store store.Store
	log   *obs.Logger
	met   *obs.Metrics
}

func NewPersister(b bus.MessageBus, st store.Store, log *obs.Logger, met *obs.Metrics) *Persister {
	return &Persister{bus: b, store: st, log: log, met: met}
}

func (p *Persister) Subscribe(group string) error {
	return p.bus.Subscribe(bus.TopicTagged, group, p.handle)
}

func (p *Persister) handle(ctx context.Context, key string, payload []byte) error {
	p.met.MessagesConsumed.WithLabelValues(bus.TopicTagged).Inc()

	var rec model.TaggedDeal
	if err := json.Unmarshal(payload, &rec); err != nil {
		p.log.Warn("persister: malformed tagged message, dropping", zap.Error(err))
		p.met.MessagesDropped.WithLabelValues(bus.TopicTagged, "malformed_json").Inc()
		return nil
	}

	event, err := p.persist(ctx, rec)
	if err != nil {
		p.log.Warn("persister: store operation failed, returning error to the bus", zap.String("deal_id", rec.DealID), zap.Error(err))
		p.met.StoreErrors.WithLabelValues("upsert_deal", "transient").Inc()
		return err
	}
	if event == nil {
		return nil
	}

	out, err := json.Marshal(event)
	if err != nil {
		return nil
	}
	if err := p.bus.Publish(ctx, bus.TopicEvents, rec.DealID, out); err != nil {
		return err
	}
	p.met.MessagesPublished.WithLabelValues(bus.TopicEvents).Inc()
	p.log.PipelineEvent("persister", rec.DealID, event.EventType)
	return nil
}

// persist performs the upsert + history append + event construction as
// a single logical unit: the Store applies both writes atomically, so
// on failure neither lands and no event is emitted. The error is
// returned to the bus, whose backends log it and advance the offset;
// the message is not redelivered.
func (p *Persister) persist(ctx context.Context, rec model.TaggedDeal) (*model.DealEvent, error) {
	existing, err := p.store.GetDeal(ctx, rec.DealID)
	priceChanged := false
	if err == nil {
		priceChanged = existing.Price != rec.Price
	}

	deal := &model.Deal{
		ID:              rec.DealID,
		Type:            rec.Type,
		Title:           rec.Title,
		Description:     rec.Description,
		Price:           rec.Price,
		OriginalPrice:   rec.OriginalPrice,
		Avg30dPrice:     rec.Avg30dPrice,
		DiscountPercent: rec.DiscountPercent,
		Score:           rec.Score,
		ExpiresAt:       rec.ExpiresAt,
		UpdatedAt:       time.Now(),
	}
	deal.SetTags(rec.Tags)
	deal.SetMetadata(rec.Metadata)

	inventory := rec.AvailableInventory
	inserted, err := p.store.UpsertDealWithHistory(ctx, deal, model.PriceHistoryPoint{
		DealID:             rec.DealID,
		Price:              rec.Price,
		AvailableInventory: &inventory,
		RecordedAt:         time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if inserted {
		return &model.DealEvent{EventType: "new_deal", DealID: rec.DealID, Data: &rec}, nil
	}
	if priceChanged {
		oldPrice, newPrice := existing.Price, rec.Price
		return &model.DealEvent{EventType: "price_update", DealID: rec.DealID, OldPrice: &oldPrice, NewPrice: &newPrice, Data: &rec}, nil
	}
	return nil, nil
}
