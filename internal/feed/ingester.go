// Package feed implements the periodic scan of an external listings
// database and republishes its rows onto raw_feeds. The package never
// writes the listings tables; it only republishes rows a loader
// already placed in the listings source.
package feed

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/bus"
	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
)

// Listing is one row read from the external listings database, prior
// to normalization.
type Listing struct {
	FeedType string
	Data     map[string]interface{}
}

// ListingsSource abstracts the external listings database scan. A real
// implementation queries whatever SQL store the supplier feed loader
// populates; tests supply an in-memory fake.
type ListingsSource interface {
	ScanNew(ctx context.Context) ([]Listing, error)
}

// Ingester periodically scans ListingsSource and republishes each row
// onto raw_feeds, keyed by a best-effort id so same-listing updates
// serialize through the pipeline.
type Ingester struct {
	source ListingsSource
	bus    bus.MessageBus
	log    *obs.Logger
	met    *obs.Metrics
	cfg    config.FeedConfig

	cancel context.CancelFunc
	done   chan struct{}
}

func New(source ListingsSource, b bus.MessageBus, log *obs.Logger, met *obs.Metrics, cfg config.FeedConfig) *Ingester {
	return &Ingester{source: source, bus: b, log: log, met: met, cfg: cfg, done: make(chan struct{})}
}

func (i *Ingester) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	i.cancel = cancel
	go func() {
		defer close(i.done)
		ticker := time.NewTicker(i.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := i.ScanOnce(ctx); err != nil {
					i.log.Warn("feed ingester: scan failed, backing off", zap.Error(err))
					select {
					case <-time.After(10 * time.Second):
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
}

func (i *Ingester) Stop() {
	if i.cancel != nil {
		i.cancel()
	}
	<-i.done
}

// ScanOnce reads new rows from the listings source and republishes
// each as a RawFeedMessage onto raw_feeds.
func (i *Ingester) ScanOnce(ctx context.Context) error {
	listings, err := i.source.ScanNew(ctx)
	if err != nil {
		return err
	}

	for _, l := range listings {
		msg := model.RawFeedMessage{FeedType: l.FeedType, Data: l.Data}
		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		key := listingKey(l)
		if err := i.bus.Publish(ctx, bus.TopicRawFeeds, key, payload); err != nil {
			i.log.Warn("feed ingester: publish failed", zap.String("key", key), zap.Error(err))
			continue
		}
		i.met.MessagesPublished.WithLabelValues(bus.TopicRawFeeds).Inc()
	}
	return nil
}

func listingKey(l Listing) string {
	for _, k := range []string{"id", "hotel_id", "route_id"} {
		if v, ok := l.Data[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
