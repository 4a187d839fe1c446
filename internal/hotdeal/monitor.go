// Package hotdeal implements the periodic scan for newly-persisted
// high-discount deals and broadcasts them to every live
// session: seen-set dedup, savings-percent-or-dollar-discount
// eligibility, plus a secondary trending scan by watch count.
package hotdeal

import (
	"container/list"
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/sessionhub"
	"github.com/travelintel/dealengine/internal/store"
)

// seenSet is an LRU-bounded set of deal ids already broadcast, so a
// deal is not announced again while its id remains in the set; once
// the oldest ids are evicted past max, they can be announced again.
type seenSet struct {
	max   int
	order *list.List
	index map[string]*list.Element
}

func newSeenSet(max int) *seenSet {
	return &seenSet{max: max, order: list.New(), index: make(map[string]*list.Element)}
}

func (s *seenSet) contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *seenSet) add(id string) {
	if s.contains(id) {
		return
	}
	el := s.order.PushBack(id)
	s.index[id] = el
	for s.order.Len() > s.max {
		oldest := s.order.Front()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.index, oldest.Value.(string))
	}
}

// Monitor scans the Store for newly hot deals and trending deals
// (those accumulating price watches) and broadcasts alerts.
type Monitor struct {
	store store.Store
	hub   *sessionhub.Hub
	log   *obs.Logger
	met   *obs.Metrics
	cfg   config.HotDealConfig

	seen       *seenSet
	checkCount int

	cancel context.CancelFunc
	done   chan struct{}
}

func New(st store.Store, hub *sessionhub.Hub, log *obs.Logger, met *obs.Metrics, cfg config.HotDealConfig) *Monitor {
	max := cfg.SeenSetMax
	if max <= 0 {
		max = 1000
	}
	return &Monitor{store: st, hub: hub, log: log, met: met, cfg: cfg, seen: newSeenSet(max), done: make(chan struct{})}
}

// Start launches the background loop. Every 5th tick also runs a
// trending scan.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.CheckOnce(ctx); err != nil {
					m.log.Warn("hot deal monitor: check failed, backing off", zap.Error(err))
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

func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	<-m.done
}

// CheckOnce scans for recently-created deals meeting the hot-deal
// eligibility rule and broadcasts each unseen one. It does not check
// whether any session is connected: a deal broadcast with no sessions
// is still marked seen.
func (m *Monitor) CheckOnce(ctx context.Context) error {
	window := m.cfg.LookbackWindow
	if window <= 0 {
		window = time.Hour
	}
	deals, err := m.store.ListDealsCreatedSince(ctx, time.Now().Add(-window))
	if err != nil {
		return err
	}

	for _, d := range deals {
		if m.seen.contains(d.ID) {
			continue
		}
		if !isHot(d, m.cfg) {
			continue
		}
		m.hub.Broadcast(sessionhub.Frame{
			Type:    "deal_alert",
			SubType: "hot_deal",
			Data: map[string]interface{}{
				"deal_id":          d.ID,
				"title":            d.Title,
				"price":            d.Price,
				"type":             d.Type,
				"discount_percent": d.DiscountPercent,
			},
		})
		m.seen.add(d.ID)
		if m.met != nil {
			m.met.HotDealsBroadcast.Inc()
		}
	}

	m.checkCount++
	if m.checkCount%5 == 0 {
		if err := m.scanTrending(ctx); err != nil {
			m.log.Warn("hot deal monitor: trending scan failed", zap.Error(err))
		}
	}
	return nil
}

func isHot(d model.Deal, cfg config.HotDealConfig) bool {
	minSavings := cfg.MinSavingsPercent
	if minSavings <= 0 {
		minSavings = 30
	}
	minDollar := cfg.MinDollarDiscount
	if minDollar <= 0 {
		minDollar = 200
	}
	dollarDiscount := d.OriginalPrice - d.Price
	return d.DiscountPercent > minSavings || dollarDiscount > minDollar
}

// scanTrending broadcasts a "trending" deal_alert for deals
// accumulating at least 3 active watches and not yet seen, a
// supplemental signal derived from watch counts.
func (m *Monitor) scanTrending(ctx context.Context) error {
	watches, err := m.store.ListActiveWatches(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, w := range watches {
		counts[w.DealID]++
	}

	for dealID, count := range counts {
		if count < 3 || m.seen.contains(dealID) {
			continue
		}
		deal, err := m.store.GetDeal(ctx, dealID)
		if err != nil {
			continue
		}
		m.hub.Broadcast(sessionhub.Frame{
			Type:    "deal_alert",
			SubType: "trending",
			Data: map[string]interface{}{
				"deal_id":     deal.ID,
				"title":       deal.Title,
				"price":       deal.Price,
				"type":        deal.Type,
				"watch_count": count,
			},
		})
		m.seen.add(dealID)
		if m.met != nil {
			m.met.HotDealsBroadcast.Inc()
		}
	}
	return nil
}
