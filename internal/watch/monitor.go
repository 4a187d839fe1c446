// Package watch implements the periodic price/inventory threshold
// scan: load active watches, fetch each watch's current deal, check
// thresholds, throttle, alert.
package watch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/ierrors"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/sessionhub"
	"github.com/travelintel/dealengine/internal/store"
)

// Monitor runs the periodic watch-check loop and emits price_alert
// frames to SessionHub.
type Monitor struct {
	store store.Store
	hub   *sessionhub.Hub
	log   *obs.Logger
	met   *obs.Metrics
	cfg   config.WatchConfig

	cancel context.CancelFunc
	done   chan struct{}
}

func New(st store.Store, hub *sessionhub.Hub, log *obs.Logger, met *obs.Metrics, cfg config.WatchConfig) *Monitor {
	return &Monitor{store: st, hub: hub, log: log, met: met, cfg: cfg, done: make(chan struct{})}
}

// Start launches the background loop: one scheduled task, caught
// failures, ~10s backoff after an error, cancellable on ctx.Done.
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
					m.log.Warn("watch monitor: check failed, backing off", zap.Error(err))
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

// CheckOnce performs a single scan of all active watches, firing alerts
// for breached thresholds and deactivating watches whose deal no
// longer exists.
func (m *Monitor) CheckOnce(ctx context.Context) error {
	watches, err := m.store.ListActiveWatches(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range watches {
		w := watches[i]
		deal, err := m.store.GetDeal(ctx, w.DealID)
		if err != nil {
			if ierrors.IsNotFound(err) {
				if derr := m.store.DeactivateWatch(ctx, w.ID); derr != nil {
					m.log.Warn("watch monitor: failed to deactivate watch for missing deal", zap.String("watch_id", w.ID), zap.Error(derr))
				}
				continue
			}
			m.log.Warn("watch monitor: deal lookup failed", zap.String("watch_id", w.ID), zap.Error(err))
			continue
		}

		var inventory *int
		if latest, herr := m.store.LatestPriceHistory(ctx, w.DealID); herr == nil {
			inventory = latest.AvailableInventory
		}
		reasons := w.FiringReasons(deal.Price, inventory)
		if len(reasons) == 0 {
			continue
		}

		window := m.cfg.ReAlertWindow
		if window <= 0 {
			window = m.cfg.Interval
		}
		if w.ShouldThrottle(now, window) {
			continue
		}

		m.hub.SendToUser(w.UserID, sessionhub.Frame{
			Type: "price_alert",
			Data: map[string]interface{}{
				"watch_id": w.ID,
				"deal_id":  w.DealID,
				"price":    deal.Price,
				"reasons":  reasons,
			},
		}, true)
		if m.met != nil {
			m.met.WatchAlertsSent.Inc()
		}

		if err := m.store.UpdateWatchNotified(ctx, w.ID, now); err != nil {
			m.log.Warn("watch monitor: failed to update last_notified", zap.String("watch_id", w.ID), zap.Error(err))
		}
	}
	return nil
}
