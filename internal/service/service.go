// Package service is the composition root: it owns every singleton
// handle (bus, store, cache, session hub), wires
// the pipeline stages and background monitors to them, and exposes an
// explicit Start/Shutdown lifecycle rather than relying on package
// init or global state.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/bus"
	"github.com/travelintel/dealengine/internal/cache"
	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/feed"
	"github.com/travelintel/dealengine/internal/hotdeal"
	"github.com/travelintel/dealengine/internal/intent"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/pipeline"
	"github.com/travelintel/dealengine/internal/policy"
	"github.com/travelintel/dealengine/internal/sessionhub"
	"github.com/travelintel/dealengine/internal/store"
	"github.com/travelintel/dealengine/internal/tripplanner"
	"github.com/travelintel/dealengine/internal/watch"
)

// Service is the constructed-at-startup value every handler and
// background loop is threaded through. External callers (the HTTP/WS
// layer) interact with Store/Cache/SessionHub only through this value,
// never by reaching for a global.
type Service struct {
	Cfg config.Config
	Log *obs.Logger
	Met *obs.Metrics

	Bus   bus.MessageBus
	Store store.Store
	Cache cache.Cache

	Normalizer *pipeline.Normalizer
	Scorer     *pipeline.Scorer
	Tagger     *pipeline.Tagger
	Persister  *pipeline.Persister

	FeedIngester *feed.Ingester
	feedSource   closer

	Planner *tripplanner.Planner
	Intent  *intent.Parser
	Watch   *watch.Monitor
	HotDeal *hotdeal.Monitor
	Hub     *sessionhub.Hub
	Policy  *policy.Service

	consumerGroup string
	pruneCancel   context.CancelFunc
	pruneDone     chan struct{}
}

type closer interface{ Close() error }

// Option customizes New's construction, primarily so tests can supply
// in-memory fakes in place of the production backends.
type Option func(*buildOpts)

type buildOpts struct {
	store     store.Store
	cache     cache.Cache
	bus       bus.MessageBus
	textModel intent.TextModelClient
	listings  feed.ListingsSource
}

func WithStore(s store.Store) Option  { return func(o *buildOpts) { o.store = s } }
func WithCache(c cache.Cache) Option  { return func(o *buildOpts) { o.cache = c } }
func WithBus(b bus.MessageBus) Option { return func(o *buildOpts) { o.bus = b } }
func WithTextModel(c intent.TextModelClient) Option {
	return func(o *buildOpts) { o.textModel = c }
}
func WithListingsSource(l feed.ListingsSource) Option {
	return func(o *buildOpts) { o.listings = l }
}

// New constructs every singleton handle and wires the pipeline,
// planner, intent parser, watch/hot-deal monitors, and session hub
// against them. Production backends are used unless overridden by
// Option; construction failures for optional production dependencies
// (DSN-backed store/cache/bus) are returned, not silently swallowed.
func New(cfg config.Config, log *obs.Logger, opts ...Option) (*Service, error) {
	built := buildOpts{}
	for _, opt := range opts {
		opt(&built)
	}

	met := obs.NewMetrics()

	messageBus := built.bus
	if messageBus == nil {
		if cfg.Bus.UseInProcess {
			messageBus = bus.NewInProcess(log)
		} else {
			k, err := bus.NewKafka(cfg.Bus.Bootstrap, log)
			if err != nil {
				return nil, err
			}
			messageBus = k
		}
	}

	st := built.store
	if st == nil {
		p, err := store.NewPostgres(cfg.Store, log)
		if err != nil {
			return nil, err
		}
		st = p
	}

	c := built.cache
	if c == nil {
		r, err := cache.NewRedis(cfg.Cache.DSN)
		if err != nil {
			return nil, err
		}
		c = r
	}

	hub := sessionhub.New(cfg.Session, log, met)

	svc := &Service{
		Cfg:           cfg,
		Log:           log,
		Met:           met,
		Bus:           messageBus,
		Store:         st,
		Cache:         c,
		Normalizer:    pipeline.NewNormalizer(messageBus, log, met),
		Scorer:        pipeline.NewScorer(messageBus, st, log, met, cfg.Scoring),
		Tagger:        pipeline.NewTagger(messageBus, log, met),
		Persister:     pipeline.NewPersister(messageBus, st, log, met),
		Planner:       tripplanner.New(st, cfg.Planner),
		Watch:         watch.New(st, hub, log, met, cfg.Watch),
		HotDeal:       hotdeal.New(st, hub, log, met, cfg.HotDeal),
		Hub:           hub,
		Policy:        policy.NewService(st, c, log, met),
		consumerGroup: cfg.Bus.ConsumerGroup,
	}
	svc.Intent = intent.New(built.textModel, c, st, log, met, cfg.Intent)

	listings := built.listings
	if listings != nil {
		svc.FeedIngester = feed.New(listings, messageBus, log, met, cfg.Feed)
		if cl, ok := listings.(closer); ok {
			svc.feedSource = cl
		}
	}

	return svc, nil
}

// Start subscribes every pipeline stage to its upstream topic, and
// launches the background loops (feed ingestion, watch monitor,
// hot-deal monitor, session heartbeat), one scheduled task each.
func (s *Service) Start(ctx context.Context) error {
	subs := []struct {
		name string
		fn   func(string) error
	}{
		{"normalizer", s.Normalizer.Subscribe},
		{"scorer", s.Scorer.Subscribe},
		{"tagger", s.Tagger.Subscribe},
		{"persister", s.Persister.Subscribe},
		{"event_notifier", s.subscribeEventNotifier},
	}
	for _, sub := range subs {
		if err := sub.fn(s.consumerGroup); err != nil {
			return err
		}
		s.Log.Info("service: pipeline stage subscribed", zap.String("stage", sub.name))
	}

	if s.FeedIngester != nil {
		s.FeedIngester.Start(ctx)
	}
	s.Watch.Start(ctx)
	s.HotDeal.Start(ctx)
	s.Hub.StartHeartbeat(ctx)
	s.startRetentionLoop(ctx)

	s.Log.Info("service: started")
	return nil
}

// startRetentionLoop periodically evicts trip plans and conversations
// older than the configured retention window.
func (s *Service) startRetentionLoop(ctx context.Context) {
	retention := s.Cfg.Store.RetentionDays
	if retention <= 0 {
		retention = 30
	}
	ctx, cancel := context.WithCancel(ctx)
	s.pruneCancel = cancel
	s.pruneDone = make(chan struct{})

	go func() {
		defer close(s.pruneDone)
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retention)
				if err := s.Store.PruneOlderThan(ctx, cutoff); err != nil {
					s.Log.Warn("service: retention prune failed", zap.Error(err))
				}
			}
		}
	}()
}

// Shutdown implements the ordered, bounded-timeout teardown: stop
// accepting new background work, await the running
// loops, drain the bus, close all sessions, then close Store/Cache.
// Only the bus drain is bounded by stepTimeout; the hub, cache and
// store steps run without a timeout.
func (s *Service) Shutdown(ctx context.Context) error {
	const stepTimeout = 10 * time.Second

	if s.FeedIngester != nil {
		s.FeedIngester.Stop()
	}
	s.Watch.Stop()
	s.HotDeal.Stop()
	if s.pruneCancel != nil {
		s.pruneCancel()
		<-s.pruneDone
	}

	busCtx, cancel := context.WithTimeout(ctx, stepTimeout)
	defer cancel()
	if err := s.Bus.Close(busCtx); err != nil {
		s.Log.Warn("service: bus close did not complete cleanly", zap.Error(err))
	}

	s.Hub.Stop()
	s.Hub.CloseAll()

	if s.feedSource != nil {
		_ = s.feedSource.Close()
	}
	if err := s.Cache.Close(); err != nil {
		s.Log.Warn("service: cache close failed", zap.Error(err))
	}
	if err := s.Store.Close(); err != nil {
		s.Log.Warn("service: store close failed", zap.Error(err))
	}

	s.Log.Info("service: shutdown complete")
	return nil
}
