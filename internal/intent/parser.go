package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/cache"
	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/store"
)

// Parser is the intent parser: primary external-model
// call, post-hoc validation, deterministic fallback, Conversation
// logging, and a cache-aside layer keyed on the raw message. The
// external call is wrapped by a circuit breaker so a flapping
// text-model endpoint degrades to the fallback path quickly instead of
// timing out every request.
type Parser struct {
	client  TextModelClient
	cache   cache.Cache
	store   store.Store
	breaker *gobreaker.CircuitBreaker
	log     *obs.Logger
	met     *obs.Metrics
	cfg     config.IntentConfig
}

func New(client TextModelClient, c cache.Cache, st store.Store, log *obs.Logger, met *obs.Metrics, cfg config.IntentConfig) *Parser {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "text_model",
		MaxRequests: 3,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
	})
	return &Parser{client: client, cache: c, store: st, breaker: breaker, log: log, met: met, cfg: cfg}
}

// Parse resolves (intent, entities, confidence) for a user's message.
// On cache hit, the external call is skipped entirely. On cache miss,
// the primary path is attempted (unless no client is configured);
// failures, timeouts, or validation rejection fall back to the
// deterministic regex extractor. The outcome is written to the
// Conversation log and cached.
func (p *Parser) Parse(ctx context.Context, userID, message string, history []HistoryTurn) (Result, error) {
	key := cacheKey(message)
	if cached, ok := p.cacheGet(ctx, key); ok {
		cached.FromCache = true
		return cached, nil
	}

	result := p.resolve(ctx, message, history)

	convo := &model.Conversation{
		UserID:  userID,
		Message: message,
		Intent:  string(result.Intent),
	}
	entitiesJSON, _ := json.Marshal(result.Entities)
	var entitiesMap map[string]interface{}
	_ = json.Unmarshal(entitiesJSON, &entitiesMap)
	convo.SetEntities(entitiesMap)
	if err := p.store.AppendConversation(ctx, convo); err != nil {
		p.log.Warn("intent parser: failed to append conversation", zap.String("user_id", userID), zap.Error(err))
	}

	p.cacheSet(ctx, key, result)
	return result, nil
}

func (p *Parser) resolve(ctx context.Context, message string, history []HistoryTurn) Result {
	if p.client == nil {
		if p.met != nil {
			p.met.IntentFallbacks.Inc()
		}
		return Fallback(message)
	}

	raw, err := p.breaker.Execute(func() (interface{}, error) {
		callCtx := ctx
		var cancel context.CancelFunc
		if p.cfg.TextModelTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.cfg.TextModelTimeout)
			defer cancel()
		}
		return p.client.Parse(callCtx, message, history)
	})
	if err != nil {
		p.log.Warn("intent parser: primary path unavailable, using fallback", zap.Error(err))
		if p.met != nil {
			p.met.IntentFallbacks.Inc()
		}
		return Fallback(message)
	}

	result := raw.(Result)
	if !Validate(result, message) {
		p.log.Debug("intent parser: primary result failed validation, using fallback")
		if p.met != nil {
			p.met.IntentFallbacks.Inc()
		}
		return Fallback(message)
	}
	return result
}

func (p *Parser) cacheGet(ctx context.Context, key string) (Result, bool) {
	if p.cache == nil {
		return Result{}, false
	}
	raw, hit, err := p.cache.Get(ctx, key)
	if err != nil {
		p.log.CacheOp("intent_get", key, false, err)
		return Result{}, false
	}
	p.log.CacheOp("intent_get", key, hit, nil)
	if !hit {
		if p.met != nil {
			p.met.CacheMisses.Inc()
		}
		return Result{}, false
	}
	if p.met != nil {
		p.met.CacheHits.Inc()
	}
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return Result{}, false
	}
	return r, true
}

func (p *Parser) cacheSet(ctx context.Context, key string, r Result) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, data, p.cfg.CacheTTL); err != nil {
		p.log.CacheOp("intent_set", key, false, err)
	}
}

func cacheKey(message string) string {
	return fmt.Sprintf("intent:%x", hashString(message))
}

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
