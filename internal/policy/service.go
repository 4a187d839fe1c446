package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/travelintel/dealengine/internal/cache"
	"github.com/travelintel/dealengine/internal/ierrors"
	"github.com/travelintel/dealengine/internal/obs"
	"github.com/travelintel/dealengine/internal/store"
)

const explanationCacheTTL = 10 * time.Minute

// AnswerResult is the cache-serializable shape of a policy answer,
// matching the {answer, sources[]} response the HTTP surface returns.
type AnswerResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Service is the cache-backed explanation/policy-answer layer:
// free-text policy questions resolve through the static
// knowledge base, and deal explanations are cached since the
// underlying Deal rarely changes between requests.
type Service struct {
	explainer *Explainer
	cache     cache.Cache
	log       *obs.Logger
	met       *obs.Metrics
}

func NewService(st store.Store, c cache.Cache, log *obs.Logger, met *obs.Metrics) *Service {
	return &Service{explainer: NewExplainer(st), cache: c, log: log, met: met}
}

// AnswerQuestion resolves a free-text policy question. Answers are
// pure functions of the question text, so they're cached keyed on the
// question itself.
func (s *Service) AnswerQuestion(ctx context.Context, question string) (AnswerResult, bool, error) {
	key := fmt.Sprintf("policy:answer:%s", question)
	if s.cache != nil {
		if raw, hit, err := s.cache.Get(ctx, key); err == nil && hit {
			s.log.CacheOp("policy_answer_get", key, true, nil)
			if s.met != nil {
				s.met.CacheHits.Inc()
			}
			var r AnswerResult
			if json.Unmarshal(raw, &r) == nil {
				return r, true, nil
			}
		} else if s.met != nil {
			s.met.CacheMisses.Inc()
		}
	}

	answer, sources, ok := Answer(question)
	if !ok {
		return AnswerResult{}, false, nil
	}
	result := AnswerResult{Answer: answer, Sources: sources}

	if s.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, data, explanationCacheTTL); err != nil {
				s.log.CacheOp("policy_answer_set", key, false, err)
			}
		}
	}
	return result, true, nil
}

// ExplainDeal resolves a Deal's explanation, cached keyed on deal ID
// and the deal's current UpdatedAt so a re-scored deal invalidates
// itself on the next lookup instead of serving a stale explanation.
func (s *Service) ExplainDeal(ctx context.Context, dealID string) (*Explanation, error) {
	d, err := s.explainer.store.GetDeal(ctx, dealID)
	if err != nil {
		if s.met != nil {
			s.met.StoreErrors.WithLabelValues("get_deal", "not_found").Inc()
		}
		return nil, ierrors.NotFound("policy.explain_deal", dealID)
	}

	key := fmt.Sprintf("policy:explain:%s:%d", dealID, d.UpdatedAt.UnixNano())
	if s.cache != nil {
		if raw, hit, cerr := s.cache.Get(ctx, key); cerr == nil && hit {
			s.log.CacheOp("policy_explain_get", key, true, nil)
			if s.met != nil {
				s.met.CacheHits.Inc()
			}
			var exp Explanation
			if json.Unmarshal(raw, &exp) == nil {
				return &exp, nil
			}
		} else if s.met != nil {
			s.met.CacheMisses.Inc()
		}
	}

	exp, err := s.explainer.Explain(ctx, dealID)
	if err != nil {
		return nil, ierrors.NotFound("policy.explain_deal", dealID)
	}

	if s.cache != nil {
		if data, merr := json.Marshal(exp); merr == nil {
			if serr := s.cache.Set(ctx, key, data, explanationCacheTTL); serr != nil {
				s.log.CacheOp("policy_explain_set", key, false, serr)
			}
		}
	}
	return exp, nil
}
