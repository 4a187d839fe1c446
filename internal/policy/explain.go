package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/store"
)

// Explanation is the narrative companion to a Deal's numeric score:
// a human-readable reason, a price-trend summary, a recommendation
// sentence, and a handful of comparable deals. It backs the
// /deals/{id}/explain endpoint.
type Explanation struct {
	DealID         string   `json:"deal_id"`
	Explanation    string   `json:"explanation"`
	PriceAnalysis  string   `json:"price_analysis"`
	Recommendation string   `json:"recommendation"`
	Comparison     []string `json:"comparison"`
}

// Explainer builds deal Explanations from the persisted Deal and its
// price history, same store.Store used by the pipeline and planner.
type Explainer struct {
	store store.Store
}

func NewExplainer(st store.Store) *Explainer {
	return &Explainer{store: st}
}

// Explain composes a deal's explanation. Price analysis draws on the
// 30-day rolling average already persisted on the Deal; the
// recommendation reads the deal's score tier; comparison lists up to
// three other active deals of the same type, ranked by score.
func (e *Explainer) Explain(ctx context.Context, dealID string) (*Explanation, error) {
	d, err := e.store.GetDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}

	exp := &Explanation{
		DealID:         d.ID,
		Explanation:    explainText(d),
		PriceAnalysis:  priceAnalysisText(d),
		Recommendation: recommendationText(d),
	}

	others, err := e.store.ListActiveDeals(ctx, d.Type)
	if err == nil {
		exp.Comparison = comparisonText(d, others)
	}

	return exp, nil
}

func explainText(d *model.Deal) string {
	if d.DiscountPercent <= 0 {
		return fmt.Sprintf("%s is priced at list; no discount is currently applied.", d.Title)
	}
	return fmt.Sprintf("%s is %.0f%% below its original price of $%.2f, now listed at $%.2f.",
		d.Title, d.DiscountPercent, d.OriginalPrice, d.Price)
}

func priceAnalysisText(d *model.Deal) string {
	if d.Avg30dPrice <= 0 {
		return "Not enough price history to compare against the 30-day average yet."
	}
	if model.IsDealFlagged(d.Price, d.Avg30dPrice) {
		savings := d.Avg30dPrice - d.Price
		return fmt.Sprintf("Current price of $%.2f is %.0f%% below the 30-day average of $%.2f, a savings of $%.2f.",
			d.Price, (savings/d.Avg30dPrice)*100, d.Avg30dPrice, savings)
	}
	return fmt.Sprintf("Current price of $%.2f is close to the 30-day average of $%.2f.", d.Price, d.Avg30dPrice)
}

func recommendationText(d *model.Deal) string {
	switch {
	case d.Score >= 80:
		return "This is an exceptional deal — book soon, prices this low rarely last."
	case d.Score >= 60:
		return "This is a solid deal worth considering."
	case d.Score >= 40:
		return "This deal is fair but not exceptional; worth a look if the timing fits."
	default:
		return "This deal is close to typical pricing; no urgency to book."
	}
}

func comparisonText(d *model.Deal, others []model.Deal) []string {
	filtered := make([]model.Deal, 0, len(others))
	for _, o := range others {
		if o.ID != d.ID {
			filtered = append(filtered, o)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })

	max := 3
	if len(filtered) < max {
		max = len(filtered)
	}
	out := make([]string, 0, max)
	for i := 0; i < max; i++ {
		o := filtered[i]
		out = append(out, fmt.Sprintf("%s — $%.2f (score %.0f)", o.Title, o.Price, o.Score))
	}
	return out
}
