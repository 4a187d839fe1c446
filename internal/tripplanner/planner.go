// Package tripplanner implements the trip-bundle composer: a fit-score
// search over the flight x hotel cross product with airport-group and
// city-name aliasing. Flight and hotel candidates load concurrently;
// bundle scoring is deterministic for a fixed deal set.
package tripplanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/travelintel/dealengine/internal/alias"
	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/store"
)

// Query is the caller-supplied search context for a trip-plan request.
type Query struct {
	UserID      string
	Origin      string
	Destination string
	Budget      *float64
	PartySize   int
	Preferences []string
	StartDate   *time.Time
	EndDate     *time.Time
}

// Bundle is one ranked (flight, hotel) pairing returned by Plan.
type Bundle struct {
	Flight    model.Deal
	Hotel     model.Deal
	TotalCost float64
	FitScore  float64
}

// Planner searches the flight x hotel cross product for the bundles
// that best fit a user's query.
type Planner struct {
	store store.Store
	cfg   config.PlannerConfig
}

func New(st store.Store, cfg config.PlannerConfig) *Planner {
	return &Planner{store: st, cfg: cfg}
}

// Plan loads active flights and hotels concurrently, filters by
// destination/city aliasing, forms the top-N x top-M cross product,
// scores each bundle's fit, and returns the top ResultCount bundles
// sorted by descending fit score. Returns a well-formed empty slice
// (never an error) when nothing qualifies; the HTTP boundary decides
// whether that surfaces as a 404.
func (p *Planner) Plan(ctx context.Context, q Query) ([]Bundle, error) {
	if q.PartySize <= 0 {
		q.PartySize = 1
	}

	var flights, hotels []model.Deal
	var flightErr, hotelErr error
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		flights, flightErr = p.store.ListActiveDeals(ctx, model.DealTypeFlight)
	}()
	go func() {
		defer wg.Done()
		hotels, hotelErr = p.store.ListActiveDeals(ctx, model.DealTypeHotel)
	}()
	wg.Wait()

	if flightErr != nil {
		return nil, flightErr
	}
	if hotelErr != nil {
		return nil, hotelErr
	}

	flights = filterFlights(flights, q)
	hotels = filterHotels(hotels, q)

	sort.Slice(flights, func(i, j int) bool { return flights[i].Score > flights[j].Score })
	sort.Slice(hotels, func(i, j int) bool { return hotels[i].Score > hotels[j].Score })

	topFlights := p.cfg.TopFlights
	if topFlights <= 0 {
		topFlights = 10
	}
	topHotels := p.cfg.TopHotels
	if topHotels <= 0 {
		topHotels = 5
	}
	if len(flights) > topFlights {
		flights = flights[:topFlights]
	}
	if len(hotels) > topHotels {
		hotels = hotels[:topHotels]
	}

	nights := nightsFor(q)

	bundles := make([]Bundle, 0, len(flights)*len(hotels))
	for _, f := range flights {
		for _, h := range hotels {
			total := totalCost(f.Price, h.Price, q.PartySize, nights)
			bundles = append(bundles, Bundle{
				Flight:    f,
				Hotel:     h,
				TotalCost: total,
				FitScore:  FitScore(total, q.Budget, q.Preferences, f, h),
			})
		}
	}

	sort.Slice(bundles, func(i, j int) bool { return bundles[i].FitScore > bundles[j].FitScore })

	resultCount := p.cfg.ResultCount
	if resultCount <= 0 {
		resultCount = 3
	}
	if len(bundles) > resultCount {
		bundles = bundles[:resultCount]
	}
	return bundles, nil
}

// totalCost sums flight and hotel cost through shopspring/decimal
// rather than raw float64 multiplication, avoiding the cent-level
// drift that accumulates across party size and night count before the
// result is persisted as a TripPlan's total_cost.
func totalCost(flightPrice, hotelPrice float64, partySize, nights int) float64 {
	flightLeg := decimal.NewFromFloat(flightPrice).Mul(decimal.NewFromInt(int64(partySize)))
	hotelLeg := decimal.NewFromFloat(hotelPrice).Mul(decimal.NewFromInt(int64(nights)))
	total, _ := flightLeg.Add(hotelLeg).Round(2).Float64()
	return total
}

func nightsFor(q Query) int {
	if q.StartDate != nil && q.EndDate != nil {
		nights := int(q.EndDate.Sub(*q.StartDate).Hours() / 24)
		if nights > 0 {
			return nights
		}
	}
	return 1
}

func filterFlights(flights []model.Deal, q Query) []model.Deal {
	if q.Destination == "" {
		return flights
	}
	allowed := make(map[string]struct{})
	for _, code := range alias.ExpandDestination(q.Destination) {
		allowed[code] = struct{}{}
	}
	var out []model.Deal
	for _, f := range flights {
		dest := f.MetadataString("destination")
		if _, ok := allowed[dest]; ok {
			out = append(out, f)
		}
	}
	return out
}

func filterHotels(hotels []model.Deal, q Query) []model.Deal {
	if q.Destination == "" {
		return hotels
	}
	var out []model.Deal
	for _, h := range hotels {
		if alias.CityMatchesDestination(h.MetadataString("city"), q.Destination) {
			out = append(out, h)
		}
	}
	return out
}

// FitScore computes the 0-100 bundle suitability score: budget
// sub-score (<=40), preferences sub-score (<=35), convenience
// sub-score (<=25).
func FitScore(total float64, budget *float64, preferences []string, f, h model.Deal) float64 {
	score := budgetSubScore(total, budget)
	score += preferencesSubScore(preferences, f, h)
	score += convenienceSubScore(f, h)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func budgetSubScore(total float64, budget *float64) float64 {
	if budget == nil || *budget <= 0 {
		return 20
	}
	b := *budget
	switch {
	case total <= 0.8*b:
		return 40
	case total <= b:
		return 30
	case total <= 1.1*b:
		return 15
	default:
		return 0
	}
}

func preferencesSubScore(preferences []string, f, h model.Deal) float64 {
	if len(preferences) == 0 {
		return 0
	}
	tagSet := make(map[string]struct{})
	for _, t := range f.Tags() {
		tagSet[t] = struct{}{}
	}
	for _, t := range h.Tags() {
		tagSet[t] = struct{}{}
	}
	matched := 0
	for _, pref := range preferences {
		if _, ok := tagSet[pref]; ok {
			matched++
		}
	}
	frac := float64(matched) / float64(len(preferences))
	return frac * 35
}

var convenienceAmenities = []string{"near-transit", "downtown", "airport-shuttle"}

func convenienceSubScore(f, h model.Deal) float64 {
	tagSet := make(map[string]struct{})
	for _, t := range f.Tags() {
		tagSet[t] = struct{}{}
	}
	for _, t := range h.Tags() {
		tagSet[t] = struct{}{}
	}
	matched := 0
	for _, a := range convenienceAmenities {
		if _, ok := tagSet[a]; ok {
			matched++
		}
	}
	score := float64(matched) * 8
	if score > 25 {
		score = 25
	}
	return score
}
