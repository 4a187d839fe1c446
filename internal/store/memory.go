package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/travelintel/dealengine/internal/ierrors"
	"github.com/travelintel/dealengine/internal/model"
)

// Memory is an in-memory Store used by component tests and local runs
// without a database, satisfying the same contract as Postgres.
type Memory struct {
	mu sync.Mutex

	deals         map[string]*model.Deal
	history       map[string][]model.PriceHistoryPoint
	watches       map[string]*model.PriceWatch
	plans         []model.TripPlan
	conversations []model.Conversation
	preferences   map[string]*model.UserPreference
}

func NewMemory() *Memory {
	return &Memory{
		deals:       make(map[string]*model.Deal),
		history:     make(map[string][]model.PriceHistoryPoint),
		watches:     make(map[string]*model.PriceWatch),
		preferences: make(map[string]*model.UserPreference),
	}
}

func (m *Memory) UpsertDeal(ctx context.Context, d *model.Deal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertDealLocked(d), nil
}

// UpsertDealWithHistory applies both writes under a single lock
// acquisition, matching the all-or-nothing contract the Postgres
// implementation provides via a transaction.
func (m *Memory) UpsertDealWithHistory(ctx context.Context, d *model.Deal, pt model.PriceHistoryPoint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := m.upsertDealLocked(d)
	m.appendHistoryLocked(pt)
	return inserted, nil
}

func (m *Memory) upsertDealLocked(d *model.Deal) bool {
	existing, ok := m.deals[d.ID]
	now := time.Now()
	if !ok {
		cp := *d
		cp.Active = true
		cp.CreatedAt = now
		cp.UpdatedAt = now
		m.deals[d.ID] = &cp
		return true
	}
	d.CreatedAt = existing.CreatedAt
	d.Active = true
	d.UpdatedAt = now
	cp := *d
	m.deals[d.ID] = &cp
	return false
}

func (m *Memory) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deals[dealID]
	if !ok {
		return nil, ierrors.NotFound("store.get_deal", dealID)
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) ListActiveDeals(ctx context.Context, dealType model.DealType) ([]model.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Deal
	for _, d := range m.deals {
		if !d.Active {
			continue
		}
		if dealType != "" && d.Type != dealType {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListDealsCreatedSince(ctx context.Context, since time.Time) ([]model.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Deal
	for _, d := range m.deals {
		if d.Active && !d.CreatedAt.Before(since) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *Memory) DeactivateDeal(ctx context.Context, dealID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deals[dealID]; ok {
		d.Active = false
	}
	return nil
}

func (m *Memory) AppendPriceHistory(ctx context.Context, pt model.PriceHistoryPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendHistoryLocked(pt)
	return nil
}

func (m *Memory) appendHistoryLocked(pt model.PriceHistoryPoint) {
	if pt.RecordedAt.IsZero() {
		pt.RecordedAt = time.Now()
	}
	m.history[pt.DealID] = append(m.history[pt.DealID], pt)
}

func (m *Memory) PriceHistory(ctx context.Context, dealID string, since time.Time) ([]model.PriceHistoryPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PriceHistoryPoint
	for _, p := range m.history[dealID] {
		if !p.RecordedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) LatestPriceHistory(ctx context.Context, dealID string) (*model.PriceHistoryPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	points := m.history[dealID]
	if len(points) == 0 {
		return nil, ierrors.NotFound("store.latest_price_history", dealID)
	}
	latest := points[0]
	for _, p := range points[1:] {
		if p.RecordedAt.After(latest.RecordedAt) {
			latest = p
		}
	}
	return &latest, nil
}

func (m *Memory) CreateWatch(ctx context.Context, w *model.PriceWatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	w.Active = true
	cp := *w
	m.watches[w.ID] = &cp
	return nil
}

func (m *Memory) ListActiveWatches(ctx context.Context) ([]model.PriceWatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PriceWatch
	for _, w := range m.watches {
		if w.Active {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *Memory) UpdateWatchNotified(ctx context.Context, watchID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.watches[watchID]; ok {
		t := at
		w.LastNotified = &t
	}
	return nil
}

func (m *Memory) DeactivateWatch(ctx context.Context, watchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.watches[watchID]; ok {
		w.Active = false
	}
	return nil
}

func (m *Memory) DeleteWatch(ctx context.Context, watchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watches, watchID)
	return nil
}

func (m *Memory) ListWatchesForUser(ctx context.Context, userID string) ([]model.PriceWatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PriceWatch
	for _, w := range m.watches {
		if w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *Memory) SaveTripPlan(ctx context.Context, p *model.TripPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.plans = append(m.plans, *p)
	return nil
}

func (m *Memory) AppendConversation(ctx context.Context, c *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	m.conversations = append(m.conversations, *c)
	return nil
}

func (m *Memory) RecentConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.Conversation
	for i := len(m.conversations) - 1; i >= 0; i-- {
		if m.conversations[i].UserID == userID {
			matched = append(matched, m.conversations[i])
			if len(matched) == limit {
				break
			}
		}
	}
	return matched, nil
}

func (m *Memory) GetUserPreference(ctx context.Context, userID string) (*model.UserPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.preferences[userID]
	if !ok {
		return nil, ierrors.NotFound("store.get_user_preference", userID)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) SaveUserPreference(ctx context.Context, p *model.UserPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = time.Now()
	cp := *p
	m.preferences[p.UserID] = &cp
	return nil
}

func (m *Memory) PruneOlderThan(ctx context.Context, cutoff time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var plans []model.TripPlan
	for _, p := range m.plans {
		if p.CreatedAt.After(cutoff) {
			plans = append(plans, p)
		}
	}
	m.plans = plans

	var convos []model.Conversation
	for _, c := range m.conversations {
		if c.CreatedAt.After(cutoff) {
			convos = append(convos, c)
		}
	}
	m.conversations = convos
	return nil
}

func (m *Memory) HealthCheck(ctx context.Context) error { return nil }
func (m *Memory) Close() error                          { return nil }
