// Package store defines the durable persistence contract for deals,
// price history, watches, trip plans, conversations, and user
// preferences.
package store

import (
	"context"
	"time"

	"github.com/travelintel/dealengine/internal/model"
)

// Store is the persistence contract consumed by the pipeline,
// TripPlanner, IntentParser, WatchMonitor, and HotDealMonitor.
type Store interface {
	// Deals
	UpsertDeal(ctx context.Context, d *model.Deal) (inserted bool, err error)
	// UpsertDealWithHistory applies the deal upsert and the
	// price-history append as one atomic unit: on error neither is
	// persisted, so the caller can safely retry the whole message.
	UpsertDealWithHistory(ctx context.Context, d *model.Deal, pt model.PriceHistoryPoint) (inserted bool, err error)
	GetDeal(ctx context.Context, dealID string) (*model.Deal, error)
	ListActiveDeals(ctx context.Context, dealType model.DealType) ([]model.Deal, error)
	ListDealsCreatedSince(ctx context.Context, since time.Time) ([]model.Deal, error)
	DeactivateDeal(ctx context.Context, dealID string) error

	// Price history
	AppendPriceHistory(ctx context.Context, p model.PriceHistoryPoint) error
	PriceHistory(ctx context.Context, dealID string, since time.Time) ([]model.PriceHistoryPoint, error)
	LatestPriceHistory(ctx context.Context, dealID string) (*model.PriceHistoryPoint, error)

	// Watches
	CreateWatch(ctx context.Context, w *model.PriceWatch) error
	ListActiveWatches(ctx context.Context) ([]model.PriceWatch, error)
	UpdateWatchNotified(ctx context.Context, watchID string, at time.Time) error
	DeactivateWatch(ctx context.Context, watchID string) error
	DeleteWatch(ctx context.Context, watchID string) error
	ListWatchesForUser(ctx context.Context, userID string) ([]model.PriceWatch, error)

	// Trip plans
	SaveTripPlan(ctx context.Context, p *model.TripPlan) error

	// Conversations
	AppendConversation(ctx context.Context, c *model.Conversation) error
	RecentConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error)

	// User preferences
	GetUserPreference(ctx context.Context, userID string) (*model.UserPreference, error)
	SaveUserPreference(ctx context.Context, p *model.UserPreference) error

	// Maintenance
	PruneOlderThan(ctx context.Context, cutoff time.Time) error

	HealthCheck(ctx context.Context) error
	Close() error
}
