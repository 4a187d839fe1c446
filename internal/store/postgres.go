package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/ierrors"
	"github.com/travelintel/dealengine/internal/model"
	"github.com/travelintel/dealengine/internal/obs"
)

// Postgres is the production Store backend: gorm over a pooled
// *sql.DB, with AutoMigrate-driven schema and raw-SQL index creation.
type Postgres struct {
	db  *gorm.DB
	log *obs.Logger
}

func NewPostgres(cfg config.StoreConfig, logger *obs.Logger) (*Postgres, error) {
	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      gormlogger.Warn,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, ierrors.Transient("store.connect", "failed to open postgres connection", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, ierrors.Permanent("store.connect", "failed to get underlying sql.DB", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, ierrors.Transient("store.connect", "failed to ping postgres", err)
	}

	p := &Postgres{db: db, log: logger}
	if err := p.autoMigrate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) autoMigrate() error {
	if err := p.db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		p.log.Warn("could not create uuid-ossp extension")
	}
	if err := p.db.AutoMigrate(
		&model.Deal{},
		&model.PriceHistoryPoint{},
		&model.PriceWatch{},
		&model.TripPlan{},
		&model.Conversation{},
		&model.UserPreference{},
	); err != nil {
		return ierrors.Permanent("store.migrate", "auto migrate failed", err)
	}
	return p.createIndexes()
}

func (p *Postgres) createIndexes() error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_deals_active ON deals(active)`,
		`CREATE INDEX IF NOT EXISTS idx_deals_type ON deals(type)`,
		`CREATE INDEX IF NOT EXISTS idx_deals_created_at ON deals(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_history_deal_id ON price_history_points(deal_id, recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_watches_active ON price_watches(active)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, created_at)`,
	}
	for _, s := range stmts {
		if err := p.db.Exec(s).Error; err != nil {
			return ierrors.Permanent("store.migrate", fmt.Sprintf("index creation failed: %s", s), err)
		}
	}
	return nil
}

func (p *Postgres) UpsertDeal(ctx context.Context, d *model.Deal) (bool, error) {
	return upsertDealTx(p.db.WithContext(ctx), d)
}

// UpsertDealWithHistory runs the deal upsert and the price-history
// append inside one transaction: a failure on either statement rolls
// both back, leaving the store as it was before the call.
func (p *Postgres) UpsertDealWithHistory(ctx context.Context, d *model.Deal, pt model.PriceHistoryPoint) (bool, error) {
	var inserted bool
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		inserted, txErr = upsertDealTx(tx, d)
		if txErr != nil {
			return txErr
		}
		return appendHistoryTx(tx, pt)
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func upsertDealTx(tx *gorm.DB, d *model.Deal) (bool, error) {
	var existing model.Deal
	err := tx.Where("deal_id = ?", d.ID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		d.Active = true
		d.CreatedAt = time.Now()
		d.UpdatedAt = d.CreatedAt
		if err := tx.Create(d).Error; err != nil {
			return false, ierrors.Transient("store.upsert_deal", "insert failed", err)
		}
		return true, nil
	}
	if err != nil {
		return false, ierrors.Transient("store.upsert_deal", "lookup failed", err)
	}

	d.CreatedAt = existing.CreatedAt
	d.Active = true
	d.UpdatedAt = time.Now()
	if err := tx.Model(&model.Deal{}).Where("deal_id = ?", d.ID).Updates(map[string]interface{}{
		"price":            d.Price,
		"original_price":   d.OriginalPrice,
		"avg_30d_price":    d.Avg30dPrice,
		"discount_percent": d.DiscountPercent,
		"score":            d.Score,
		"tags":             d.TagsJSON,
		"metadata":         d.MetadataJSON,
		"updated_at":       d.UpdatedAt,
	}).Error; err != nil {
		return false, ierrors.Transient("store.upsert_deal", "update failed", err)
	}
	return false, nil
}

func (p *Postgres) GetDeal(ctx context.Context, dealID string) (*model.Deal, error) {
	var d model.Deal
	err := p.db.WithContext(ctx).Where("deal_id = ?", dealID).First(&d).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ierrors.NotFound("store.get_deal", dealID)
	}
	if err != nil {
		return nil, ierrors.Transient("store.get_deal", "query failed", err)
	}
	return &d, nil
}

func (p *Postgres) ListActiveDeals(ctx context.Context, dealType model.DealType) ([]model.Deal, error) {
	q := p.db.WithContext(ctx).Where("active = ?", true)
	if dealType != "" {
		q = q.Where("type = ?", dealType)
	}
	var deals []model.Deal
	if err := q.Find(&deals).Error; err != nil {
		return nil, ierrors.Transient("store.list_active_deals", "query failed", err)
	}
	return deals, nil
}

func (p *Postgres) ListDealsCreatedSince(ctx context.Context, since time.Time) ([]model.Deal, error) {
	var deals []model.Deal
	err := p.db.WithContext(ctx).Where("created_at >= ? AND active = ?", since, true).Find(&deals).Error
	if err != nil {
		return nil, ierrors.Transient("store.list_deals_since", "query failed", err)
	}
	return deals, nil
}

func (p *Postgres) DeactivateDeal(ctx context.Context, dealID string) error {
	err := p.db.WithContext(ctx).Model(&model.Deal{}).Where("deal_id = ?", dealID).Update("active", false).Error
	if err != nil {
		return ierrors.Transient("store.deactivate_deal", "update failed", err)
	}
	return nil
}

func (p *Postgres) AppendPriceHistory(ctx context.Context, pt model.PriceHistoryPoint) error {
	return appendHistoryTx(p.db.WithContext(ctx), pt)
}

func appendHistoryTx(tx *gorm.DB, pt model.PriceHistoryPoint) error {
	if pt.RecordedAt.IsZero() {
		pt.RecordedAt = time.Now()
	}
	if err := tx.Create(&pt).Error; err != nil {
		return ierrors.Transient("store.append_history", "insert failed", err)
	}
	return nil
}

func (p *Postgres) PriceHistory(ctx context.Context, dealID string, since time.Time) ([]model.PriceHistoryPoint, error) {
	var points []model.PriceHistoryPoint
	err := p.db.WithContext(ctx).Where("deal_id = ? AND recorded_at >= ?", dealID, since).
		Order("recorded_at asc").Find(&points).Error
	if err != nil {
		return nil, ierrors.Transient("store.price_history", "query failed", err)
	}
	return points, nil
}

func (p *Postgres) LatestPriceHistory(ctx context.Context, dealID string) (*model.PriceHistoryPoint, error) {
	var pt model.PriceHistoryPoint
	err := p.db.WithContext(ctx).Where("deal_id = ?", dealID).
		Order("recorded_at desc").First(&pt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ierrors.NotFound("store.latest_price_history", dealID)
		}
		return nil, ierrors.Transient("store.latest_price_history", "query failed", err)
	}
	return &pt, nil
}

func (p *Postgres) CreateWatch(ctx context.Context, w *model.PriceWatch) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	w.Active = true
	if err := p.db.WithContext(ctx).Create(w).Error; err != nil {
		return ierrors.Transient("store.create_watch", "insert failed", err)
	}
	return nil
}

func (p *Postgres) ListActiveWatches(ctx context.Context) ([]model.PriceWatch, error) {
	var watches []model.PriceWatch
	if err := p.db.WithContext(ctx).Where("active = ?", true).Find(&watches).Error; err != nil {
		return nil, ierrors.Transient("store.list_active_watches", "query failed", err)
	}
	return watches, nil
}

func (p *Postgres) UpdateWatchNotified(ctx context.Context, watchID string, at time.Time) error {
	err := p.db.WithContext(ctx).Model(&model.PriceWatch{}).Where("watch_id = ?", watchID).Update("last_notified", at).Error
	if err != nil {
		return ierrors.Transient("store.update_watch_notified", "update failed", err)
	}
	return nil
}

func (p *Postgres) DeactivateWatch(ctx context.Context, watchID string) error {
	err := p.db.WithContext(ctx).Model(&model.PriceWatch{}).Where("watch_id = ?", watchID).Update("active", false).Error
	if err != nil {
		return ierrors.Transient("store.deactivate_watch", "update failed", err)
	}
	return nil
}

func (p *Postgres) DeleteWatch(ctx context.Context, watchID string) error {
	if err := p.db.WithContext(ctx).Where("watch_id = ?", watchID).Delete(&model.PriceWatch{}).Error; err != nil {
		return ierrors.Transient("store.delete_watch", "delete failed", err)
	}
	return nil
}

func (p *Postgres) ListWatchesForUser(ctx context.Context, userID string) ([]model.PriceWatch, error) {
	var watches []model.PriceWatch
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).Find(&watches).Error; err != nil {
		return nil, ierrors.Transient("store.list_watches_for_user", "query failed", err)
	}
	return watches, nil
}

func (p *Postgres) SaveTripPlan(ctx context.Context, plan *model.TripPlan) error {
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now()
	}
	if err := p.db.WithContext(ctx).Create(plan).Error; err != nil {
		return ierrors.Transient("store.save_trip_plan", "insert failed", err)
	}
	return nil
}

func (p *Postgres) AppendConversation(ctx context.Context, c *model.Conversation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if err := p.db.WithContext(ctx).Create(c).Error; err != nil {
		return ierrors.Transient("store.append_conversation", "insert failed", err)
	}
	return nil
}

func (p *Postgres) RecentConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	var rows []model.Conversation
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, ierrors.Transient("store.recent_conversations", "query failed", err)
	}
	return rows, nil
}

func (p *Postgres) GetUserPreference(ctx context.Context, userID string) (*model.UserPreference, error) {
	var pref model.UserPreference
	err := p.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ierrors.NotFound("store.get_user_preference", userID)
	}
	if err != nil {
		return nil, ierrors.Transient("store.get_user_preference", "query failed", err)
	}
	return &pref, nil
}

func (p *Postgres) SaveUserPreference(ctx context.Context, pref *model.UserPreference) error {
	pref.UpdatedAt = time.Now()
	err := p.db.WithContext(ctx).Save(pref).Error
	if err != nil {
		return ierrors.Transient("store.save_user_preference", "upsert failed", err)
	}
	return nil
}

func (p *Postgres) PruneOlderThan(ctx context.Context, cutoff time.Time) error {
	if err := p.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.TripPlan{}).Error; err != nil {
		return ierrors.Transient("store.prune", "trip plan prune failed", err)
	}
	if err := p.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.Conversation{}).Error; err != nil {
		return ierrors.Transient("store.prune", "conversation prune failed", err)
	}
	return nil
}

func (p *Postgres) HealthCheck(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return ierrors.Permanent("store.health", "no underlying sql.DB", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return ierrors.Transient("store.health", "ping failed", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
