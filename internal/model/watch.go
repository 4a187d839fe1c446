package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PriceWatch is a user-registered threshold on a specific deal. At
// least one of PriceThreshold/InventoryThreshold must be set.
type PriceWatch struct {
	ID                 string `gorm:"primaryKey;column:watch_id"`
	UserID             string
	DealID             string
	PriceThreshold     *float64
	InventoryThreshold *int
	Active             bool
	LastNotified       *time.Time
	CreatedAt          time.Time
}

func (PriceWatch) TableName() string { return "price_watches" }

func (w *PriceWatch) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

// FiringReasons returns the list of threshold predicates that are true
// for the given current price/inventory; empty if none fire.
func (w *PriceWatch) FiringReasons(price float64, inventory *int) []string {
	var reasons []string
	if w.PriceThreshold != nil && price < *w.PriceThreshold {
		reasons = append(reasons, "price_below_threshold")
	}
	if w.InventoryThreshold != nil && inventory != nil && *inventory < *w.InventoryThreshold {
		reasons = append(reasons, "inventory_below_threshold")
	}
	return reasons
}

// ShouldThrottle reports whether a prior notification within window
// should suppress a new alert.
func (w *PriceWatch) ShouldThrottle(now time.Time, window time.Duration) bool {
	if w.LastNotified == nil {
		return false
	}
	return now.Sub(*w.LastNotified) < window
}
