package model

import "time"

// PriceHistoryPoint is an append-only observation of a deal's price
// (and optionally its inventory) at a point in time.
type PriceHistoryPoint struct {
	ID                 uint `gorm:"primaryKey;autoIncrement"`
	DealID             string
	Price              float64
	AvailableInventory *int
	RecordedAt         time.Time
}

func (PriceHistoryPoint) TableName() string { return "price_history_points" }

// Average30d computes the arithmetic mean of points recorded within
// the last window days. If no points qualify it returns ok=false; the
// Scorer then falls back to the deal's current price.
func Average30d(points []PriceHistoryPoint, windowDays int, now time.Time) (avg float64, ok bool) {
	cutoff := now.AddDate(0, 0, -windowDays)
	var sum float64
	var n int
	for _, p := range points {
		if !p.RecordedAt.Before(cutoff) {
			sum += p.Price
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
