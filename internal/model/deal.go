// Package model holds the gorm-backed persisted types and the
// in-flight message variants that travel across bus topics.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DealType string

const (
	DealTypeFlight DealType = "flight"
	DealTypeHotel  DealType = "hotel"
)

// Deal is the canonical persisted record of a sellable travel offering.
// Metadata and Tags are stored as JSON text columns; callers interact
// with them exclusively through the typed accessors below so string
// blobs never leak past the Store boundary.
type Deal struct {
	ID              string `gorm:"primaryKey;column:deal_id"`
	Type            DealType
	Title           string
	Description     string
	Price           float64
	OriginalPrice   float64
	Avg30dPrice     float64
	DiscountPercent float64
	Score           float64
	TagsJSON        string `gorm:"column:tags;type:text"`
	MetadataJSON    string `gorm:"column:metadata;type:text"`
	ExpiresAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Active          bool
}

func (Deal) TableName() string { return "deals" }

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

func (d *Deal) Tags() []string {
	if d.TagsJSON == "" {
		return nil
	}
	var tags []string
	_ = json.Unmarshal([]byte(d.TagsJSON), &tags)
	return tags
}

func (d *Deal) SetTags(tags []string) {
	b, _ := json.Marshal(tags)
	d.TagsJSON = string(b)
}

func (d *Deal) HasTag(tag string) bool {
	for _, t := range d.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// Metadata unmarshals the JSON metadata blob into a generic map. Type
// specific field access goes through FlightMetadata/HotelMetadata.
func (d *Deal) Metadata() map[string]interface{} {
	if d.MetadataJSON == "" {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	_ = json.Unmarshal([]byte(d.MetadataJSON), &m)
	return m
}

func (d *Deal) SetMetadata(m map[string]interface{}) {
	b, _ := json.Marshal(m)
	d.MetadataJSON = string(b)
}

func (d *Deal) MetadataString(key string) string {
	v, _ := d.Metadata()[key].(string)
	return v
}

func (d *Deal) MetadataFloat(key string) float64 {
	switch v := d.Metadata()[key].(type) {
	case float64:
		return v
	}
	return 0
}

func (d *Deal) MetadataBool(key string) bool {
	v, _ := d.Metadata()[key].(bool)
	return v
}

// ComputeDiscountPercent applies the invariant from the data model:
// discount_percent = max(0, (original_price - price) / original_price * 100).
func ComputeDiscountPercent(price, originalPrice float64) float64 {
	if originalPrice <= 0 {
		return 0
	}
	pct := (originalPrice - price) / originalPrice * 100
	if pct < 0 {
		return 0
	}
	return pct
}

// IsDealFlagged implements the deal-flag rule: avg_30d_price > 0 and
// price <= 0.85 * avg_30d_price.
func IsDealFlagged(price, avg30d float64) bool {
	return avg30d > 0 && price <= 0.85*avg30d
}
