package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product carries the catalog identity plus the three boundary price tiers.
// A nil tier disables the corresponding boundary check.
type Product struct {
	Code             string           `gorm:"column:code;primaryKey"`
	FreeCode         string           `gorm:"column:free_code;not null;default:''"`
	Name             string           `gorm:"column:name;not null"`
	MinimumPrice     *decimal.Decimal `gorm:"column:minimum_price;type:numeric(12,2)"`
	MaximumPrice     *decimal.Decimal `gorm:"column:maximum_price;type:numeric(12,2)"`
	PromotionalPrice *decimal.Decimal `gorm:"column:promotional_price;type:numeric(12,2)"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Product) TableName() string {
	return "products"
}
