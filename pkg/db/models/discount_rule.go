package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// DiscountRule grants a percentage discount on one product to a network
// and/or sub-network of clients. A rule with neither grouping set is inert.
type DiscountRule struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Network     *string         `gorm:"column:network"`
	SubNetwork  *string         `gorm:"column:sub_network"`
	ProductCode string          `gorm:"column:product_code;not null"`
	Percent     decimal.Decimal `gorm:"column:percent;type:numeric(6,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Scope derives the matching scope from which groupings the rule binds.
func (r DiscountRule) Scope() enums.RuleScope {
	hasNetwork := r.Network != nil && *r.Network != ""
	hasSubNetwork := r.SubNetwork != nil && *r.SubNetwork != ""
	switch {
	case hasNetwork && hasSubNetwork:
		return enums.RuleScopeNetworkAndSubNetwork
	case hasNetwork:
		return enums.RuleScopeNetwork
	case hasSubNetwork:
		return enums.RuleScopeSubNetwork
	default:
		return enums.RuleScopeInert
	}
}

// TableName overrides the default pluralization.
func (DiscountRule) TableName() string {
	return "discount_rules"
}
