package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// PriceRequest is the unit of work flowing through the approval state machine.
// Records are never hard-deleted; cancellation is a terminal status.
type PriceRequest struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID            *uuid.UUID          `gorm:"column:batch_id;type:uuid;index"`
	RequesterCode      string              `gorm:"column:requester_code;not null;index"`
	ClientCode         string              `gorm:"column:client_code;not null"`
	SupervisorCode     string              `gorm:"column:supervisor_code;not null;index"`
	ProductCode        string              `gorm:"column:product_code;not null"`
	RequestedPrice     decimal.Decimal     `gorm:"column:requested_price;type:numeric(12,2);not null"`
	Quantity           int                 `gorm:"column:quantity;not null"`
	Justification      string              `gorm:"column:justification;not null"`
	Currency           enums.Currency      `gorm:"column:currency;type:text;not null;default:'BRL'"`
	Status             enums.RequestStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	RequiresEscalation bool                `gorm:"column:requires_escalation;not null;default:false"`
	DiscountPercent    *decimal.Decimal    `gorm:"column:discount_percent;type:numeric(6,2)"`
	DiscountedPrice    *decimal.Decimal    `gorm:"column:discounted_price;type:numeric(12,2)"`
	SupervisorNote     *string             `gorm:"column:supervisor_note"`
	DecisionNote       *string             `gorm:"column:decision_note"`
	ApproverCode       *string             `gorm:"column:approver_code"`
	DecidedAt          *time.Time          `gorm:"column:decided_at"`
	CancelRequested    bool                `gorm:"column:cancel_requested;not null;default:false"`
	CancelReason       *string             `gorm:"column:cancel_reason"`
	CancelRequestedAt  *time.Time          `gorm:"column:cancel_requested_at"`
	CancelledAt        *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (PriceRequest) TableName() string {
	return "price_requests"
}
