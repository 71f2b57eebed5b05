package requests

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grupomeridio/pricedesk-backend/internal/boundary"
	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
)

// CreateRequestInput captures one price exception submission.
type CreateRequestInput struct {
	RequesterCode string
	ClientCode    string
	ProductCode   string
	Price         decimal.Decimal
	Quantity      int
	Justification string
	Currency      enums.Currency
}

// CreateBatchInput submits the same exception for every client of a
// sub-network in one shot.
type CreateBatchInput struct {
	RequesterCode string
	SubNetwork    string
	ProductCode   string
	Price         decimal.Decimal
	Quantity      int
	Justification string
	Currency      enums.Currency
}

// BatchMemberOutcome reports what happened to one sub-network member.
type BatchMemberOutcome struct {
	ClientCode string     `json:"client_code"`
	RequestID  *uuid.UUID `json:"request_id,omitempty"`
	Accepted   bool       `json:"accepted"`
	Reason     string     `json:"reason,omitempty"`
}

// BatchCreateResult is the per-member breakdown of a batch submission.
type BatchCreateResult struct {
	BatchID  uuid.UUID            `json:"batch_id"`
	Accepted int                  `json:"accepted"`
	Refused  int                  `json:"refused"`
	Outcomes []BatchMemberOutcome `json:"outcomes"`
}

// TransitionInput carries one actor-initiated state machine action. Exactly
// one of RequestID or BatchID must be set; a batch target applies the action
// to every member independently.
type TransitionInput struct {
	RequestID *uuid.UUID
	BatchID   *uuid.UUID
	Action    enums.TransitionAction
	ActorCode string
	ActorRole enums.ActorRole
	Note      string
}

// TransitionMemberOutcome reports the per-request result of a transition.
type TransitionMemberOutcome struct {
	RequestID uuid.UUID `json:"request_id"`
	Applied   bool      `json:"applied"`
	Reason    string    `json:"reason,omitempty"`
}

// TransitionResult summarizes a transition over one or many requests.
type TransitionResult struct {
	Applied  int                       `json:"applied"`
	Failed   int                       `json:"failed"`
	Outcomes []TransitionMemberOutcome `json:"outcomes"`
	Requests []models.PriceRequest     `json:"requests"`
}

// ListFilters describe the supported filter knobs for the request listing.
type ListFilters struct {
	Status         *enums.RequestStatus
	RequesterCode  string
	SupervisorCode string
	ClientCode     string
	ProductCode    string
	BatchID        *uuid.UUID
	// OnlyEscalated narrows to flagged submissions awaiting a supervisor.
	OnlyEscalated bool
}

// RequestList is one cursor page of price requests.
type RequestList struct {
	Requests   []models.PriceRequest `json:"requests"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// ListRequestsInput is the service-level listing call, scoped by actor.
type ListRequestsInput struct {
	ActorCode string
	ActorRole enums.ActorRole
	Filters   ListFilters
	Limit     int
	Cursor    string
}

// SummaryFilters narrow the status rollup to one actor's visibility.
type SummaryFilters struct {
	RequesterCode  string
	SupervisorCode string
}

// StatusSummary is the dashboard rollup of request counts by status.
type StatusSummary struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// Preview is the dry-run decision for a submission that was not persisted.
type Preview struct {
	Classification  boundary.Classification `json:"classification"`
	DiscountPercent *decimal.Decimal        `json:"discount_percent,omitempty"`
	DiscountedPrice *decimal.Decimal        `json:"discounted_price,omitempty"`
}
