package requests

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

// Repository defines persistence operations for price requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.PriceRequest) (*models.PriceRequest, error)
	CreateMany(ctx context.Context, requests []models.PriceRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PriceRequest, error)
	FindByBatchID(ctx context.Context, batchID uuid.UUID) ([]models.PriceRequest, error)
	ExistsOpenForClientProduct(ctx context.Context, clientCode, productCode string) (bool, error)
	// UpdateGuarded applies updates only while every guard column still holds
	// its expected value, reporting whether a row was written. Transitions use
	// the current status as a guard so concurrent actors cannot double-decide.
	UpdateGuarded(ctx context.Context, id uuid.UUID, guards map[string]any, updates map[string]any) (bool, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*RequestList, error)
	CountByStatus(ctx context.Context, filters SummaryFilters) (map[string]int64, error)
}

// RefdataReader is the slice of the reference data repository the request
// pipeline needs: request context lookups, never imports.
type RefdataReader interface {
	FindClientByCode(ctx context.Context, code string) (*models.Client, error)
	ListClientsBySubNetwork(ctx context.Context, subNetwork string) ([]models.Client, error)
	FindProductByCode(ctx context.Context, code string) (*models.Product, error)
	ListRulesForProduct(ctx context.Context, productCode string) ([]models.DiscountRule, error)
}
