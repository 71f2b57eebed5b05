package refdata

import (
	"context"

	"gorm.io/gorm"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

// Repository defines persistence operations for the reference data tables:
// clients, products and discount rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindClientByCode(ctx context.Context, code string) (*models.Client, error)
	ListClientsBySubNetwork(ctx context.Context, subNetwork string) ([]models.Client, error)
	ListClients(ctx context.Context, params pagination.Params, filters ClientFilters) (*ClientList, error)
	UpsertClients(ctx context.Context, clients []models.Client) error

	FindProductByCode(ctx context.Context, code string) (*models.Product, error)
	ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error)
	UpsertProducts(ctx context.Context, products []models.Product) error

	ListRulesForProduct(ctx context.Context, productCode string) ([]models.DiscountRule, error)
	ListRules(ctx context.Context) ([]models.DiscountRule, error)
	ReplaceRules(ctx context.Context, rules []models.DiscountRule) error
}
