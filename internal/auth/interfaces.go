package auth

import (
	"context"

	"gorm.io/gorm"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
)

// Repository exposes the user credential storage operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, code string, active bool) (bool, error)
}
