package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
)

// User is an authenticated operator of the approval workflow.
type User struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string          `gorm:"column:code;uniqueIndex;not null"`
	Name         string          `gorm:"column:name;not null"`
	Email        string          `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	Role         enums.ActorRole `gorm:"column:role;type:text;not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (User) TableName() string {
	return "users"
}
