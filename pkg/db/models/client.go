package models

import (
	"time"

	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
)

// Client is an immutable reference-data record describing a commercial account.
type Client struct {
	Code            string              `gorm:"column:code;primaryKey"`
	Name            string              `gorm:"column:name;not null"`
	Network         string              `gorm:"column:network;not null"`
	SubNetwork      *string             `gorm:"column:sub_network"`
	SalesChannel    string              `gorm:"column:sales_channel;not null"`
	Segment         enums.ClientSegment `gorm:"column:segment;type:text;not null"`
	SalespersonCode string              `gorm:"column:salesperson_code;not null"`
	SupervisorCode  string              `gorm:"column:supervisor_code;not null"`
	SupervisorName  string              `gorm:"column:supervisor_name;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Client) TableName() string {
	return "clients"
}
