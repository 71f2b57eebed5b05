package refdata

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reference data repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindClientByCode(ctx context.Context, code string) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *repository) ListClientsBySubNetwork(ctx context.Context, subNetwork string) ([]models.Client, error) {
	var clients []models.Client
	err := r.db.WithContext(ctx).
		Where("sub_network = ?", subNetwork).
		Order("code ASC").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repository) ListClients(ctx context.Context, params pagination.Params, filters ClientFilters) (*ClientList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Client{})
	if filters.Network != "" {
		qb = qb.Where("network = ?", filters.Network)
	}
	if filters.SubNetwork != "" {
		qb = qb.Where("sub_network = ?", filters.SubNetwork)
	}
	if filters.Segment != nil {
		qb = qb.Where("segment = ?", *filters.Segment)
	}
	if filters.SupervisorCode != "" {
		qb = qb.Where("supervisor_code = ?", filters.SupervisorCode)
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(code) LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND code < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.Key)
	}

	var clients []models.Client
	err = qb.Order("created_at DESC").Order("code DESC").
		Limit(pageSize + 1).
		Find(&clients).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(clients) > pageSize {
		clients = clients[:pageSize]
		last := clients[len(clients)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, Key: last.Code})
	}
	return &ClientList{Clients: clients, NextCursor: nextCursor}, nil
}

func (r *repository) UpsertClients(ctx context.Context, clients []models.Client) error {
	if len(clients) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "network", "sub_network", "sales_channel", "segment", "salesperson_code", "supervisor_code", "supervisor_name", "updated_at"}),
		}).
		Create(&clients).Error
}

func (r *repository) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListProducts(ctx context.Context, params pagination.Params, filters ProductFilters) (*ProductList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(free_code) LIKE ?)", pattern, pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND code < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.Key)
	}

	var products []models.Product
	err = qb.Order("created_at DESC").Order("code DESC").
		Limit(pageSize + 1).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(products) > pageSize {
		products = products[:pageSize]
		last := products[len(products)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, Key: last.Code})
	}
	return &ProductList{Products: products, NextCursor: nextCursor}, nil
}

func (r *repository) UpsertProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"free_code", "name", "minimum_price", "maximum_price", "promotional_price", "updated_at"}),
		}).
		Create(&products).Error
}

func (r *repository) ListRulesForProduct(ctx context.Context, productCode string) ([]models.DiscountRule, error) {
	var rules []models.DiscountRule
	err := r.db.WithContext(ctx).
		Where("product_code = ?", productCode).
		Order("created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repository) ListRules(ctx context.Context) ([]models.DiscountRule, error) {
	var rules []models.DiscountRule
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ReplaceRules swaps the whole rule table for the imported set. Rule files
// arrive as full snapshots, so partial merges would resurrect deleted rows.
func (r *repository) ReplaceRules(ctx context.Context, rules []models.DiscountRule) error {
	if err := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.DiscountRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rules).Error
}
