package requests

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a price request repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.PriceRequest) (*models.PriceRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) CreateMany(ctx context.Context, requests []models.PriceRequest) error {
	if len(requests) == 0 {
		return nil
	}
	for i := range requests {
		if requests[i].ID == uuid.Nil {
			requests[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&requests).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PriceRequest, error) {
	var request models.PriceRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindByBatchID(ctx context.Context, batchID uuid.UUID) ([]models.PriceRequest, error) {
	var requests []models.PriceRequest
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("client_code ASC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) ExistsOpenForClientProduct(ctx context.Context, clientCode, productCode string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PriceRequest{}).
		Where("client_code = ? AND product_code = ?", clientCode, productCode).
		Where("status IN ?", []enums.RequestStatus{enums.RequestStatusPending, enums.RequestStatusAwaitingManager}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) UpdateGuarded(ctx context.Context, id uuid.UUID, guards map[string]any, updates map[string]any) (bool, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.PriceRequest{}).
		Where("id = ?", id)
	for column, expected := range guards {
		qb = qb.Where(fmt.Sprintf("%s = ?", column), expected)
	}
	res := qb.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*RequestList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.PriceRequest{})
	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.RequesterCode != "" {
		qb = qb.Where("requester_code = ?", filters.RequesterCode)
	}
	if filters.SupervisorCode != "" {
		qb = qb.Where("supervisor_code = ?", filters.SupervisorCode)
	}
	if filters.ClientCode != "" {
		qb = qb.Where("client_code = ?", filters.ClientCode)
	}
	if filters.ProductCode != "" {
		qb = qb.Where("product_code = ?", filters.ProductCode)
	}
	if filters.BatchID != nil {
		qb = qb.Where("batch_id = ?", *filters.BatchID)
	}
	if filters.OnlyEscalated {
		qb = qb.Where("requires_escalation = ?", true).
			Where("status = ?", enums.RequestStatusPending)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.Key)
	}

	var requests []models.PriceRequest
	err = qb.Order("created_at DESC").Order("id DESC").
		Limit(pageSize + 1).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(requests) > pageSize {
		requests = requests[:pageSize]
		last := requests[len(requests)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, Key: last.ID.String()})
	}
	return &RequestList{Requests: requests, NextCursor: nextCursor}, nil
}

func (r *repository) CountByStatus(ctx context.Context, filters SummaryFilters) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Total  int64
	}

	qb := r.db.WithContext(ctx).
		Model(&models.PriceRequest{}).
		Select("status, COUNT(*) AS total").
		Group("status")
	if filters.RequesterCode != "" {
		qb = qb.Where("requester_code = ?", filters.RequesterCode)
	}
	if filters.SupervisorCode != "" {
		qb = qb.Where("supervisor_code = ?", filters.SupervisorCode)
	}

	var rows []statusCount
	if err := qb.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
