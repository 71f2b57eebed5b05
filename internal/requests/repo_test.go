package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

func setupRequestsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS price_requests (
  id TEXT PRIMARY KEY,
  batch_id TEXT,
  requester_code TEXT NOT NULL,
  client_code TEXT NOT NULL,
  supervisor_code TEXT NOT NULL,
  product_code TEXT NOT NULL,
  requested_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  justification TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'BRL',
  status TEXT NOT NULL DEFAULT 'pending',
  requires_escalation INTEGER NOT NULL DEFAULT 0,
  discount_percent NUMERIC,
  discounted_price NUMERIC,
  supervisor_note TEXT,
  decision_note TEXT,
  approver_code TEXT,
  decided_at DATETIME,
  cancel_requested INTEGER NOT NULL DEFAULT 0,
  cancel_reason TEXT,
  cancel_requested_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM price_requests").Error)
	return db
}

func seedRequest(t *testing.T, repo Repository, status enums.RequestStatus, mutate func(*models.PriceRequest)) *models.PriceRequest {
	t.Helper()
	request := &models.PriceRequest{
		ID:             uuid.New(),
		RequesterCode:  "V010",
		ClientCode:     "C001",
		SupervisorCode: "S001",
		ProductCode:    "P1",
		RequestedPrice: decimal.RequireFromString("60"),
		Quantity:       10,
		Justification:  "cliente fechou volume anual com concorrente",
		Currency:       enums.CurrencyBRL,
		Status:         status,
	}
	if mutate != nil {
		mutate(request)
	}
	created, err := repo.Create(context.Background(), request)
	require.NoError(t, err)
	return created
}

func TestUpdateGuardedAppliesOnlyWhenGuardsHold(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := seedRequest(t, repo, enums.RequestStatusPending, nil)

	now := time.Now().UTC()
	ok, err := repo.UpdateGuarded(ctx, created.ID,
		map[string]any{"status": enums.RequestStatusPending},
		map[string]any{"status": enums.RequestStatusApproved, "approver_code": "S001", "decided_at": now})
	require.NoError(t, err)
	assert.True(t, ok)

	// Second writer lost the race: the guard no longer matches.
	ok, err = repo.UpdateGuarded(ctx, created.ID,
		map[string]any{"status": enums.RequestStatusPending},
		map[string]any{"status": enums.RequestStatusRejected})
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusApproved, reloaded.Status)
	require.NotNil(t, reloaded.ApproverCode)
	assert.Equal(t, "S001", *reloaded.ApproverCode)
}

func TestUpdateGuardedChecksEveryGuardColumn(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := seedRequest(t, repo, enums.RequestStatusApproved, func(r *models.PriceRequest) {
		r.CancelRequested = true
	})

	ok, err := repo.UpdateGuarded(ctx, created.ID,
		map[string]any{"status": enums.RequestStatusApproved, "cancel_requested": false},
		map[string]any{"cancel_requested": true})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExistsOpenForClientProduct(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedRequest(t, repo, enums.RequestStatusApproved, nil)
	open, err := repo.ExistsOpenForClientProduct(ctx, "C001", "P1")
	require.NoError(t, err)
	assert.False(t, open, "decided requests do not hold the slot")

	seedRequest(t, repo, enums.RequestStatusAwaitingManager, nil)
	open, err = repo.ExistsOpenForClientProduct(ctx, "C001", "P1")
	require.NoError(t, err)
	assert.True(t, open)

	open, err = repo.ExistsOpenForClientProduct(ctx, "C001", "P2")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestFindByBatchIDOrdersByClient(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	batchID := uuid.New()
	for _, code := range []string{"C003", "C001", "C002"} {
		clientCode := code
		seedRequest(t, repo, enums.RequestStatusPending, func(r *models.PriceRequest) {
			r.BatchID = &batchID
			r.ClientCode = clientCode
		})
	}

	members, err := repo.FindByBatchID(ctx, batchID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "C001", members[0].ClientCode)
	assert.Equal(t, "C003", members[2].ClientCode)
}

func TestListFiltersAndPaginates(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		idx := i
		created := seedRequest(t, repo, enums.RequestStatusPending, func(r *models.PriceRequest) {
			if idx%2 == 1 {
				r.RequesterCode = "V011"
			}
		})
		require.NoError(t, db.Model(&models.PriceRequest{}).
			Where("id = ?", created.ID).
			Update("created_at", base.Add(time.Duration(idx)*time.Minute)).Error)
	}

	status := enums.RequestStatusPending
	mine, err := repo.List(ctx, pagination.Params{Limit: 10}, ListFilters{Status: &status, RequesterCode: "V010"})
	require.NoError(t, err)
	assert.Len(t, mine.Requests, 2)

	first, err := repo.List(ctx, pagination.Params{Limit: 3}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, first.Requests, 3)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.List(ctx, pagination.Params{Limit: 3, Cursor: first.NextCursor}, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, second.Requests, 1)
	assert.Empty(t, second.NextCursor)
}

func TestListOnlyEscalated(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedRequest(t, repo, enums.RequestStatusPending, func(r *models.PriceRequest) {
		r.RequiresEscalation = true
	})
	seedRequest(t, repo, enums.RequestStatusPending, func(r *models.PriceRequest) {
		r.ClientCode = "C002"
	})

	flagged, err := repo.List(ctx, pagination.Params{}, ListFilters{OnlyEscalated: true})
	require.NoError(t, err)
	require.Len(t, flagged.Requests, 1)
	assert.True(t, flagged.Requests[0].RequiresEscalation)
}

func TestCountByStatus(t *testing.T) {
	db := setupRequestsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedRequest(t, repo, enums.RequestStatusPending, nil)
	seedRequest(t, repo, enums.RequestStatusPending, func(r *models.PriceRequest) { r.ClientCode = "C002" })
	seedRequest(t, repo, enums.RequestStatusApproved, func(r *models.PriceRequest) { r.ClientCode = "C003" })
	seedRequest(t, repo, enums.RequestStatusPending, func(r *models.PriceRequest) {
		r.RequesterCode = "V011"
		r.SupervisorCode = "S002"
	})

	counts, err := repo.CountByStatus(ctx, SummaryFilters{SupervisorCode: "S001"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[enums.RequestStatusPending.String()])
	assert.Equal(t, int64(1), counts[enums.RequestStatusApproved.String()])
}
