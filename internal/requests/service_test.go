package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/grupomeridio/pricedesk-backend/pkg/config"
	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

type stubRequestsRepo struct {
	requests map[uuid.UUID]*models.PriceRequest
	updates  int
}

func newStubRequestsRepo() *stubRequestsRepo {
	return &stubRequestsRepo{requests: map[uuid.UUID]*models.PriceRequest{}}
}

func (s *stubRequestsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRequestsRepo) Create(ctx context.Context, request *models.PriceRequest) (*models.PriceRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	stored := *request
	s.requests[request.ID] = &stored
	return request, nil
}

func (s *stubRequestsRepo) CreateMany(ctx context.Context, requests []models.PriceRequest) error {
	for i := range requests {
		if requests[i].ID == uuid.Nil {
			requests[i].ID = uuid.New()
		}
		stored := requests[i]
		s.requests[stored.ID] = &stored
	}
	return nil
}

func (s *stubRequestsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.PriceRequest, error) {
	if req, ok := s.requests[id]; ok {
		copied := *req
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRequestsRepo) FindByBatchID(ctx context.Context, batchID uuid.UUID) ([]models.PriceRequest, error) {
	var out []models.PriceRequest
	for _, req := range s.requests {
		if req.BatchID != nil && *req.BatchID == batchID {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (s *stubRequestsRepo) ExistsOpenForClientProduct(ctx context.Context, clientCode, productCode string) (bool, error) {
	for _, req := range s.requests {
		if req.ClientCode == clientCode && req.ProductCode == productCode && req.Status.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRequestsRepo) UpdateGuarded(ctx context.Context, id uuid.UUID, guards map[string]any, updates map[string]any) (bool, error) {
	req, ok := s.requests[id]
	if !ok {
		return false, nil
	}
	if expected, guarded := guards["status"]; guarded && req.Status != expected.(enums.RequestStatus) {
		return false, nil
	}
	if expected, guarded := guards["cancel_requested"]; guarded && req.CancelRequested != expected.(bool) {
		return false, nil
	}

	for column, value := range updates {
		switch column {
		case "status":
			req.Status = value.(enums.RequestStatus)
		case "approver_code":
			code := value.(string)
			req.ApproverCode = &code
		case "decided_at":
			at := value.(time.Time)
			req.DecidedAt = &at
		case "decision_note":
			note := value.(string)
			req.DecisionNote = &note
		case "supervisor_note":
			note := value.(string)
			req.SupervisorNote = &note
		case "cancel_requested":
			req.CancelRequested = value.(bool)
		case "cancel_reason":
			reason := value.(string)
			req.CancelReason = &reason
		case "cancel_requested_at":
			at := value.(time.Time)
			req.CancelRequestedAt = &at
		case "cancelled_at":
			at := value.(time.Time)
			req.CancelledAt = &at
		}
	}
	s.updates++
	return true, nil
}

func (s *stubRequestsRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) (*RequestList, error) {
	var out []models.PriceRequest
	for _, req := range s.requests {
		if filters.RequesterCode != "" && req.RequesterCode != filters.RequesterCode {
			continue
		}
		if filters.SupervisorCode != "" && req.SupervisorCode != filters.SupervisorCode {
			continue
		}
		if filters.Status != nil && req.Status != *filters.Status {
			continue
		}
		out = append(out, *req)
	}
	return &RequestList{Requests: out}, nil
}

func (s *stubRequestsRepo) CountByStatus(ctx context.Context, filters SummaryFilters) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, req := range s.requests {
		if filters.RequesterCode != "" && req.RequesterCode != filters.RequesterCode {
			continue
		}
		if filters.SupervisorCode != "" && req.SupervisorCode != filters.SupervisorCode {
			continue
		}
		counts[req.Status.String()]++
	}
	return counts, nil
}

type stubRefdata struct {
	clients  map[string]models.Client
	products map[string]models.Product
	rules    []models.DiscountRule
}

func (s *stubRefdata) FindClientByCode(ctx context.Context, code string) (*models.Client, error) {
	if client, ok := s.clients[code]; ok {
		return &client, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRefdata) ListClientsBySubNetwork(ctx context.Context, subNetwork string) ([]models.Client, error) {
	var out []models.Client
	for _, client := range s.clients {
		if client.SubNetwork != nil && *client.SubNetwork == subNetwork {
			out = append(out, client)
		}
	}
	return out, nil
}

func (s *stubRefdata) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	if product, ok := s.products[code]; ok {
		return &product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRefdata) ListRulesForProduct(ctx context.Context, productCode string) ([]models.DiscountRule, error) {
	var out []models.DiscountRule
	for _, rule := range s.rules {
		if rule.ProductCode == productCode {
			out = append(out, rule)
		}
	}
	return out, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func money(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func moneyPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func strPtr(s string) *string { return &s }

func fixtureRefdata() *stubRefdata {
	sub := "ABC"
	return &stubRefdata{
		clients: map[string]models.Client{
			"C001": {
				Code: "C001", Name: "Mercado Central", Network: "Rede Norte", SubNetwork: &sub,
				Segment: enums.ClientSegmentVarejo, SupervisorCode: "S001",
			},
			"C002": {
				Code: "C002", Name: "Armazem do Porto", Network: "Rede Norte", SubNetwork: &sub,
				Segment: enums.ClientSegmentAtacado, SupervisorCode: "S001",
			},
			"C003": {
				Code: "C003", Name: "Padaria Sol", Network: "Rede Norte", SubNetwork: &sub,
				Segment: enums.ClientSegmentPadaria, SupervisorCode: "S001",
			},
		},
		products: map[string]models.Product{
			"P1": {
				Code: "P1", Name: "Farinha Especial 25kg",
				MinimumPrice:     moneyPtr("50"),
				MaximumPrice:     moneyPtr("80"),
				PromotionalPrice: moneyPtr("40"),
			},
		},
		rules: []models.DiscountRule{
			{ID: uuid.New(), SubNetwork: strPtr("ABC"), ProductCode: "P1", Percent: money("5")},
		},
	}
}

func newRequestsService(t *testing.T, repo Repository, refdata RefdataReader) Service {
	t.Helper()
	svc, err := NewService(repo, refdata, stubTxRunner{}, nil, config.PolicyConfig{MinJustificationLen: 10})
	require.NoError(t, err)
	return svc
}

func submission(clientCode, price string) CreateRequestInput {
	return CreateRequestInput{
		RequesterCode: "V010",
		ClientCode:    clientCode,
		ProductCode:   "P1",
		Price:         money(price),
		Quantity:      10,
		Justification: "cliente fechou volume anual com concorrente",
	}
}

func TestCreateRequestAppliesDiscountAndStaysPending(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())

	created, err := svc.CreateRequest(context.Background(), submission("C001", "60"))
	require.NoError(t, err)

	assert.Equal(t, enums.RequestStatusPending, created.Status)
	assert.False(t, created.RequiresEscalation)
	assert.Equal(t, "S001", created.SupervisorCode)
	assert.Equal(t, enums.CurrencyBRL, created.Currency)
	require.NotNil(t, created.DiscountPercent)
	assert.True(t, created.DiscountPercent.Equal(money("5")))
	require.NotNil(t, created.DiscountedPrice)
	assert.True(t, created.DiscountedPrice.Equal(money("57.00")), "discounted = %s", created.DiscountedPrice)
}

func TestCreateRequestFlagsBelowMinimumForEscalation(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())

	// 47.36 after the 5% discount lands between the promotional and minimum floors.
	created, err := svc.CreateRequest(context.Background(), submission("C001", "49.85"))
	require.NoError(t, err)
	assert.True(t, created.RequiresEscalation)
	assert.Equal(t, enums.RequestStatusPending, created.Status)
}

func TestCreateRequestRefusesOutOfBandPrices(t *testing.T) {
	svc := newRequestsService(t, newStubRequestsRepo(), fixtureRefdata())

	_, err := svc.CreateRequest(context.Background(), submission("C001", "95"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePolicy, pkgerrors.As(err).Code())

	_, err = svc.CreateRequest(context.Background(), submission("C001", "30"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePolicy, pkgerrors.As(err).Code())
}

func TestCreateRequestValidatesJustificationLength(t *testing.T) {
	svc := newRequestsService(t, newStubRequestsRepo(), fixtureRefdata())

	input := submission("C001", "60")
	input.Justification = "curta"
	_, err := svc.CreateRequest(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateRequestGuardsDuplicateOpenRequests(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	_, err := svc.CreateRequest(ctx, submission("C001", "60"))
	require.NoError(t, err)

	_, err = svc.CreateRequest(ctx, submission("C001", "62"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePolicy, pkgerrors.As(err).Code())
}

func TestApproveMovesPendingToApproved(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	created, err := svc.CreateRequest(ctx, submission("C001", "60"))
	require.NoError(t, err)

	result, err := svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionApprove,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
	})
	require.NoError(t, err)
	require.Len(t, result.Requests, 1)
	updated := result.Requests[0]
	assert.Equal(t, enums.RequestStatusApproved, updated.Status)
	require.NotNil(t, updated.ApproverCode)
	assert.Equal(t, "S001", *updated.ApproverCode)
	assert.NotNil(t, updated.DecidedAt)
}

func TestApproveOnRejectedRequestConflicts(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	created, err := svc.CreateRequest(ctx, submission("C001", "60"))
	require.NoError(t, err)
	repo.requests[created.ID].Status = enums.RequestStatusRejected

	_, err = svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionApprove,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestEscalationPathToManagerApproval(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	created, err := svc.CreateRequest(ctx, submission("C001", "49.85"))
	require.NoError(t, err)
	require.True(t, created.RequiresEscalation)

	// The supervisor cannot shortcut a flagged request.
	_, err = svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionApprove,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	result, err := svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionEscalate,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
		Note:      "cliente estrategico para a regiao",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusAwaitingManager, result.Requests[0].Status)
	require.NotNil(t, result.Requests[0].SupervisorNote)

	result, err = svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionApprove,
		ActorCode: "G001",
		ActorRole: enums.ActorRoleGerente,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusManagerApproved, result.Requests[0].Status)
}

func TestEscalateWithoutNoteIsRejectedUpFront(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	created, err := svc.CreateRequest(ctx, submission("C001", "49.85"))
	require.NoError(t, err)

	_, err = svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionEscalate,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
		Note:      "   ",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, repo.updates)
}

func TestCreateBatchEvaluatesEachMember(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())

	result, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		RequesterCode: "V010",
		SubNetwork:    "ABC",
		ProductCode:   "P1",
		Price:         money("60"),
		Quantity:      5,
		Justification: "acordo comercial da sub-rede",
	})
	require.NoError(t, err)

	// C003 is a padaria, locked to the table price, so it is refused.
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 1, result.Refused)
	require.Len(t, result.Outcomes, 3)

	members, err := repo.FindByBatchID(context.Background(), result.BatchID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	for _, member := range members {
		require.NotNil(t, member.BatchID)
		assert.Equal(t, result.BatchID, *member.BatchID)
		assert.Equal(t, enums.RequestStatusPending, member.Status)
	}
}

func TestBatchRejectWithoutNotePersistsNothing(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		RequesterCode: "V010",
		SubNetwork:    "ABC",
		ProductCode:   "P1",
		Price:         money("60"),
		Quantity:      5,
		Justification: "acordo comercial da sub-rede",
	})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, TransitionInput{
		BatchID:   &batch.BatchID,
		Action:    enums.TransitionActionReject,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, repo.updates)

	members, err := repo.FindByBatchID(ctx, batch.BatchID)
	require.NoError(t, err)
	for _, member := range members {
		assert.Equal(t, enums.RequestStatusPending, member.Status)
	}
}

func TestBatchApproveReportsPerMemberOutcomes(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		RequesterCode: "V010",
		SubNetwork:    "ABC",
		ProductCode:   "P1",
		Price:         money("60"),
		Quantity:      5,
		Justification: "acordo comercial da sub-rede",
	})
	require.NoError(t, err)

	// One member got decided by someone else in the meantime.
	members, err := repo.FindByBatchID(ctx, batch.BatchID)
	require.NoError(t, err)
	repo.requests[members[0].ID].Status = enums.RequestStatusRejected

	result, err := svc.Transition(ctx, TransitionInput{
		BatchID:   &batch.BatchID,
		Action:    enums.TransitionActionApprove,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Requests, 1)
	assert.Equal(t, enums.RequestStatusApproved, result.Requests[0].Status)
}

func TestCancellationLifecycle(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	created, err := svc.CreateRequest(ctx, submission("C001", "60"))
	require.NoError(t, err)

	_, err = svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionApprove,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
	})
	require.NoError(t, err)

	// Only the requester can ask for cancellation.
	_, err = svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionRequestCancellation,
		ActorCode: "V999",
		ActorRole: enums.ActorRoleVendedor,
		Note:      "tentativa de terceiro",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	result, err := svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionRequestCancellation,
		ActorCode: "V010",
		ActorRole: enums.ActorRoleVendedor,
		Note:      "cliente cancelou o pedido",
	})
	require.NoError(t, err)
	flagged := result.Requests[0]
	assert.Equal(t, enums.RequestStatusApproved, flagged.Status)
	assert.True(t, flagged.CancelRequested)

	result, err = svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionApproveCancellation,
		ActorCode: "A001",
		ActorRole: enums.ActorRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.RequestStatusCancelled, result.Requests[0].Status)
	assert.NotNil(t, result.Requests[0].CancelledAt)
}

func TestListRequestsScopesByRole(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	_, err := svc.CreateRequest(ctx, submission("C001", "60"))
	require.NoError(t, err)
	other := submission("C002", "62")
	other.RequesterCode = "V011"
	_, err = svc.CreateRequest(ctx, other)
	require.NoError(t, err)

	mine, err := svc.ListRequests(ctx, ListRequestsInput{ActorCode: "V010", ActorRole: enums.ActorRoleVendedor})
	require.NoError(t, err)
	require.Len(t, mine.Requests, 1)
	assert.Equal(t, "V010", mine.Requests[0].RequesterCode)

	supervised, err := svc.ListRequests(ctx, ListRequestsInput{ActorCode: "S001", ActorRole: enums.ActorRoleSupervisor})
	require.NoError(t, err)
	assert.Len(t, supervised.Requests, 2)
}

func TestSummaryCountsByStatus(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())
	ctx := context.Background()

	created, err := svc.CreateRequest(ctx, submission("C001", "60"))
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, submission("C002", "62"))
	require.NoError(t, err)

	_, err = svc.Transition(ctx, TransitionInput{
		RequestID: &created.ID,
		Action:    enums.TransitionActionApprove,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
	})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, "S001", enums.ActorRoleSupervisor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(1), summary.ByStatus[enums.RequestStatusApproved.String()])
	assert.Equal(t, int64(1), summary.ByStatus[enums.RequestStatusPending.String()])
}

func TestPreviewDecisionDoesNotPersist(t *testing.T) {
	repo := newStubRequestsRepo()
	svc := newRequestsService(t, repo, fixtureRefdata())

	preview, err := svc.PreviewDecision(context.Background(), submission("C001", "60"))
	require.NoError(t, err)
	assert.Equal(t, enums.PriceVerdictAutoApprovable, preview.Classification.Verdict)
	require.NotNil(t, preview.DiscountedPrice)
	assert.True(t, preview.DiscountedPrice.Equal(money("57.00")))
	assert.Empty(t, repo.requests)
}

func TestTransitionRequiresExactlyOneTarget(t *testing.T) {
	svc := newRequestsService(t, newStubRequestsRepo(), fixtureRefdata())

	_, err := svc.Transition(context.Background(), TransitionInput{
		Action:    enums.TransitionActionApprove,
		ActorCode: "S001",
		ActorRole: enums.ActorRoleSupervisor,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
