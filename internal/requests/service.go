package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/grupomeridio/pricedesk-backend/internal/boundary"
	"github.com/grupomeridio/pricedesk-backend/internal/discount"
	"github.com/grupomeridio/pricedesk-backend/pkg/config"
	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
	"github.com/grupomeridio/pricedesk-backend/pkg/metrics"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the price exception pipeline: submissions pass through
// discount resolution and boundary classification before entering the
// approval state machine, and every later move goes through Transition.
type Service interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*models.PriceRequest, error)
	CreateBatch(ctx context.Context, input CreateBatchInput) (*BatchCreateResult, error)
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	GetRequest(ctx context.Context, id uuid.UUID, actorCode string, actorRole enums.ActorRole) (*models.PriceRequest, error)
	ListRequests(ctx context.Context, input ListRequestsInput) (*RequestList, error)
	Summary(ctx context.Context, actorCode string, actorRole enums.ActorRole) (*StatusSummary, error)
	PreviewDecision(ctx context.Context, input CreateRequestInput) (*Preview, error)
}

type service struct {
	repo             Repository
	refdata          RefdataReader
	tx               txRunner
	metrics          *metrics.DecisionMetrics
	minJustification int
}

// NewService builds a price request service with the required dependencies.
func NewService(repo Repository, refdata RefdataReader, tx txRunner, decisionMetrics *metrics.DecisionMetrics, policy config.PolicyConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if refdata == nil {
		return nil, fmt.Errorf("reference data reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	minJustification := policy.MinJustificationLen
	if minJustification <= 0 {
		minJustification = 10
	}
	return &service{
		repo:             repo,
		refdata:          refdata,
		tx:               tx,
		metrics:          decisionMetrics,
		minJustification: minJustification,
	}, nil
}

// decision bundles what the pipeline derived for one submission.
type decision struct {
	classification  boundary.Classification
	discountPercent *decimal.Decimal
	discountedPrice *decimal.Decimal
}

func (s *service) CreateRequest(ctx context.Context, input CreateRequestInput) (*models.PriceRequest, error) {
	currency, err := s.validateSubmission(input.RequesterCode, input.ProductCode, input.Price, input.Quantity, input.Justification, input.Currency)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ClientCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client code required")
	}

	client, product, err := s.loadContext(ctx, input.ClientCode, input.ProductCode)
	if err != nil {
		return nil, err
	}

	if err := s.guardDuplicate(ctx, client.Code, product.Code); err != nil {
		return nil, err
	}

	outcome, err := s.evaluate(ctx, *client, *product, input.Price)
	if err != nil {
		return nil, err
	}
	if !outcome.classification.Verdict.Accepted() {
		return nil, refusalError(outcome.classification)
	}

	request := s.buildRequest(input, *client, currency, outcome, nil)
	created, err := s.repo.Create(ctx, request)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist price request")
	}
	return created, nil
}

// CreateBatch submits the same exception for every client of the sub-network.
// Members are evaluated independently: a refused member never blocks the
// rest, and the accepted ones are persisted atomically under one batch id.
func (s *service) CreateBatch(ctx context.Context, input CreateBatchInput) (*BatchCreateResult, error) {
	currency, err := s.validateSubmission(input.RequesterCode, input.ProductCode, input.Price, input.Quantity, input.Justification, input.Currency)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.SubNetwork) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sub-network required")
	}

	members, err := s.refdata.ListClientsBySubNetwork(ctx, input.SubNetwork)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sub-network clients")
	}
	if len(members) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("sub-network %q has no clients", input.SubNetwork))
	}

	product, err := s.refdata.FindProductByCode(ctx, input.ProductCode)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	batchID := uuid.New()
	result := &BatchCreateResult{BatchID: batchID}
	var accepted []models.PriceRequest
	for _, member := range members {
		outcome := BatchMemberOutcome{ClientCode: member.Code}

		if err := s.guardDuplicate(ctx, member.Code, product.Code); err != nil {
			appErr := pkgerrors.As(err)
			if appErr.Code() != pkgerrors.CodePolicy {
				return nil, err
			}
			outcome.Reason = appErr.Message()
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}
		evaluated, err := s.evaluate(ctx, member, *product, input.Price)
		if err != nil {
			return nil, err
		}
		if !evaluated.classification.Verdict.Accepted() {
			outcome.Reason = evaluated.classification.Reason
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		request := s.buildRequest(CreateRequestInput{
			RequesterCode: input.RequesterCode,
			ClientCode:    member.Code,
			ProductCode:   input.ProductCode,
			Price:         input.Price,
			Quantity:      input.Quantity,
			Justification: input.Justification,
		}, member, currency, evaluated, &batchID)
		request.ID = uuid.New()

		id := request.ID
		outcome.RequestID = &id
		outcome.Accepted = true
		result.Outcomes = append(result.Outcomes, outcome)
		accepted = append(accepted, *request)
	}

	result.Accepted = len(accepted)
	result.Refused = len(members) - len(accepted)
	if len(accepted) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodePolicy, "no client in the sub-network can receive this price").
			WithDetails(result)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateMany(ctx, accepted)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist batch requests")
	}
	return result, nil
}

// Transition applies one state machine action to a single request or to
// every member of a batch. Input problems abort before anything is written;
// per-member failures after that point never roll back the members that
// already moved.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if err := validateTransitionInput(input); err != nil {
		return nil, err
	}
	if noteRequired(input.Action) && strings.TrimSpace(input.Note) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("action %s requires a note", input.Action))
	}

	targets, err := s.loadTargets(ctx, input)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := &TransitionResult{}
	var memberErrs []error
	for i := range targets {
		req := &targets[i]
		outcome := TransitionMemberOutcome{RequestID: req.ID}

		err := s.applyTransition(ctx, req, input, now)
		if err != nil {
			outcome.Reason = err.Error()
			result.Failed++
			memberErrs = append(memberErrs, err)
			s.metrics.IncTransition(input.Action.String(), "refused")
		} else {
			outcome.Applied = true
			result.Applied++
			s.metrics.IncTransition(input.Action.String(), "applied")
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if input.RequestID != nil && result.Applied == 0 {
		return nil, memberErrs[0]
	}
	if result.Applied == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, multierr.Combine(memberErrs...),
			"transition applied to no request in the batch").
			WithDetails(result.Outcomes)
	}

	for _, outcome := range result.Outcomes {
		if !outcome.Applied {
			continue
		}
		updated, err := s.repo.FindByID(ctx, outcome.RequestID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload request")
		}
		result.Requests = append(result.Requests, *updated)
	}
	return result, nil
}

func (s *service) applyTransition(ctx context.Context, req *models.PriceRequest, input TransitionInput, now time.Time) error {
	plan, err := planTransition(req, input, now)
	if err != nil {
		return err
	}
	if input.Action == enums.TransitionActionEscalate {
		if err := s.recheckEscalation(ctx, req); err != nil {
			return err
		}
	}

	ok, err := s.repo.UpdateGuarded(ctx, req.ID, plan.guards, plan.updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply transition")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "request was decided by someone else; reload and retry")
	}
	return nil
}

// recheckEscalation re-runs the boundary classification before a request is
// put in front of a manager. Reference data may have moved since submission;
// a price that is no longer below the minimum has nothing to escalate.
func (s *service) recheckEscalation(ctx context.Context, req *models.PriceRequest) error {
	client, product, err := s.loadContext(ctx, req.ClientCode, req.ProductCode)
	if err != nil {
		if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
			return nil
		}
		return err
	}
	classification := boundary.Classify(*client, *product, req.RequestedPrice, req.DiscountedPrice)
	if classification.Verdict != enums.PriceVerdictNeedsEscalation {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "request no longer needs manager approval").
			WithDetails(classification)
	}
	return nil
}

func (s *service) GetRequest(ctx context.Context, id uuid.UUID, actorCode string, actorRole enums.ActorRole) (*models.PriceRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	if err := authorizeView(request, actorCode, actorRole); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) ListRequests(ctx context.Context, input ListRequestsInput) (*RequestList, error) {
	filters := input.Filters
	switch input.ActorRole {
	case enums.ActorRoleVendedor:
		filters.RequesterCode = input.ActorCode
	case enums.ActorRoleSupervisor:
		filters.SupervisorCode = input.ActorCode
	case enums.ActorRoleGerente, enums.ActorRoleAdmin:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}

	list, err := s.repo.List(ctx, pagination.Params{Limit: input.Limit, Cursor: input.Cursor}, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	return list, nil
}

func (s *service) Summary(ctx context.Context, actorCode string, actorRole enums.ActorRole) (*StatusSummary, error) {
	filters := SummaryFilters{}
	switch actorRole {
	case enums.ActorRoleVendedor:
		filters.RequesterCode = actorCode
	case enums.ActorRoleSupervisor:
		filters.SupervisorCode = actorCode
	case enums.ActorRoleGerente, enums.ActorRoleAdmin:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}

	counts, err := s.repo.CountByStatus(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count requests")
	}

	summary := &StatusSummary{ByStatus: counts}
	for _, count := range counts {
		summary.Total += count
	}
	return summary, nil
}

// PreviewDecision runs the full submission pipeline without persisting
// anything, so the front end can show the verdict while the form is open.
func (s *service) PreviewDecision(ctx context.Context, input CreateRequestInput) (*Preview, error) {
	if strings.TrimSpace(input.ClientCode) == "" || strings.TrimSpace(input.ProductCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client and product codes required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	client, product, err := s.loadContext(ctx, input.ClientCode, input.ProductCode)
	if err != nil {
		return nil, err
	}
	outcome, err := s.evaluate(ctx, *client, *product, input.Price)
	if err != nil {
		return nil, err
	}
	return &Preview{
		Classification:  outcome.classification,
		DiscountPercent: outcome.discountPercent,
		DiscountedPrice: outcome.discountedPrice,
	}, nil
}

func (s *service) validateSubmission(requesterCode, productCode string, price decimal.Decimal, quantity int, justification string, currency enums.Currency) (enums.Currency, error) {
	if strings.TrimSpace(requesterCode) == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "requester identity missing")
	}
	if strings.TrimSpace(productCode) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product code required")
	}
	if !price.IsPositive() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if quantity <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if len(strings.TrimSpace(justification)) < s.minJustification {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("justification must have at least %d characters", s.minJustification))
	}
	if currency == "" {
		return enums.CurrencyBRL, nil
	}
	if !currency.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", currency))
	}
	return currency, nil
}

func (s *service) loadContext(ctx context.Context, clientCode, productCode string) (*models.Client, *models.Product, error) {
	client, err := s.refdata.FindClientByCode(ctx, clientCode)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	product, err := s.refdata.FindProductByCode(ctx, productCode)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return client, product, nil
}

func (s *service) guardDuplicate(ctx context.Context, clientCode, productCode string) error {
	open, err := s.repo.ExistsOpenForClientProduct(ctx, clientCode, productCode)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open requests")
	}
	if open {
		return pkgerrors.New(pkgerrors.CodePolicy, "an open request already exists for this client and product")
	}
	return nil
}

func (s *service) evaluate(ctx context.Context, client models.Client, product models.Product, price decimal.Decimal) (*decision, error) {
	rules, err := s.refdata.ListRulesForProduct(ctx, product.Code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount rules")
	}

	outcome := &decision{}
	if rule := discount.Resolve(client, product.Code, rules); rule != nil {
		percent := rule.Percent
		discounted := discount.Apply(price, percent)
		outcome.discountPercent = &percent
		outcome.discountedPrice = &discounted
	}

	outcome.classification = boundary.Classify(client, product, price, outcome.discountedPrice)
	s.metrics.IncVerdict(outcome.classification.Verdict.String())
	return outcome, nil
}

func (s *service) buildRequest(input CreateRequestInput, client models.Client, currency enums.Currency, outcome *decision, batchID *uuid.UUID) *models.PriceRequest {
	return &models.PriceRequest{
		BatchID:            batchID,
		RequesterCode:      input.RequesterCode,
		ClientCode:         client.Code,
		SupervisorCode:     client.SupervisorCode,
		ProductCode:        input.ProductCode,
		RequestedPrice:     input.Price,
		Quantity:           input.Quantity,
		Justification:      strings.TrimSpace(input.Justification),
		Currency:           currency,
		Status:             enums.RequestStatusPending,
		RequiresEscalation: outcome.classification.Verdict == enums.PriceVerdictNeedsEscalation,
		DiscountPercent:    outcome.discountPercent,
		DiscountedPrice:    outcome.discountedPrice,
	}
}

func (s *service) loadTargets(ctx context.Context, input TransitionInput) ([]models.PriceRequest, error) {
	if input.RequestID != nil {
		request, err := s.repo.FindByID(ctx, *input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}
		return []models.PriceRequest{*request}, nil
	}

	members, err := s.repo.FindByBatchID(ctx, *input.BatchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch")
	}
	if len(members) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "batch not found")
	}
	return members, nil
}

func validateTransitionInput(input TransitionInput) error {
	if (input.RequestID == nil) == (input.BatchID == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of request id or batch id must be provided")
	}
	if !input.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid transition action")
	}
	if strings.TrimSpace(input.ActorCode) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.ActorRole.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	return nil
}

func authorizeView(request *models.PriceRequest, actorCode string, actorRole enums.ActorRole) error {
	switch actorRole {
	case enums.ActorRoleVendedor:
		if request.RequesterCode != actorCode {
			return pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another salesperson")
		}
	case enums.ActorRoleSupervisor:
		if request.SupervisorCode != actorCode && request.RequesterCode != actorCode {
			return pkgerrors.New(pkgerrors.CodeForbidden, "request is outside your supervision")
		}
	case enums.ActorRoleGerente, enums.ActorRoleAdmin:
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	return nil
}

func refusalError(classification boundary.Classification) error {
	return pkgerrors.New(pkgerrors.CodePolicy, classification.Reason).WithDetails(classification)
}
