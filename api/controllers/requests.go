package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grupomeridio/pricedesk-backend/api/middleware"
	"github.com/grupomeridio/pricedesk-backend/api/responses"
	"github.com/grupomeridio/pricedesk-backend/api/validators"
	"github.com/grupomeridio/pricedesk-backend/internal/requests"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
	"github.com/grupomeridio/pricedesk-backend/pkg/logger"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

type createRequestBody struct {
	ClientCode    string          `json:"client_code" validate:"required"`
	ProductCode   string          `json:"product_code" validate:"required"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	Quantity      int             `json:"quantity" validate:"required,gt=0"`
	Justification string          `json:"justification" validate:"required"`
	Currency      string          `json:"currency,omitempty"`
}

type createBatchBody struct {
	SubNetwork    string          `json:"sub_network" validate:"required"`
	ProductCode   string          `json:"product_code" validate:"required"`
	Price         decimal.Decimal `json:"price" validate:"required"`
	Quantity      int             `json:"quantity" validate:"required,gt=0"`
	Justification string          `json:"justification" validate:"required"`
	Currency      string          `json:"currency,omitempty"`
}

type decisionBody struct {
	Action string `json:"action" validate:"required"`
	Note   string `json:"note,omitempty"`
}

// RequestCreate submits one price exception for evaluation.
func RequestCreate(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		var body createRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateRequest(r.Context(), requests.CreateRequestInput{
			RequesterCode: middleware.UserCodeFromContext(r.Context()),
			ClientCode:    body.ClientCode,
			ProductCode:   body.ProductCode,
			Price:         body.Price,
			Quantity:      body.Quantity,
			Justification: body.Justification,
			Currency:      enums.Currency(body.Currency),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// RequestBatchCreate fans one submission out to every client of a sub-network.
func RequestBatchCreate(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		var body createBatchBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateBatch(r.Context(), requests.CreateBatchInput{
			RequesterCode: middleware.UserCodeFromContext(r.Context()),
			SubNetwork:    body.SubNetwork,
			ProductCode:   body.ProductCode,
			Price:         body.Price,
			Quantity:      body.Quantity,
			Justification: body.Justification,
			Currency:      enums.Currency(body.Currency),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RequestPreview evaluates a submission without persisting anything.
func RequestPreview(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		var body createRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		preview, err := svc.PreviewDecision(r.Context(), requests.CreateRequestInput{
			RequesterCode: middleware.UserCodeFromContext(r.Context()),
			ClientCode:    body.ClientCode,
			ProductCode:   body.ProductCode,
			Price:         body.Price,
			Quantity:      body.Quantity,
			Justification: body.Justification,
			Currency:      enums.Currency(body.Currency),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, preview)
	}
}

// RequestList returns a cursor page of requests scoped to the caller's role.
func RequestList(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListRequests(r.Context(), requests.ListRequestsInput{
			ActorCode: middleware.UserCodeFromContext(r.Context()),
			ActorRole: enums.ActorRole(middleware.RoleFromContext(r.Context())),
			Filters:   filters,
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// RequestDetail fetches a single request the caller is allowed to see.
func RequestDetail(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		id, err := parseRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.GetRequest(
			r.Context(),
			id,
			middleware.UserCodeFromContext(r.Context()),
			enums.ActorRole(middleware.RoleFromContext(r.Context())),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, request)
	}
}

// RequestDecision applies a state machine action to one request.
func RequestDecision(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		id, err := parseRequestID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := buildTransitionInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.RequestID = &id

		result, err := svc.Transition(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// BatchDecision applies a state machine action to every member of a batch.
func BatchDecision(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		rawBatchID := strings.TrimSpace(chi.URLParam(r, "batchId"))
		batchID, err := uuid.Parse(rawBatchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch id"))
			return
		}

		input, err := buildTransitionInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.BatchID = &batchID

		result, err := svc.Transition(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// RequestSummary returns the status rollup for the caller's visibility.
func RequestSummary(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "requests service unavailable"))
			return
		}

		summary, err := svc.Summary(
			r.Context(),
			middleware.UserCodeFromContext(r.Context()),
			enums.ActorRole(middleware.RoleFromContext(r.Context())),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

func parseRequestID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "requestId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request id")
	}
	return id, nil
}

func buildTransitionInput(r *http.Request) (requests.TransitionInput, error) {
	var body decisionBody
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return requests.TransitionInput{}, err
	}

	action, err := enums.ParseTransitionAction(strings.ToLower(strings.TrimSpace(body.Action)))
	if err != nil {
		return requests.TransitionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action")
	}

	return requests.TransitionInput{
		Action:    action,
		ActorCode: middleware.UserCodeFromContext(r.Context()),
		ActorRole: enums.ActorRole(middleware.RoleFromContext(r.Context())),
		Note:      body.Note,
	}, nil
}

func buildListFilters(r *http.Request) (requests.ListFilters, error) {
	var filters requests.ListFilters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseRequestStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("batch_id")); raw != "" {
		batchID, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch id filter")
		}
		filters.BatchID = &batchID
	}
	filters.ClientCode = strings.TrimSpace(query.Get("client_code"))
	filters.ProductCode = strings.TrimSpace(query.Get("product_code"))
	filters.OnlyEscalated = strings.EqualFold(strings.TrimSpace(query.Get("only_escalated")), "true")

	return filters, nil
}
