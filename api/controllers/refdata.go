package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/grupomeridio/pricedesk-backend/api/responses"
	"github.com/grupomeridio/pricedesk-backend/api/validators"
	"github.com/grupomeridio/pricedesk-backend/internal/refdata"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
	"github.com/grupomeridio/pricedesk-backend/pkg/logger"
	"github.com/grupomeridio/pricedesk-backend/pkg/pagination"
)

// maxImportBytes bounds CSV uploads so a runaway file cannot exhaust memory.
const maxImportBytes = 20 << 20

type importFunc func(r *http.Request, svc refdata.Service) (*refdata.ImportSummary, error)

// ImportClients loads a client reference snapshot from a CSV body.
func ImportClients(svc refdata.Service, logg *logger.Logger) http.HandlerFunc {
	return importHandler(svc, logg, func(r *http.Request, svc refdata.Service) (*refdata.ImportSummary, error) {
		return svc.ImportClients(r.Context(), http.MaxBytesReader(nil, r.Body, maxImportBytes))
	})
}

// ImportProducts loads a product catalog snapshot from a CSV body.
func ImportProducts(svc refdata.Service, logg *logger.Logger) http.HandlerFunc {
	return importHandler(svc, logg, func(r *http.Request, svc refdata.Service) (*refdata.ImportSummary, error) {
		return svc.ImportProducts(r.Context(), http.MaxBytesReader(nil, r.Body, maxImportBytes))
	})
}

// ImportRules replaces the discount rule set with a CSV snapshot.
func ImportRules(svc refdata.Service, logg *logger.Logger) http.HandlerFunc {
	return importHandler(svc, logg, func(r *http.Request, svc refdata.Service) (*refdata.ImportSummary, error) {
		return svc.ImportRules(r.Context(), http.MaxBytesReader(nil, r.Body, maxImportBytes))
	})
}

func importHandler(svc refdata.Service, logg *logger.Logger, do importFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refdata service unavailable"))
			return
		}

		summary, err := do(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// ClientList pages through the client reference data.
func ClientList(svc refdata.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refdata service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		filters := refdata.ClientFilters{
			Network:        strings.TrimSpace(query.Get("network")),
			SubNetwork:     strings.TrimSpace(query.Get("sub_network")),
			SupervisorCode: strings.TrimSpace(query.Get("supervisor_code")),
			Query:          strings.TrimSpace(query.Get("q")),
		}
		if raw := strings.TrimSpace(query.Get("segment")); raw != "" {
			segment, err := enums.ParseClientSegment(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid segment filter"))
				return
			}
			filters.Segment = &segment
		}

		list, err := svc.ListClients(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// ClientDetail returns one client by code.
func ClientDetail(svc refdata.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refdata service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "clientCode"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "client code is required"))
			return
		}

		client, err := svc.GetClient(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, client)
	}
}

// ProductList pages through the product catalog.
func ProductList(svc refdata.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refdata service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		list, err := svc.ListProducts(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		}, refdata.ProductFilters{Query: strings.TrimSpace(query.Get("q"))})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// ProductDetail returns one product by code.
func ProductDetail(svc refdata.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refdata service unavailable"))
			return
		}

		code := strings.TrimSpace(chi.URLParam(r, "productCode"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product code is required"))
			return
		}

		product, err := svc.GetProduct(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// RuleIssues reports configuration problems in the stored discount rules.
func RuleIssues(svc refdata.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refdata service unavailable"))
			return
		}

		issues, err := svc.ListRuleIssues(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"issues": issues})
	}
}
