package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grupomeridio/pricedesk-backend/api/responses"
	"github.com/grupomeridio/pricedesk-backend/api/validators"
	"github.com/grupomeridio/pricedesk-backend/internal/margin"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
	"github.com/grupomeridio/pricedesk-backend/pkg/logger"
	"github.com/grupomeridio/pricedesk-backend/pkg/metrics"
)

type calculatorBody struct {
	Cost    decimal.Decimal `json:"cost"`
	Margin  decimal.Decimal `json:"margin"`
	Markup  decimal.Decimal `json:"markup"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
	// Basis names the two most recently edited fields, oldest first.
	Basis []string `json:"basis" validate:"required,len=2"`
}

// CalculatorSolve recomputes the margin identity from the caller's fixed pair.
func CalculatorSolve(decisionMetrics *metrics.DecisionMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body calculatorBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fields := make([]margin.Field, 0, len(body.Basis))
		for _, raw := range body.Basis {
			field := margin.Field(raw)
			if !field.IsValid() {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown calculator field").WithDetails(map[string]string{"field": raw}))
				return
			}
			fields = append(fields, field)
		}

		values := margin.Values{
			Cost:    body.Cost,
			Margin:  body.Margin,
			Markup:  body.Markup,
			Revenue: body.Revenue,
			Profit:  body.Profit,
		}

		start := time.Now()
		solved, err := margin.Solve(values, margin.NewHistory(fields...))
		decisionMetrics.ObserveSolve(body.Basis[0]+"+"+body.Basis[1], time.Since(start))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, solved)
	}
}
