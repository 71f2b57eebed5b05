package margin

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
)

// Field identifies one of the five calculator quantities.
type Field string

const (
	FieldCost    Field = "cost"
	FieldMargin  Field = "margin"
	FieldMarkup  Field = "markup"
	FieldRevenue Field = "revenue"
	FieldProfit  Field = "profit"
)

var validFields = []Field{FieldCost, FieldMargin, FieldMarkup, FieldRevenue, FieldProfit}

// IsValid reports whether the value is a known Field.
func (f Field) IsValid() bool {
	for _, candidate := range validFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// Values holds the five quantities linked by the margin/markup identities.
type Values struct {
	Cost    decimal.Decimal `json:"cost"`
	Margin  decimal.Decimal `json:"margin"`
	Markup  decimal.Decimal `json:"markup"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// History is the bounded queue of the two most recently edited fields,
// oldest first. It replaces the implicit UI state the calculator used to
// keep, so the solver stays a pure function.
type History struct {
	fields []Field
}

// NewHistory builds a history from up to two distinct fields, oldest first.
func NewHistory(fields ...Field) History {
	var h History
	for _, f := range fields {
		h = h.Push(f)
	}
	return h
}

// Push records an edit. Re-editing a tracked field moves it to the newest
// slot instead of widening the basis.
func (h History) Push(f Field) History {
	kept := make([]Field, 0, 2)
	for _, existing := range h.fields {
		if existing != f {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, f)
	if len(kept) > 2 {
		kept = kept[len(kept)-2:]
	}
	return History{fields: kept}
}

// Basis returns the fixed pair, oldest first.
func (h History) Basis() (older Field, newer Field, ok bool) {
	if len(h.fields) != 2 {
		return "", "", false
	}
	return h.fields[0], h.fields[1], true
}

// Fields exposes the tracked fields, oldest first.
func (h History) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

var hundred = decimal.NewFromInt(100)

// Solve recomputes the three fields outside the fixed pair from the two
// inside it. Degenerate bases (margin at or above 100%, revenue at or below
// cost, non-positive profit) return a not-computable error so callers leave
// dependent fields untouched instead of propagating Inf/NaN.
func Solve(vals Values, hist History) (Values, error) {
	older, newer, ok := hist.Basis()
	if !ok {
		return vals, pkgerrors.New(pkgerrors.CodeValidation, "fixed pair must contain two distinct fields")
	}
	if !older.IsValid() || !newer.IsValid() {
		return vals, pkgerrors.New(pkgerrors.CodeValidation, "unknown calculator field in fixed pair")
	}

	has := func(f Field) bool { return f == older || f == newer }

	switch {
	case has(FieldCost) && has(FieldRevenue):
		return solveFromCostRevenue(vals)
	case has(FieldCost) && has(FieldMargin):
		return solveFromCostMargin(vals)
	case has(FieldCost) && has(FieldMarkup):
		return solveFromCostMarkup(vals)
	case has(FieldCost) && has(FieldProfit):
		return solveFromCostProfit(vals)
	case has(FieldMargin) && has(FieldMarkup):
		return solveFromMarginMarkup(vals, newer)
	case has(FieldMargin) && has(FieldRevenue):
		return solveFromMarginRevenue(vals)
	case has(FieldMargin) && has(FieldProfit):
		return solveFromMarginProfit(vals)
	case has(FieldMarkup) && has(FieldRevenue):
		return solveFromMarkupRevenue(vals)
	case has(FieldMarkup) && has(FieldProfit):
		return solveFromMarkupProfit(vals)
	case has(FieldRevenue) && has(FieldProfit):
		return solveFromRevenueProfit(vals)
	default:
		return vals, pkgerrors.New(pkgerrors.CodeValidation, "unsupported fixed pair")
	}
}

func solveFromCostRevenue(vals Values) (Values, error) {
	if vals.Cost.Sign() <= 0 {
		return vals, errNonPositive("cost")
	}
	if vals.Revenue.LessThanOrEqual(vals.Cost) {
		return vals, pkgerrors.New(pkgerrors.CodeNotComputable, "revenue must exceed cost")
	}
	profit := vals.Revenue.Sub(vals.Cost)
	vals.Profit = profit
	vals.Margin = profit.Div(vals.Revenue).Mul(hundred)
	vals.Markup = profit.Div(vals.Cost).Mul(hundred)
	return rounded(vals), nil
}

func solveFromCostMargin(vals Values) (Values, error) {
	if vals.Cost.Sign() <= 0 {
		return vals, errNonPositive("cost")
	}
	if err := checkMarginBand(vals.Margin); err != nil {
		return vals, err
	}
	factor := decimal.NewFromInt(1).Sub(vals.Margin.Div(hundred))
	revenue := vals.Cost.Div(factor)
	profit := revenue.Sub(vals.Cost)
	vals.Revenue = revenue
	vals.Profit = profit
	vals.Markup = profit.Div(vals.Cost).Mul(hundred)
	return rounded(vals), nil
}

func solveFromCostMarkup(vals Values) (Values, error) {
	if vals.Cost.Sign() <= 0 {
		return vals, errNonPositive("cost")
	}
	if vals.Markup.Sign() <= 0 {
		return vals, errNonPositive("markup")
	}
	profit := vals.Cost.Mul(vals.Markup).Div(hundred)
	revenue := vals.Cost.Add(profit)
	vals.Profit = profit
	vals.Revenue = revenue
	vals.Margin = profit.Div(revenue).Mul(hundred)
	return rounded(vals), nil
}

func solveFromCostProfit(vals Values) (Values, error) {
	if vals.Cost.Sign() <= 0 {
		return vals, errNonPositive("cost")
	}
	if vals.Profit.Sign() <= 0 {
		return vals, errNonPositive("profit")
	}
	revenue := vals.Cost.Add(vals.Profit)
	vals.Revenue = revenue
	vals.Margin = vals.Profit.Div(revenue).Mul(hundred)
	vals.Markup = vals.Profit.Div(vals.Cost).Mul(hundred)
	return rounded(vals), nil
}

// solveFromMarginMarkup cross-derives the percentages from whichever of the
// two was edited last, then re-anchors the monetary fields on the retained
// cost. With no positive cost there is no monetary anchor, so only the
// percentages move.
func solveFromMarginMarkup(vals Values, newest Field) (Values, error) {
	if newest == FieldMargin {
		if err := checkMarginBand(vals.Margin); err != nil {
			return vals, err
		}
		factor := decimal.NewFromInt(1).Sub(vals.Margin.Div(hundred))
		vals.Markup = vals.Margin.Div(factor)
	} else {
		if vals.Markup.Sign() <= 0 {
			return vals, errNonPositive("markup")
		}
		factor := decimal.NewFromInt(1).Add(vals.Markup.Div(hundred))
		vals.Margin = vals.Markup.Div(factor)
	}

	if vals.Cost.Sign() > 0 {
		profit := vals.Cost.Mul(vals.Markup).Div(hundred)
		vals.Profit = profit
		vals.Revenue = vals.Cost.Add(profit)
	}
	return rounded(vals), nil
}

func solveFromMarginRevenue(vals Values) (Values, error) {
	if vals.Revenue.Sign() <= 0 {
		return vals, errNonPositive("revenue")
	}
	if err := checkMarginBand(vals.Margin); err != nil {
		return vals, err
	}
	profit := vals.Revenue.Mul(vals.Margin).Div(hundred)
	cost := vals.Revenue.Sub(profit)
	vals.Profit = profit
	vals.Cost = cost
	vals.Markup = profit.Div(cost).Mul(hundred)
	return rounded(vals), nil
}

func solveFromMarginProfit(vals Values) (Values, error) {
	if vals.Profit.Sign() <= 0 {
		return vals, errNonPositive("profit")
	}
	if err := checkMarginBand(vals.Margin); err != nil {
		return vals, err
	}
	revenue := vals.Profit.Mul(hundred).Div(vals.Margin)
	cost := revenue.Sub(vals.Profit)
	vals.Revenue = revenue
	vals.Cost = cost
	vals.Markup = vals.Profit.Div(cost).Mul(hundred)
	return rounded(vals), nil
}

func solveFromMarkupRevenue(vals Values) (Values, error) {
	if vals.Revenue.Sign() <= 0 {
		return vals, errNonPositive("revenue")
	}
	if vals.Markup.Sign() <= 0 {
		return vals, errNonPositive("markup")
	}
	factor := decimal.NewFromInt(1).Add(vals.Markup.Div(hundred))
	cost := vals.Revenue.Div(factor)
	profit := vals.Revenue.Sub(cost)
	vals.Cost = cost
	vals.Profit = profit
	vals.Margin = profit.Div(vals.Revenue).Mul(hundred)
	return rounded(vals), nil
}

func solveFromMarkupProfit(vals Values) (Values, error) {
	if vals.Profit.Sign() <= 0 {
		return vals, errNonPositive("profit")
	}
	if vals.Markup.Sign() <= 0 {
		return vals, errNonPositive("markup")
	}
	cost := vals.Profit.Mul(hundred).Div(vals.Markup)
	revenue := cost.Add(vals.Profit)
	vals.Cost = cost
	vals.Revenue = revenue
	vals.Margin = vals.Profit.Div(revenue).Mul(hundred)
	return rounded(vals), nil
}

func solveFromRevenueProfit(vals Values) (Values, error) {
	if vals.Profit.Sign() <= 0 {
		return vals, errNonPositive("profit")
	}
	if vals.Profit.GreaterThanOrEqual(vals.Revenue) {
		return vals, pkgerrors.New(pkgerrors.CodeNotComputable, "profit must be below revenue")
	}
	cost := vals.Revenue.Sub(vals.Profit)
	vals.Cost = cost
	vals.Margin = vals.Profit.Div(vals.Revenue).Mul(hundred)
	vals.Markup = vals.Profit.Div(cost).Mul(hundred)
	return rounded(vals), nil
}

// checkMarginBand rejects margins outside (0, 100); at 100 the markup
// conversion divides by zero and above it the factor turns negative.
func checkMarginBand(m decimal.Decimal) error {
	if m.Sign() <= 0 {
		return errNonPositive("margin")
	}
	if m.GreaterThanOrEqual(hundred) {
		return pkgerrors.New(pkgerrors.CodeNotComputable, "margin must be below 100%")
	}
	return nil
}

func errNonPositive(field string) error {
	return pkgerrors.New(pkgerrors.CodeNotComputable, field+" must be positive")
}

// rounded normalizes precision: monetary fields and margin to 2 decimals,
// markup to 4 since it regularly exceeds 100%.
func rounded(vals Values) Values {
	vals.Cost = vals.Cost.Round(2)
	vals.Revenue = vals.Revenue.Round(2)
	vals.Profit = vals.Profit.Round(2)
	vals.Margin = vals.Margin.Round(2)
	vals.Markup = vals.Markup.Round(4)
	return vals
}
