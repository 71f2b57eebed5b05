package discount

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
)

// ParsePercent accepts locale-formatted percentage strings as they arrive
// from the discount tables: "5", "5.5", "5,5" and any of those with a
// trailing "%". The result is the plain percentage value.
func ParsePercent(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "percentage value is empty")
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid percentage value").
			WithDetails(map[string]any{"value": raw})
	}
	if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "percentage must be between 0 and 100").
			WithDetails(map[string]any{"value": raw})
	}
	return value, nil
}
