package boundary

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
)

// Classification is the outcome of checking a price against a product's
// boundary tiers, with the thresholds spelled out so refusals can be
// explained to the requester.
type Classification struct {
	Verdict        enums.PriceVerdict `json:"verdict"`
	Reason         string             `json:"reason"`
	EffectivePrice decimal.Decimal    `json:"effective_price"`

	Minimum     *decimal.Decimal `json:"minimum,omitempty"`
	Maximum     *decimal.Decimal `json:"maximum,omitempty"`
	Promotional *decimal.Decimal `json:"promotional,omitempty"`
}

// Classify decides the approval route for a requested price. The effective
// price is the discounted price when a rule matched, else the raw requested
// price. Sensitive segments bypass the tier checks entirely: their requested
// price (pre-discount) must equal the product maximum exactly.
//
// Tier checks run in priority order: above maximum, below promotional floor,
// below minimum floor, then auto-approvable. An absent tier disables its
// check.
func Classify(client models.Client, product models.Product, requestedPrice decimal.Decimal, discountedPrice *decimal.Decimal) Classification {
	effective := requestedPrice
	if discountedPrice != nil {
		effective = *discountedPrice
	}

	result := Classification{
		EffectivePrice: effective,
		Minimum:        product.MinimumPrice,
		Maximum:        product.MaximumPrice,
		Promotional:    product.PromotionalPrice,
	}

	if client.Segment.IsSensitive() {
		if product.MaximumPrice == nil {
			result.Verdict = enums.PriceVerdictRejected
			result.Reason = fmt.Sprintf("segment %s requires the table price, but product %s has no maximum price defined", client.Segment, product.Code)
			return result
		}
		if !requestedPrice.Equal(*product.MaximumPrice) {
			result.Verdict = enums.PriceVerdictRejected
			result.Reason = fmt.Sprintf("segment %s must buy at the exact table price %s, requested %s", client.Segment, product.MaximumPrice, requestedPrice)
			return result
		}
		result.Verdict = enums.PriceVerdictAutoApprovable
		result.Reason = fmt.Sprintf("requested price matches the table price %s required for segment %s", product.MaximumPrice, client.Segment)
		return result
	}

	if product.MaximumPrice != nil && effective.GreaterThan(*product.MaximumPrice) {
		result.Verdict = enums.PriceVerdictRejected
		result.Reason = fmt.Sprintf("effective price %s exceeds the maximum %s; lower the price and resubmit", effective, product.MaximumPrice)
		return result
	}

	if product.PromotionalPrice != nil && effective.LessThan(*product.PromotionalPrice) {
		result.Verdict = enums.PriceVerdictBlocked
		result.Reason = fmt.Sprintf("effective price %s is below the promotional floor %s; no approval path exists", effective, product.PromotionalPrice)
		return result
	}

	if product.MinimumPrice != nil && effective.LessThan(*product.MinimumPrice) {
		result.Verdict = enums.PriceVerdictNeedsEscalation
		result.Reason = fmt.Sprintf("effective price %s is below the minimum %s and needs manager approval", effective, product.MinimumPrice)
		return result
	}

	result.Verdict = enums.PriceVerdictAutoApprovable
	result.Reason = "effective price is within the allowed band"
	return result
}
