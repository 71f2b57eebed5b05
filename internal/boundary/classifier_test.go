package boundary

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func tieredProduct() models.Product {
	return models.Product{
		Code:             "P1",
		Name:             "Farinha Especial 25kg",
		MinimumPrice:     decPtr("50"),
		MaximumPrice:     decPtr("80"),
		PromotionalPrice: decPtr("40"),
	}
}

func regularClient() models.Client {
	return models.Client{Code: "C001", Network: "Rede Norte", Segment: enums.ClientSegmentVarejo}
}

func TestClassifyTierGrid(t *testing.T) {
	tests := []struct {
		price   string
		verdict enums.PriceVerdict
	}{
		{price: "35", verdict: enums.PriceVerdictBlocked},
		{price: "45", verdict: enums.PriceVerdictNeedsEscalation},
		{price: "60", verdict: enums.PriceVerdictAutoApprovable},
		{price: "90", verdict: enums.PriceVerdictRejected},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			got := Classify(regularClient(), tieredProduct(), dec(tt.price), nil)
			assert.Equal(t, tt.verdict, got.Verdict)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestClassifyIsMonotonicInPrice(t *testing.T) {
	order := map[enums.PriceVerdict]int{
		enums.PriceVerdictBlocked:         0,
		enums.PriceVerdictNeedsEscalation: 1,
		enums.PriceVerdictAutoApprovable:  2,
		enums.PriceVerdictRejected:        3,
	}

	prev := -1
	for price := 1; price <= 120; price++ {
		got := Classify(regularClient(), tieredProduct(), decimal.NewFromInt(int64(price)), nil)
		rank := order[got.Verdict]
		assert.GreaterOrEqual(t, rank, prev, "verdict moved backward at price %d", price)
		prev = rank
	}
}

func TestClassifyUsesDiscountedPriceWhenPresent(t *testing.T) {
	// Requested 90 would be rejected, but the discounted 60 is inside the band.
	got := Classify(regularClient(), tieredProduct(), dec("90"), decPtr("60"))
	assert.Equal(t, enums.PriceVerdictAutoApprovable, got.Verdict)
	assert.True(t, got.EffectivePrice.Equal(dec("60")))
}

func TestClassifyBoundaryValuesAreInclusive(t *testing.T) {
	atMin := Classify(regularClient(), tieredProduct(), dec("50"), nil)
	assert.Equal(t, enums.PriceVerdictAutoApprovable, atMin.Verdict)

	atMax := Classify(regularClient(), tieredProduct(), dec("80"), nil)
	assert.Equal(t, enums.PriceVerdictAutoApprovable, atMax.Verdict)

	atPromo := Classify(regularClient(), tieredProduct(), dec("40"), nil)
	assert.Equal(t, enums.PriceVerdictNeedsEscalation, atPromo.Verdict)
}

func TestClassifyMissingTiersDisableChecks(t *testing.T) {
	product := models.Product{Code: "P2", Name: "Item sem tabela"}

	got := Classify(regularClient(), product, dec("9999"), nil)
	assert.Equal(t, enums.PriceVerdictAutoApprovable, got.Verdict)
}

func TestClassifySensitiveSegmentRequiresExactTablePrice(t *testing.T) {
	client := models.Client{Code: "C002", Network: "Rede Norte", Segment: enums.ClientSegmentPadaria}
	product := tieredProduct()

	exact := Classify(client, product, dec("80"), nil)
	assert.Equal(t, enums.PriceVerdictAutoApprovable, exact.Verdict)

	// Inside the normal band, still refused for the sensitive segment.
	below := Classify(client, product, dec("60"), nil)
	assert.Equal(t, enums.PriceVerdictRejected, below.Verdict)

	// The override checks the pre-discount price even when a discount applies.
	discounted := Classify(client, product, dec("79"), decPtr("75"))
	assert.Equal(t, enums.PriceVerdictRejected, discounted.Verdict)
}

func TestClassifySensitiveSegmentWithoutMaximumIsRejected(t *testing.T) {
	client := models.Client{Code: "C003", Network: "Rede Norte", Segment: enums.ClientSegmentRestaurante}
	product := models.Product{Code: "P3", Name: "Produto sem teto"}

	got := Classify(client, product, dec("10"), nil)
	assert.Equal(t, enums.PriceVerdictRejected, got.Verdict)
}
