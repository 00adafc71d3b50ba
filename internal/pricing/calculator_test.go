package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarline/bakehouse/pkg/errorbank"
	"github.com/sugarline/bakehouse/pkg/money"
)

func testCalculator() *Calculator {
	return &Calculator{preferredDiscountPct: 10}
}

func baseSelection() Selection {
	return Selection{
		Size:   Size6Inch,
		Tiers:  1,
		Flavor: FlavorVanilla,
		Icing:  IcingButtercream,
	}
}

func TestQuoteBaseOnly(t *testing.T) {
	b := testCalculator().Quote(2000, baseSelection(), false)

	assert.Equal(t, money.Cents(2000), b.BasePrice)
	assert.Equal(t, money.Cents(0), b.SizeUpcharge)
	assert.Equal(t, money.Cents(0), b.TierUpcharge)
	assert.Equal(t, money.Cents(0), b.FillingCost)
	assert.Equal(t, money.Cents(0), b.ColorCost)
	assert.Equal(t, money.Cents(0), b.DecorationCost)
	assert.Equal(t, money.Cents(2000), b.Subtotal)
	assert.Equal(t, money.Cents(0), b.Discount)
	assert.Equal(t, money.Cents(2000), b.Total)
}

func TestQuoteSizeUpchargesMonotonic(t *testing.T) {
	calc := testCalculator()
	sizes := []Size{Size6Inch, Size8Inch, Size10Inch, SizeQuarterSheet, SizeHalfSheet, SizeFullSheet}

	prev := money.Cents(-1)
	for _, size := range sizes {
		sel := baseSelection()
		sel.Size = size
		b := calc.Quote(2000, sel, false)
		assert.Greater(t, int64(b.SizeUpcharge), int64(prev), size)
		prev = b.SizeUpcharge
	}
}

func TestQuoteTierUpchargesMonotonic(t *testing.T) {
	calc := testCalculator()

	prev := money.Cents(-1)
	for tiers := 1; tiers <= MaxTiers; tiers++ {
		sel := baseSelection()
		sel.Tiers = tiers
		b := calc.Quote(2000, sel, false)
		assert.Greater(t, int64(b.TierUpcharge), int64(prev), tiers)
		prev = b.TierUpcharge
	}
}

func TestQuoteFillingAllotment(t *testing.T) {
	calc := testCalculator()

	sel := baseSelection()
	sel.Fillings = []string{"strawberry"}
	assert.Equal(t, money.Cents(0), calc.Quote(2000, sel, false).FillingCost)

	sel.Fillings = []string{"strawberry", "lemon_curd"}
	assert.Equal(t, money.Cents(350), calc.Quote(2000, sel, false).FillingCost)

	sel.Fillings = []string{"strawberry", "lemon_curd", "salted_caramel"}
	assert.Equal(t, money.Cents(700), calc.Quote(2000, sel, false).FillingCost)
}

func TestQuoteColorAllotment(t *testing.T) {
	calc := testCalculator()

	sel := baseSelection()
	sel.Colors = []string{"ivory", "blush"}
	assert.Equal(t, money.Cents(0), calc.Quote(2000, sel, false).ColorCost)

	sel.Colors = []string{"ivory", "blush", "gold"}
	assert.Equal(t, money.Cents(150), calc.Quote(2000, sel, false).ColorCost)

	sel.Colors = []string{"ivory", "blush", "gold", "sage"}
	assert.Equal(t, money.Cents(300), calc.Quote(2000, sel, false).ColorCost)
}

func TestQuoteDecorationFees(t *testing.T) {
	sel := baseSelection()
	sel.Decorations = []string{"gold_leaf", "candles"}

	b := testCalculator().Quote(2000, sel, false)
	assert.Equal(t, money.Cents(1400), b.DecorationCost)
	assert.Equal(t, money.Cents(3400), b.Total)
}

func TestQuotePreferredDiscount(t *testing.T) {
	sel := baseSelection()
	sel.Size = Size8Inch
	sel.Tiers = 2

	calc := testCalculator()
	b := calc.Quote(2000, sel, true)

	// 2000 + 1000 + 1500 = 4500 subtotal; 10% discount = 450.
	assert.Equal(t, money.Cents(4500), b.Subtotal)
	assert.Equal(t, money.Cents(450), b.Discount)
	assert.Equal(t, money.Cents(4050), b.Total)

	// Discount rounds half up, computed once on the subtotal.
	b = calc.Quote(2005, baseSelection(), true)
	assert.Equal(t, money.Cents(201), b.Discount)
	assert.Equal(t, money.Cents(1804), b.Total)
}

func TestQuoteComponentsSumToSubtotal(t *testing.T) {
	sel := Selection{
		Size:        SizeHalfSheet,
		Tiers:       3,
		Flavor:      FlavorRedVelvet,
		Icing:       IcingFondant,
		Fillings:    []string{"raspberry", "bavarian_cream"},
		Colors:      []string{"ivory", "blush", "gold"},
		Decorations: []string{"piped_flowers", "fresh_fruit"},
	}

	b := testCalculator().Quote(3000, sel, true)
	sum := b.BasePrice + b.SizeUpcharge + b.TierUpcharge + b.FillingCost + b.ColorCost + b.DecorationCost
	assert.Equal(t, sum, b.Subtotal)
	assert.Equal(t, b.Subtotal.Sub(b.Discount), b.Total)
}

func TestSelectionValidate(t *testing.T) {
	require.NoError(t, baseSelection().Validate())

	tests := []struct {
		name   string
		mutate func(*Selection)
	}{
		{"unknown size", func(s *Selection) { s.Size = "9_inch" }},
		{"unknown flavor", func(s *Selection) { s.Flavor = "pistachio" }},
		{"unknown icing", func(s *Selection) { s.Icing = "royal" }},
		{"zero tiers", func(s *Selection) { s.Tiers = 0 }},
		{"too many tiers", func(s *Selection) { s.Tiers = MaxTiers + 1 }},
		{"unknown filling", func(s *Selection) { s.Fillings = []string{"nutella"} }},
		{"too many fillings", func(s *Selection) {
			s.Fillings = []string{"strawberry", "raspberry", "lemon_curd", "salted_caramel"}
		}},
		{"blank color", func(s *Selection) { s.Colors = []string{"  "} }},
		{"too many colors", func(s *Selection) {
			s.Colors = []string{"a", "b", "c", "d", "e"}
		}},
		{"unknown decoration", func(s *Selection) { s.Decorations = []string{"sparklers"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := baseSelection()
			tt.mutate(&sel)
			err := sel.Validate()
			require.Error(t, err)
			assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
		})
	}
}
