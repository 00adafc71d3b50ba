package pricing

import (
	"go.uber.org/fx"

	"github.com/sugarline/bakehouse/internal/config"
	"github.com/sugarline/bakehouse/pkg/money"
)

// sizeUpcharges is keyed by cake size and increases monotonically with size.
var sizeUpcharges = map[Size]money.Cents{
	Size6Inch:        0,
	Size8Inch:        1000,
	Size10Inch:       2000,
	SizeQuarterSheet: 3000,
	SizeHalfSheet:    4500,
	SizeFullSheet:    6500,
}

// tierUpcharges maps tier count to the cumulative upcharge. One tier is
// free; increments grow but are not uniform.
var tierUpcharges = map[int]money.Cents{
	1: 0,
	2: 1500,
	3: 3500,
	4: 6000,
}

// fillingOptions lists the recognized fillings. The value is unused; the
// per-extra fee is flat.
var fillingOptions = map[string]struct{}{
	"strawberry":       {},
	"raspberry":        {},
	"bavarian_cream":   {},
	"chocolate_mousse": {},
	"lemon_curd":       {},
	"salted_caramel":   {},
}

// decorationFees is a flat per-item fee schedule.
var decorationFees = map[string]money.Cents{
	"piped_flowers":  500,
	"fondant_figure": 800,
	"edible_glitter": 300,
	"gold_leaf":      1200,
	"fresh_fruit":    600,
	"chocolate_drip": 400,
	"cake_topper":    700,
	"candles":        200,
}

const (
	// freeFillings fillings beyond this count incur extraFillingFee each.
	freeFillings    = 1
	extraFillingFee = money.Cents(350)

	// freeColors colors beyond this count incur extraColorFee each.
	freeColors    = 2
	extraColorFee = money.Cents(150)
)

// Breakdown is the priced result of a customization. It is produced fresh on
// every request and never mutated in place.
type Breakdown struct {
	BasePrice      money.Cents `json:"base_price"`
	SizeUpcharge   money.Cents `json:"size_upcharge"`
	TierUpcharge   money.Cents `json:"tier_upcharge"`
	FillingCost    money.Cents `json:"filling_cost"`
	ColorCost      money.Cents `json:"color_cost"`
	DecorationCost money.Cents `json:"decoration_cost"`
	Subtotal       money.Cents `json:"subtotal"`
	Discount       money.Cents `json:"discount"`
	Total          money.Cents `json:"total"`
}

// Calculator prices customization selections. It is a pure function of its
// inputs; the only configuration is the preferred-customer discount rate.
type Calculator struct {
	preferredDiscountPct int
}

// Module provides the pricing calculator to Fx.
var Module = fx.Provide(NewCalculator)

// NewCalculator builds a Calculator from policy configuration.
func NewCalculator(cfg config.Config) *Calculator {
	return &Calculator{preferredDiscountPct: cfg.Policy.PreferredDiscountPercent}
}

// Quote prices the selection on top of the base product price. The caller is
// expected to have validated the selection; unrecognized entries price at
// zero here. The preferred discount is computed once on the full subtotal,
// rounding half up, and never re-rounded downstream.
func (c *Calculator) Quote(basePrice money.Cents, sel Selection, preferred bool) Breakdown {
	b := Breakdown{
		BasePrice:    basePrice,
		SizeUpcharge: sizeUpcharges[sel.Size],
		TierUpcharge: tierUpcharges[sel.Tiers],
	}

	if extra := len(sel.Fillings) - freeFillings; extra > 0 {
		b.FillingCost = money.Cents(extra) * extraFillingFee
	}
	if extra := len(sel.Colors) - freeColors; extra > 0 {
		b.ColorCost = money.Cents(extra) * extraColorFee
	}
	for _, d := range sel.Decorations {
		b.DecorationCost += decorationFees[d]
	}

	b.Subtotal = b.BasePrice + b.SizeUpcharge + b.TierUpcharge +
		b.FillingCost + b.ColorCost + b.DecorationCost

	if preferred {
		b.Discount = b.Subtotal.Percent(c.preferredDiscountPct)
	}
	b.Total = b.Subtotal.Sub(b.Discount)

	return b
}
