package deposit

import (
	"go.uber.org/fx"

	"github.com/sugarline/bakehouse/internal/config"
	"github.com/sugarline/bakehouse/pkg/money"
)

// Terms describes the deposit obligation derived from an order total.
type Terms struct {
	Percent         int         `json:"percent"`
	DepositRequired money.Cents `json:"deposit_required"`
	BalanceAfter    money.Cents `json:"balance_after_deposit"`
}

// Policy computes deposit obligations. Rush orders carry a higher
// percentage. Pure function of its inputs.
type Policy struct {
	StandardPercent int
	RushPercent     int
}

// Module provides the deposit policy to Fx.
var Module = fx.Provide(NewPolicy)

// NewPolicy builds a Policy from configuration.
func NewPolicy(cfg config.Config) Policy {
	return Policy{
		StandardPercent: cfg.Policy.DepositPercent,
		RushPercent:     cfg.Policy.RushDepositPercent,
	}
}

// Terms derives the deposit required for a total. The percentage is applied
// once to the total with half-up rounding; the remaining balance is the
// untouched difference.
func (p Policy) Terms(total money.Cents, rush bool) Terms {
	pct := p.StandardPercent
	if rush {
		pct = p.RushPercent
	}
	required := total.Percent(pct)
	return Terms{
		Percent:         pct,
		DepositRequired: required,
		BalanceAfter:    total.Sub(required),
	}
}
