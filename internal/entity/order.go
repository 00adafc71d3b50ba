package entity

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/sugarline/bakehouse/internal/lifecycle"
	"github.com/sugarline/bakehouse/pkg/money"
)

// Order is the central aggregate: a priced, scheduled, customized cake order
// stored in the relational database. Orders are never physically deleted;
// cancellation is a terminal status.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID         int64 `bun:",pk,autoincrement"`
	CustomerID int64 `bun:"customer_id"`
	ProductID  int64 `bun:"product_id"`

	Size        string   `bun:"size"`
	Tiers       int      `bun:"tiers"`
	Flavor      string   `bun:"flavor"`
	Icing       string   `bun:"icing"`
	Fillings    []string `bun:"fillings,array"`
	Colors      []string `bun:"colors,array"`
	Decorations []string `bun:"decorations,array"`
	Notes       string   `bun:"notes"`

	TotalAmount     money.Cents `bun:"total_amount"`
	DepositRequired money.Cents `bun:"deposit_required"`
	DepositMet      bool        `bun:"deposit_met"`
	BalanceDue      money.Cents `bun:"balance_due"`

	Status      lifecycle.Status `bun:"status"`
	IsRushOrder bool             `bun:"is_rush_order"`

	PickupDate time.Time `bun:"pickup_date"`
	PickupTime string    `bun:"pickup_time"`

	CancellationReason string    `bun:"cancellation_reason,nullzero"`
	CancelledAt        time.Time `bun:"cancelled_at,nullzero"`
	CancelledBy        string    `bun:"cancelled_by,nullzero"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `bun:"updated_at,nullzero"`
}

// DepositSatisfied reports whether the completed-payment total covers the
// deposit requirement. The stored DepositMet column and every projection
// derive from this one rule, so a zero-deposit order counts as satisfied
// from the start.
func (o *Order) DepositSatisfied(paid money.Cents) bool {
	return paid >= o.DepositRequired
}
