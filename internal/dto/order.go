package dto

import (
	"time"

	"github.com/sugarline/bakehouse/internal/pricing"
	"github.com/sugarline/bakehouse/internal/scheduling"
	"github.com/sugarline/bakehouse/pkg/money"
)

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID         int64 `json:"id"`
	CustomerID int64 `json:"customer_id"`
	ProductID  int64 `json:"product_id"`

	Size        string   `json:"size"`
	Tiers       int      `json:"tiers"`
	Flavor      string   `json:"flavor"`
	Icing       string   `json:"icing"`
	Fillings    []string `json:"fillings,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	Decorations []string `json:"decorations,omitempty"`
	Notes       string   `json:"notes,omitempty"`

	TotalAmount     money.Cents `json:"total_amount"`
	DepositRequired money.Cents `json:"deposit_required"`
	DepositMet      bool        `json:"deposit_met"`
	BalanceDue      money.Cents `json:"balance_due"`

	Status      string `json:"status"`
	IsRushOrder bool   `json:"is_rush_order"`
	Editable    bool   `json:"editable"`
	LockReason  string `json:"lock_reason,omitempty"`

	PickupDate time.Time `json:"pickup_date"`
	PickupTime string    `json:"pickup_time"`

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuoteResponse is the out-of-band pricing preview the order wizard renders
// before submission. No order is created.
type QuoteResponse struct {
	Breakdown pricing.Breakdown     `json:"breakdown"`
	Schedule  scheduling.Assessment `json:"schedule"`

	DepositPercent  int         `json:"deposit_percent"`
	DepositRequired money.Cents `json:"deposit_required"`
	BalanceAfter    money.Cents `json:"balance_after_deposit"`
}

// PaymentResponse represents a single ledger row.
type PaymentResponse struct {
	ID            int64       `json:"id"`
	OrderID       int64       `json:"order_id"`
	Amount        money.Cents `json:"amount"`
	PaymentType   string      `json:"payment_type"`
	PaymentStatus string      `json:"payment_status"`
	PaymentDate   time.Time   `json:"payment_date"`
	Notes         string      `json:"notes,omitempty"`
	RecordedBy    string      `json:"recorded_by"`
	Duplicate     bool        `json:"duplicate,omitempty"`
}

// LedgerResponse is the payment projection for an order: the ordered payment
// history plus figures recomputed from it on every read.
type LedgerResponse struct {
	OrderID         int64             `json:"order_id"`
	Payments        []PaymentResponse `json:"payments"`
	TotalPaid       money.Cents       `json:"total_paid"`
	TotalAmount     money.Cents       `json:"total_amount"`
	BalanceDue      money.Cents       `json:"balance_due"`
	DepositRequired money.Cents       `json:"deposit_required"`
	DepositMet      bool              `json:"deposit_met"`
	PaymentStatus   string            `json:"payment_status"`
}

// AuditEntryResponse represents one audit trail row.
type AuditEntryResponse struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	EventType  string    `json:"event_type"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status,omitempty"`
	Actor      string    `json:"actor"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
