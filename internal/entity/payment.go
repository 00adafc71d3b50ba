package entity

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/sugarline/bakehouse/pkg/money"
)

// Payment methods accepted at the counter.
const (
	PaymentTypeCash  = "cash"
	PaymentTypeCard  = "card"
	PaymentTypeCheck = "check"
	PaymentTypeOther = "other"
)

// Per-row settlement states.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// Derived order-level payment progress, recomputed from the full ledger.
const (
	OrderPaymentPending = "pending"
	OrderPaymentPartial = "partial"
	OrderPaymentPaid    = "paid"
)

// Payment is one settled or pending payment event in an order's ledger.
// Rows are immutable once written; corrections are new compensating rows.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID             int64       `bun:",pk,autoincrement"`
	OrderID        int64       `bun:"order_id"`
	Amount         money.Cents `bun:"amount"`
	PaymentType    string      `bun:"payment_type"`
	PaymentStatus  string      `bun:"payment_status"`
	PaymentDate    time.Time   `bun:"payment_date"`
	Notes          string      `bun:"notes,nullzero"`
	RecordedBy     string      `bun:"recorded_by"`
	IdempotencyKey string      `bun:"idempotency_key,nullzero"`
	CreatedAt      time.Time   `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// ValidPaymentType reports whether t is an accepted payment method.
func ValidPaymentType(t string) bool {
	switch t {
	case PaymentTypeCash, PaymentTypeCard, PaymentTypeCheck, PaymentTypeOther:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a recognized settlement state.
func ValidPaymentStatus(s string) bool {
	return s == PaymentStatusPending || s == PaymentStatusCompleted
}
