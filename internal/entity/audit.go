package entity

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/sugarline/bakehouse/internal/lifecycle"
)

// Audit event types.
const (
	AuditStatusChanged   = "status_changed"
	AuditCancelled       = "cancelled"
	AuditPaymentRecorded = "payment_recorded"
)

// AuditEntry is one immutable row in the order audit trail. Exactly one
// entry is written per successful mutation, in the same transaction.
type AuditEntry struct {
	bun.BaseModel `bun:"table:audit_entries"`

	ID         int64            `bun:",pk,autoincrement"`
	OrderID    int64            `bun:"order_id"`
	EventType  string           `bun:"event_type"`
	FromStatus lifecycle.Status `bun:"from_status,nullzero"`
	ToStatus   lifecycle.Status `bun:"to_status,nullzero"`
	Actor      string           `bun:"actor"`
	Detail     string           `bun:"detail,nullzero"`
	CreatedAt  time.Time        `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
