package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sugarline/bakehouse/internal/database"
	"github.com/sugarline/bakehouse/internal/entity"
	"github.com/sugarline/bakehouse/internal/lifecycle"
	"github.com/sugarline/bakehouse/pkg/errorbank"
	"github.com/sugarline/bakehouse/pkg/money"
)

var repoTracer = otel.Tracer("github.com/sugarline/bakehouse/repository/ledger")

// RecordResult is the outcome of recording a payment: the ledger row, the
// order as updated in the same transaction, and whether an idempotency key
// matched a previously recorded payment instead of writing a new row.
type RecordResult struct {
	Payment   *entity.Payment
	Order     *entity.Order
	Duplicate bool
}

// Store is the persistence contract the ledger service consumes.
type Store interface {
	Record(ctx context.Context, payment *entity.Payment) (*RecordResult, error)
	ListByOrder(ctx context.Context, orderID int64) ([]entity.Payment, *entity.Order, error)
}

// Repository provides append-only access to the payment ledger. Rows are
// never edited or deleted; corrections are new rows.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Record appends a payment and rederives the order's balance, deposit, and
// audit trail in one transaction. The order row is locked for the duration;
// concurrent writers serialize behind the lock, so the recomputed figures
// always reconcile with the full payment history.
func (r *Repository) Record(ctx context.Context, payment *entity.Payment) (*RecordResult, error) {
	if payment == nil {
		return nil, errorbank.BadRequest("nil payment")
	}
	ctx, span := repoTracer.Start(ctx, "LedgerRepository.Record", trace.WithAttributes(
		attribute.Int64("order.id", payment.OrderID),
		attribute.Int64("payment.amount", int64(payment.Amount)),
	))
	defer span.End()

	result := new(RecordResult)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		order := new(entity.Order)
		err := tx.NewSelect().Model(order).Where("id = ?", payment.OrderID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return errorbank.NotFound("order not found")
		}
		if err != nil {
			return errorbank.Storage("failed to load order", errorbank.WithCause(err))
		}
		if order.Status == lifecycle.StatusCancelled {
			return errorbank.OrderClosed("payments cannot be recorded against a cancelled order")
		}

		if payment.IdempotencyKey != "" {
			existing := new(entity.Payment)
			err := tx.NewSelect().Model(existing).
				Where("order_id = ?", payment.OrderID).
				Where("idempotency_key = ?", payment.IdempotencyKey).
				Scan(ctx)
			if err == nil {
				result.Payment = existing
				result.Order = order
				result.Duplicate = true
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return errorbank.Storage("failed to check idempotency key", errorbank.WithCause(err))
			}
		}

		paid, err := completedTotal(ctx, tx, payment.OrderID)
		if err != nil {
			return err
		}
		if payment.PaymentStatus == entity.PaymentStatusCompleted && paid+payment.Amount > order.TotalAmount {
			return errorbank.Unprocessable(
				fmt.Sprintf("payment of %s exceeds the outstanding balance of %s",
					payment.Amount, order.TotalAmount.Sub(paid)),
			)
		}

		now := time.Now().UTC()
		payment.CreatedAt = now
		if _, err := tx.NewInsert().Model(payment).Exec(ctx); err != nil {
			return errorbank.Storage("failed to record payment", errorbank.WithCause(err))
		}

		if payment.PaymentStatus == entity.PaymentStatusCompleted {
			paid += payment.Amount
		}
		order.BalanceDue = order.TotalAmount.Sub(paid)
		// depositMet never reverts once crossed.
		order.DepositMet = order.DepositMet || order.DepositSatisfied(paid)
		order.UpdatedAt = now
		_, err = tx.NewUpdate().Model(order).
			Column("balance_due", "deposit_met", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errorbank.Storage("failed to update order balance", errorbank.WithCause(err))
		}

		audit := &entity.AuditEntry{
			OrderID:   payment.OrderID,
			EventType: entity.AuditPaymentRecorded,
			Actor:     payment.RecordedBy,
			Detail:    fmt.Sprintf("%s %s payment (%s)", payment.Amount, payment.PaymentType, payment.PaymentStatus),
			CreatedAt: now,
		}
		if _, err := tx.NewInsert().Model(audit).Exec(ctx); err != nil {
			return errorbank.Storage("failed to append audit entry", errorbank.WithCause(err))
		}

		result.Payment = payment
		result.Order = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record failed")
		return nil, err
	}
	return result, nil
}

// ListByOrder returns the order and its payments, oldest first. Derived
// figures are left to the caller, which recomputes them from the full
// history on every read.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]entity.Payment, *entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "LedgerRepository.ListByOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", orderID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, errorbank.NotFound("order not found")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, nil, errorbank.Storage("failed to load order", errorbank.WithCause(err))
	}

	var payments []entity.Payment
	err = r.reader.NewSelect().Model(&payments).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, nil, errorbank.Storage("failed to load payments", errorbank.WithCause(err))
	}
	return payments, order, nil
}

func completedTotal(ctx context.Context, tx bun.Tx, orderID int64) (money.Cents, error) {
	var paid int64
	err := tx.NewSelect().Model((*entity.Payment)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0)").
		Where("order_id = ?", orderID).
		Where("payment_status = ?", entity.PaymentStatusCompleted).
		Scan(ctx, &paid)
	if err != nil {
		return 0, errorbank.Storage("failed to sum payments", errorbank.WithCause(err))
	}
	return money.Cents(paid), nil
}
