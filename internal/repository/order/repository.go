package order

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

var repoTracer = otel.Tracer("github.com/sugarline/bakehouse/repository/order")

// Store is the persistence contract the order service consumes. Every
// mutating call is a single atomic unit: state change and audit entry commit
// together or not at all.
type Store interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	AdvanceStatus(ctx context.Context, id int64, from, to lifecycle.Status, actor string) (*entity.Order, error)
	Cancel(ctx context.Context, id int64, reason, actor string) (*entity.Order, error)
	UpdateDetails(ctx context.Context, order *entity.Order) (*entity.Order, error)
	AuditByOrder(ctx context.Context, orderID int64) ([]entity.AuditEntry, error)
}

// Repository encapsulates read/write access for orders and their audit
// trail.
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

// Create persists a new order using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errorbank.BadRequest("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.Int64("order.customer_id", order.CustomerID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return errorbank.Storage("failed to create order", errorbank.WithCause(err))
	}
	return nil
}

// GetByID fetches an order by primary key using the read replica when
// available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, errorbank.NotFound("order not found")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, errorbank.Storage("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

// AdvanceStatus moves the order from one status to the next using a
// compare-and-swap on the status column. If the row no longer carries the
// expected status the write is rejected and nothing is persisted, audit
// entry included.
func (r *Repository) AdvanceStatus(ctx context.Context, id int64, from, to lifecycle.Status, actor string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.AdvanceStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status.from", string(from)),
		attribute.String("order.status.to", string(to)),
	))
	defer span.End()

	updated := new(entity.Order)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()
		res, err := tx.NewUpdate().Model((*entity.Order)(nil)).
			Set("status = ?", to).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("status = ?", from).
			Exec(ctx)
		if err != nil {
			return errorbank.Storage("failed to update order status", errorbank.WithCause(err))
		}
		if err := ensureSwapped(ctx, tx, res, id); err != nil {
			return err
		}

		audit := &entity.AuditEntry{
			OrderID:    id,
			EventType:  entity.AuditStatusChanged,
			FromStatus: from,
			ToStatus:   to,
			Actor:      actor,
			CreatedAt:  now,
		}
		if _, err := tx.NewInsert().Model(audit).Exec(ctx); err != nil {
			return errorbank.Storage("failed to append audit entry", errorbank.WithCause(err))
		}

		return scanOrder(ctx, tx, id, updated)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "advance failed")
		return nil, err
	}
	return updated, nil
}

// Cancel moves a pending order to cancelled, setting the cancellation
// fields, with the same compare-and-swap discipline as AdvanceStatus.
// Cancellation and status advance are mutually exclusive at the row level.
func (r *Repository) Cancel(ctx context.Context, id int64, reason, actor string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	updated := new(entity.Order)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()
		res, err := tx.NewUpdate().Model((*entity.Order)(nil)).
			Set("status = ?", lifecycle.StatusCancelled).
			Set("cancellation_reason = ?", reason).
			Set("cancelled_at = ?", now).
			Set("cancelled_by = ?", actor).
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("status = ?", lifecycle.StatusPending).
			Exec(ctx)
		if err != nil {
			return errorbank.Storage("failed to cancel order", errorbank.WithCause(err))
		}
		if err := ensureSwapped(ctx, tx, res, id); err != nil {
			return err
		}

		audit := &entity.AuditEntry{
			OrderID:    id,
			EventType:  entity.AuditCancelled,
			FromStatus: lifecycle.StatusPending,
			ToStatus:   lifecycle.StatusCancelled,
			Actor:      actor,
			Detail:     reason,
			CreatedAt:  now,
		}
		if _, err := tx.NewInsert().Model(audit).Exec(ctx); err != nil {
			return errorbank.Storage("failed to append audit entry", errorbank.WithCause(err))
		}

		return scanOrder(ctx, tx, id, updated)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		return nil, err
	}
	return updated, nil
}

// UpdateDetails rewrites the mutable customization, schedule, and pricing
// fields of a pending order. The order row is locked for the duration so the
// paid sum used to rederive the balance cannot drift mid-write.
func (r *Repository) UpdateDetails(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	if order == nil {
		return nil, errorbank.BadRequest("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateDetails", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	updated := new(entity.Order)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current := new(entity.Order)
		err := tx.NewSelect().Model(current).Where("id = ?", order.ID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return errorbank.NotFound("order not found")
		}
		if err != nil {
			return errorbank.Storage("failed to load order", errorbank.WithCause(err))
		}
		if err := lifecycle.EnsureEditable(current.Status); err != nil {
			return err
		}

		paid, err := completedTotal(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if paid > order.TotalAmount {
			return errorbank.Unprocessable(
				fmt.Sprintf("new total %s is below the %s already paid", order.TotalAmount, paid),
			)
		}

		order.BalanceDue = order.TotalAmount.Sub(paid)
		order.DepositMet = current.DepositMet || order.DepositSatisfied(paid)
		order.UpdatedAt = time.Now().UTC()

		_, err = tx.NewUpdate().Model(order).
			Column("size", "tiers", "flavor", "icing", "fillings", "colors", "decorations", "notes",
				"total_amount", "deposit_required", "deposit_met", "balance_due",
				"is_rush_order", "pickup_date", "pickup_time", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return errorbank.Storage("failed to update order", errorbank.WithCause(err))
		}

		return scanOrder(ctx, tx, order.ID, updated)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}
	return updated, nil
}

// AuditByOrder returns the audit trail for an order, oldest first.
func (r *Repository) AuditByOrder(ctx context.Context, orderID int64) ([]entity.AuditEntry, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.AuditByOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var entries []entity.AuditEntry
	err := r.reader.NewSelect().Model(&entries).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, errorbank.Storage("failed to load audit trail", errorbank.WithCause(err))
	}
	return entries, nil
}

// ensureSwapped classifies a zero-row compare-and-swap: either the order is
// gone or another writer changed the status first.
func ensureSwapped(ctx context.Context, tx bun.Tx, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errorbank.Storage("failed to inspect update result", errorbank.WithCause(err))
	}
	if n > 0 {
		return nil
	}
	exists, err := tx.NewSelect().Model((*entity.Order)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return errorbank.Storage("failed to inspect order", errorbank.WithCause(err))
	}
	if !exists {
		return errorbank.NotFound("order not found")
	}
	return errorbank.Conflict("order status changed concurrently")
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

func scanOrder(ctx context.Context, tx bun.Tx, id int64, dst *entity.Order) error {
	if err := tx.NewSelect().Model(dst).Where("id = ?", id).Scan(ctx); err != nil {
		return errorbank.Storage("failed to reload order", errorbank.WithCause(err))
	}
	return nil
}
