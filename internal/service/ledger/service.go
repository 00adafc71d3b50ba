package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sugarline/bakehouse/internal/cache"
	"github.com/sugarline/bakehouse/internal/config"
	"github.com/sugarline/bakehouse/internal/dto"
	"github.com/sugarline/bakehouse/internal/entity"
	"github.com/sugarline/bakehouse/internal/messaging"
	repo "github.com/sugarline/bakehouse/internal/repository/ledger"
	ordersvc "github.com/sugarline/bakehouse/internal/service/order"
	"github.com/sugarline/bakehouse/pkg/errorbank"
	"github.com/sugarline/bakehouse/pkg/money"
)

var serviceTracer = otel.Tracer("github.com/sugarline/bakehouse/service/ledger")

// RecordRequest describes one payment to be appended to an order's ledger.
// The optional IdempotencyKey makes retried submissions safe: a second
// request bearing a previously seen key returns the original payment instead
// of writing a duplicate row.
type RecordRequest struct {
	OrderID        int64
	Amount         money.Cents
	PaymentType    string
	PaymentStatus  string
	PaymentDate    time.Time
	Notes          string
	RecordedBy     string
	IdempotencyKey string
}

// Service owns the payment ledger: appending payments and projecting
// balances from the full history.
type Service struct {
	repo      repo.Store
	cache     cache.Store
	logger    *zap.Logger
	publisher messaging.Client
	enabled   bool
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository repo.Store
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		cache:     p.Cache,
		logger:    p.Logger,
		publisher: p.Publisher,
		enabled:   p.Config.Messaging.Enabled,
	}
}

// Record validates and appends a payment. The store applies the write as a
// single atomic unit; no retry happens here, since a blind retry of a
// non-idempotent write could double-apply.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*dto.PaymentResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "LedgerService.Record", trace.WithAttributes(
		attribute.Int64("order.id", req.OrderID),
		attribute.Int64("payment.amount", int64(req.Amount)),
	))
	defer span.End()

	if !req.Amount.IsPositive() {
		return nil, errorbank.BadRequest("payment amount must be positive")
	}
	if !entity.ValidPaymentType(req.PaymentType) {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown payment type %q", req.PaymentType))
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = entity.PaymentStatusCompleted
	}
	if !entity.ValidPaymentStatus(req.PaymentStatus) {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown payment status %q", req.PaymentStatus))
	}
	if req.RecordedBy == "" {
		return nil, errorbank.BadRequest("recorded_by is required")
	}
	if req.PaymentDate.IsZero() {
		req.PaymentDate = time.Now().UTC()
	}

	payment := &entity.Payment{
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		PaymentType:    req.PaymentType,
		PaymentStatus:  req.PaymentStatus,
		PaymentDate:    req.PaymentDate,
		Notes:          req.Notes,
		RecordedBy:     req.RecordedBy,
		IdempotencyKey: req.IdempotencyKey,
	}

	result, err := s.repo.Record(ctx, payment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}

	s.invalidateOrder(ctx, req.OrderID)

	if !result.Duplicate {
		s.publish(ctx, ordersvc.OrderEvent{
			Type:       ordersvc.EventPaymentRecorded,
			OrderID:    req.OrderID,
			Status:     string(result.Order.Status),
			Actor:      req.RecordedBy,
			Amount:     result.Payment.Amount,
			BalanceDue: result.Order.BalanceDue,
			OccurredAt: result.Payment.CreatedAt,
		})
	}

	resp := toPaymentDTO(result.Payment)
	resp.Duplicate = result.Duplicate
	return &resp, nil
}

// Payments returns the ordered payment history plus derived figures. The
// figures are a pure projection recomputed from the full history on every
// call, never a cached column, so the balance always reconciles even after
// concurrent writes.
func (s *Service) Payments(ctx context.Context, orderID int64) (*dto.LedgerResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "LedgerService.Payments", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	payments, order, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}

	return Project(order, payments), nil
}

// Project derives the ledger view for an order from its full payment
// history.
func Project(order *entity.Order, payments []entity.Payment) *dto.LedgerResponse {
	var paid money.Cents
	rows := make([]dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		if p.PaymentStatus == entity.PaymentStatusCompleted {
			paid += p.Amount
		}
		rows = append(rows, toPaymentDTO(&p))
	}

	status := entity.OrderPaymentPending
	switch {
	case paid >= order.TotalAmount && order.TotalAmount > 0:
		status = entity.OrderPaymentPaid
	case paid > 0:
		status = entity.OrderPaymentPartial
	}

	return &dto.LedgerResponse{
		OrderID:         order.ID,
		Payments:        rows,
		TotalPaid:       paid,
		TotalAmount:     order.TotalAmount,
		BalanceDue:      order.TotalAmount.Sub(paid),
		DepositRequired: order.DepositRequired,
		DepositMet:      order.DepositSatisfied(paid),
		PaymentStatus:   status,
	}
}

func (s *Service) publish(ctx context.Context, event ordersvc.OrderEvent) {
	if !s.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal payment event", zap.Error(err))
		}
		return
	}
	key := []byte(fmt.Sprintf("order-%d", event.OrderID))
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish payment event", zap.Error(err))
		}
	}
}

func (s *Service) invalidateOrder(ctx context.Context, orderID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, fmt.Sprintf("orders:%d", orderID)); err != nil && s.logger != nil {
		s.logger.Warn("orders cache invalidation failed", zap.Int64("id", orderID), zap.Error(err))
	}
}

func toPaymentDTO(p *entity.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		PaymentType:   p.PaymentType,
		PaymentStatus: p.PaymentStatus,
		PaymentDate:   p.PaymentDate,
		Notes:         p.Notes,
		RecordedBy:    p.RecordedBy,
	}
}
