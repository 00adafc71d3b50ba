package order

import (
	"context"
	"encoding/json"
	"errors"
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
	"github.com/sugarline/bakehouse/internal/deposit"
	"github.com/sugarline/bakehouse/internal/dto"
	"github.com/sugarline/bakehouse/internal/entity"
	"github.com/sugarline/bakehouse/internal/lifecycle"
	"github.com/sugarline/bakehouse/internal/messaging"
	"github.com/sugarline/bakehouse/internal/pricing"
	repo "github.com/sugarline/bakehouse/internal/repository/order"
	"github.com/sugarline/bakehouse/internal/scheduling"
	"github.com/sugarline/bakehouse/pkg/errorbank"
	"github.com/sugarline/bakehouse/pkg/money"
)

var serviceTracer = otel.Tracer("github.com/sugarline/bakehouse/service/order")

// DraftOrder is the immutable order submission assembled step-by-step by the
// creation wizard and submitted atomically. The core never depends on
// client-held intermediate state.
type DraftOrder struct {
	CustomerID   int64
	ProductID    int64
	BasePrice    money.Cents
	Preferred    bool
	RushApproved bool
	Selection    pricing.Selection
	PickupDate   time.Time
	PickupTime   string
}

// Service owns order pricing, creation, and lifecycle transitions.
type Service struct {
	repo      repo.Store
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig

	calculator *pricing.Calculator
	schedule   scheduling.Policy
	deposits   deposit.Policy
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository repo.Store
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
	Calculator *pricing.Calculator
	Scheduler  scheduling.Policy
	Deposits   deposit.Policy
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:       p.Repository,
		cache:      p.Cache,
		cacheTTL:   p.Config.Cache.DefaultTTL,
		logger:     p.Logger,
		publisher:  p.Publisher,
		calculator: p.Calculator,
		schedule:   p.Scheduler,
		deposits:   p.Deposits,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Quote prices a draft without creating anything: the wizard's review step.
// The schedule assessment is returned as-is so the UI can surface rejection
// reasons and the rush flag next to the figures.
func (s *Service) Quote(ctx context.Context, draft DraftOrder) (*dto.QuoteResponse, error) {
	_, span := serviceTracer.Start(ctx, "OrderService.Quote")
	defer span.End()

	if draft.BasePrice < 0 {
		return nil, errorbank.BadRequest("base price must not be negative")
	}
	if err := draft.Selection.Validate(); err != nil {
		return nil, err
	}

	assessment := s.schedule.Evaluate(draft.PickupDate, time.Now(), draft.RushApproved)
	breakdown := s.calculator.Quote(draft.BasePrice, draft.Selection, draft.Preferred)
	terms := s.deposits.Terms(breakdown.Total, assessment.Rush)

	return &dto.QuoteResponse{
		Breakdown:       breakdown,
		Schedule:        assessment,
		DepositPercent:  terms.Percent,
		DepositRequired: terms.DepositRequired,
		BalanceAfter:    terms.BalanceAfter,
	}, nil
}

// Create prices and persists a draft as a pending order.
func (s *Service) Create(ctx context.Context, draft DraftOrder) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.Int64("order.customer_id", draft.CustomerID)))
	defer span.End()

	if draft.CustomerID <= 0 {
		return nil, errorbank.BadRequest("customer id is required")
	}
	if draft.ProductID <= 0 {
		return nil, errorbank.BadRequest("product id is required")
	}
	if draft.BasePrice < 0 {
		return nil, errorbank.BadRequest("base price must not be negative")
	}
	if err := draft.Selection.Validate(); err != nil {
		return nil, err
	}

	assessment := s.schedule.Evaluate(draft.PickupDate, time.Now(), draft.RushApproved)
	if !assessment.Valid {
		return nil, errorbank.BadRequest(assessment.RejectionReason)
	}

	breakdown := s.calculator.Quote(draft.BasePrice, draft.Selection, draft.Preferred)
	terms := s.deposits.Terms(breakdown.Total, assessment.Rush)

	now := time.Now().UTC()
	order := &entity.Order{
		CustomerID:      draft.CustomerID,
		ProductID:       draft.ProductID,
		Size:            string(draft.Selection.Size),
		Tiers:           draft.Selection.Tiers,
		Flavor:          string(draft.Selection.Flavor),
		Icing:           string(draft.Selection.Icing),
		Fillings:        draft.Selection.Fillings,
		Colors:          draft.Selection.Colors,
		Decorations:     draft.Selection.Decorations,
		Notes:           draft.Selection.Notes,
		TotalAmount:     breakdown.Total,
		DepositRequired: terms.DepositRequired,
		BalanceDue:      breakdown.Total,
		Status:          lifecycle.StatusPending,
		IsRushOrder:     assessment.Rush,
		PickupDate:      draft.PickupDate,
		PickupTime:      draft.PickupTime,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.DepositMet = order.DepositSatisfied(0)

	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}

	s.refreshCache(ctx, order)
	s.publish(ctx, OrderEvent{
		Type:       EventOrderCreated,
		OrderID:    order.ID,
		Status:     string(order.Status),
		BalanceDue: order.BalanceDue,
		OccurredAt: now,
	})

	return order, nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}

	s.refreshCache(ctx, order)
	return order, nil
}

// Advance moves the order to the next lifecycle stage. The store performs
// the transition as a compare-and-swap; a concurrent writer that gets there
// first surfaces as Conflict and nothing is recorded.
func (s *Service) Advance(ctx context.Context, id int64, actor string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Advance", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if actor == "" {
		return nil, errorbank.BadRequest("actor is required")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := lifecycle.Advance(current.Status)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.AdvanceStatus(ctx, id, current.Status, next, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}

	s.refreshCache(ctx, updated)
	s.publish(ctx, OrderEvent{
		Type:       EventStatusChanged,
		OrderID:    updated.ID,
		FromStatus: string(current.Status),
		Status:     string(updated.Status),
		Actor:      actor,
		BalanceDue: updated.BalanceDue,
		OccurredAt: updated.UpdatedAt,
	})

	return updated, nil
}

// Cancel moves a pending order to the terminal cancelled status. The row is
// kept forever; cancellation is a status, not a deletion.
func (s *Service) Cancel(ctx context.Context, id int64, reason, actor string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.ValidateCancellation(current.Status, reason, actor); err != nil {
		return nil, err
	}

	updated, err := s.repo.Cancel(ctx, id, reason, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}

	s.refreshCache(ctx, updated)
	s.publish(ctx, OrderEvent{
		Type:       EventOrderCancelled,
		OrderID:    updated.ID,
		FromStatus: string(current.Status),
		Status:     string(updated.Status),
		Actor:      actor,
		BalanceDue: updated.BalanceDue,
		OccurredAt: updated.UpdatedAt,
	})

	return updated, nil
}

// UpdateDetails replaces the customization and schedule of a pending order
// and reprices it. Non-pending orders fail with Locked and the status
// specific reason.
func (s *Service) UpdateDetails(ctx context.Context, id int64, draft DraftOrder) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateDetails", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.EnsureEditable(current.Status); err != nil {
		return nil, err
	}
	if draft.BasePrice < 0 {
		return nil, errorbank.BadRequest("base price must not be negative")
	}
	if err := draft.Selection.Validate(); err != nil {
		return nil, err
	}

	assessment := s.schedule.Evaluate(draft.PickupDate, time.Now(), draft.RushApproved)
	if !assessment.Valid {
		return nil, errorbank.BadRequest(assessment.RejectionReason)
	}

	breakdown := s.calculator.Quote(draft.BasePrice, draft.Selection, draft.Preferred)
	terms := s.deposits.Terms(breakdown.Total, assessment.Rush)

	order := &entity.Order{
		ID:              id,
		Size:            string(draft.Selection.Size),
		Tiers:           draft.Selection.Tiers,
		Flavor:          string(draft.Selection.Flavor),
		Icing:           string(draft.Selection.Icing),
		Fillings:        draft.Selection.Fillings,
		Colors:          draft.Selection.Colors,
		Decorations:     draft.Selection.Decorations,
		Notes:           draft.Selection.Notes,
		TotalAmount:     breakdown.Total,
		DepositRequired: terms.DepositRequired,
		IsRushOrder:     assessment.Rush,
		PickupDate:      draft.PickupDate,
		PickupTime:      draft.PickupTime,
	}

	updated, err := s.repo.UpdateDetails(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, err
	}

	s.refreshCache(ctx, updated)
	return updated, nil
}

// Audit returns the order's audit trail, oldest first.
func (s *Service) Audit(ctx context.Context, id int64) ([]entity.AuditEntry, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Audit", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.AuditByOrder(ctx, id)
}

func (s *Service) publish(ctx context.Context, event OrderEvent) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal order event", zap.Error(err))
		}
		return
	}
	key := []byte(fmt.Sprintf("order-%d", event.OrderID))
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish order event", zap.String("type", event.Type), zap.Error(err))
		}
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) refreshCache(ctx context.Context, order *entity.Order) {
	if s.cache == nil || order == nil {
		return
	}
	bytes, err := json.Marshal(order)
	if err == nil {
		err = s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}
}

// Event types published to the order event topic.
const (
	EventOrderCreated    = "order.created"
	EventStatusChanged   = "order.status_changed"
	EventOrderCancelled  = "order.cancelled"
	EventPaymentRecorded = "payment.recorded"
)

// OrderEvent is the envelope emitted on every successful order mutation.
type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    int64       `json:"order_id"`
	FromStatus string      `json:"from_status,omitempty"`
	Status     string      `json:"status"`
	Actor      string      `json:"actor,omitempty"`
	Amount     money.Cents `json:"amount,omitempty"`
	BalanceDue money.Cents `json:"balance_due"`
	OccurredAt time.Time   `json:"occurred_at"`
}
