package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sugarline/bakehouse/internal/config"
	"github.com/sugarline/bakehouse/internal/messaging"
	ordersvc "github.com/sugarline/bakehouse/internal/service/order"
	"github.com/sugarline/bakehouse/internal/worker"
)

var workerTracer = otel.Tracer("github.com/sugarline/bakehouse/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewEventHandler sets up a worker handler that processes order lifecycle
// and payment events, feeding the back-office notification log.
func NewEventHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		fields := []zap.Field{
			zap.Int64("order_id", event.OrderID),
			zap.String("status", event.Status),
			zap.String("actor", event.Actor),
		}

		switch event.Type {
		case ordersvc.EventOrderCreated:
			logger.Info("order created", fields...)
		case ordersvc.EventStatusChanged:
			logger.Info("order status changed",
				append(fields, zap.String("from", event.FromStatus))...)
		case ordersvc.EventOrderCancelled:
			logger.Info("order cancelled", fields...)
		case ordersvc.EventPaymentRecorded:
			logger.Info("payment recorded",
				append(fields,
					zap.Int64("amount", int64(event.Amount)),
					zap.Int64("balance_due", int64(event.BalanceDue)))...)
		default:
			logger.Warn("unknown order event type", zap.String("type", event.Type))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
