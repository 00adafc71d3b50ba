package payment

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sugarline/bakehouse/internal/presentation/http/response"
	service "github.com/sugarline/bakehouse/internal/service/ledger"
	"github.com/sugarline/bakehouse/pkg/errorbank"
	"github.com/sugarline/bakehouse/pkg/money"
)

var httpTracer = otel.Tracer("github.com/sugarline/bakehouse/transport/http/payment")

// IdempotencyHeader lets a retrying client mark payment submissions so a
// resend cannot create a duplicate ledger row.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes payment ledger endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a payment Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders/:id/payments")
	g.POST("", h.record)
	g.GET("", h.list)
}

func (h *Handler) record(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Amount        int64     `json:"amount"`
		PaymentType   string    `json:"payment_type"`
		PaymentStatus string    `json:"payment_status"`
		PaymentDate   time.Time `json:"payment_date"`
		Notes         string    `json:"notes"`
		RecordedBy    string    `json:"recorded_by"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.record", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Int64("payment.amount", payload.Amount),
	))
	defer span.End()

	payment, err := h.svc.Record(ctx, service.RecordRequest{
		OrderID:        id,
		Amount:         money.Cents(payload.Amount),
		PaymentType:    payload.PaymentType,
		PaymentStatus:  payload.PaymentStatus,
		PaymentDate:    payload.PaymentDate,
		Notes:          payload.Notes,
		RecordedBy:     payload.RecordedBy,
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get(IdempotencyHeader)),
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	status := http.StatusCreated
	if payment.Duplicate {
		status = http.StatusOK
	}
	return b.WithStatus(status).WithData(payment).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "payments.list", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	ledger, err := h.svc.Payments(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(ledger).Build()
}

func orderID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return id, nil
}
