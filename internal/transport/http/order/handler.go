package order

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sugarline/bakehouse/internal/dto"
	"github.com/sugarline/bakehouse/internal/entity"
	"github.com/sugarline/bakehouse/internal/lifecycle"
	"github.com/sugarline/bakehouse/internal/presentation/http/response"
	"github.com/sugarline/bakehouse/internal/pricing"
	service "github.com/sugarline/bakehouse/internal/service/order"
	"github.com/sugarline/bakehouse/pkg/errorbank"
	"github.com/sugarline/bakehouse/pkg/money"
)

var httpTracer = otel.Tracer("github.com/sugarline/bakehouse/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.POST("/quote", h.quote)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id", h.update)
	g.POST("/:id/advance", h.advance)
	g.POST("/:id/cancel", h.cancel)
	g.GET("/:id/audit", h.audit)
}

// draftPayload is the wire form of a complete order draft. The wizard
// assembles it client-side and submits it in one request.
type draftPayload struct {
	CustomerID   int64     `json:"customer_id"`
	ProductID    int64     `json:"product_id"`
	BasePrice    int64     `json:"base_price"`
	Preferred    bool      `json:"preferred"`
	RushApproved bool      `json:"rush_approved"`
	Size         string    `json:"size"`
	Tiers        int       `json:"tiers"`
	Flavor       string    `json:"flavor"`
	Icing        string    `json:"icing"`
	Fillings     []string  `json:"fillings"`
	Colors       []string  `json:"colors"`
	Decorations  []string  `json:"decorations"`
	Notes        string    `json:"notes"`
	PickupDate   time.Time `json:"pickup_date"`
	PickupTime   string    `json:"pickup_time"`
}

func (p draftPayload) toDraft() service.DraftOrder {
	return service.DraftOrder{
		CustomerID:   p.CustomerID,
		ProductID:    p.ProductID,
		BasePrice:    money.Cents(p.BasePrice),
		Preferred:    p.Preferred,
		RushApproved: p.RushApproved,
		Selection: pricing.Selection{
			Size:        pricing.Size(p.Size),
			Tiers:       p.Tiers,
			Flavor:      pricing.Flavor(p.Flavor),
			Icing:       pricing.Icing(p.Icing),
			Fillings:    p.Fillings,
			Colors:      p.Colors,
			Decorations: p.Decorations,
			Notes:       p.Notes,
		},
		PickupDate: p.PickupDate,
		PickupTime: p.PickupTime,
	}
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload draftPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	order, err := h.svc.Create(ctx, payload.toDraft())
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(toDTO(order)).Build()
}

func (h *Handler) quote(c echo.Context) error {
	b := response.New(c)

	var payload draftPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.quote")
	defer span.End()

	quote, err := h.svc.Quote(ctx, payload.toDraft())
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(quote).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload draftPayload
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.update", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.UpdateDetails(ctx, id, payload.toDraft())
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) advance(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Actor string `json:"actor"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.advance", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Advance(ctx, id, payload.Actor)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Reason string `json:"reason"`
		Actor  string `json:"actor"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Cancel(ctx, id, payload.Reason, payload.Actor)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) audit(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.audit", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	entries, err := h.svc.Audit(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	rows := make([]dto.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, dto.AuditEntryResponse{
			ID:         e.ID,
			OrderID:    e.OrderID,
			EventType:  e.EventType,
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			Actor:      e.Actor,
			Detail:     e.Detail,
			CreatedAt:  e.CreatedAt,
		})
	}

	return b.WithData(rows).Build()
}

func orderID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return id, nil
}

func toDTO(order *entity.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:                 order.ID,
		CustomerID:         order.CustomerID,
		ProductID:          order.ProductID,
		Size:               order.Size,
		Tiers:              order.Tiers,
		Flavor:             order.Flavor,
		Icing:              order.Icing,
		Fillings:           order.Fillings,
		Colors:             order.Colors,
		Decorations:        order.Decorations,
		Notes:              order.Notes,
		TotalAmount:        order.TotalAmount,
		DepositRequired:    order.DepositRequired,
		DepositMet:         order.DepositMet,
		BalanceDue:         order.BalanceDue,
		Status:             string(order.Status),
		IsRushOrder:        order.IsRushOrder,
		PickupDate:         order.PickupDate,
		PickupTime:         order.PickupTime,
		CancellationReason: order.CancellationReason,
		CancelledBy:        order.CancelledBy,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	if !order.CancelledAt.IsZero() {
		at := order.CancelledAt
		resp.CancelledAt = &at
	}
	if reason, locked := lifecycle.LockReason(order.Status); locked {
		resp.LockReason = reason
	} else {
		resp.Editable = true
	}
	return resp
}
