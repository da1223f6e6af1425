package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/probmarket/ledger/internal/domain"
	"github.com/probmarket/ledger/internal/ledger"
	"github.com/probmarket/ledger/internal/server/middleware"
)

// OrderService defines the ledger operations the order handler requires.
type OrderService interface {
	PlaceOrder(ctx context.Context, p ledger.PlaceOrderParams) (domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Order, error)
}

// OrderHandler serves order-related HTTP endpoints.
type OrderHandler struct {
	svc    OrderService
	logger *slog.Logger
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(svc OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		svc:    svc,
		logger: logHandler(logger, "order"),
	}
}

type placeOrderRequest struct {
	MarketID  string `json:"market_id"`
	Side      string `json:"side"`
	OrderType string `json:"order_type"`
	Price     int64  `json:"price"`
	Size      int64  `json:"size"`
}

// PlaceOrder records a new resting order for the authenticated caller.
// POST /api/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o, err := h.svc.PlaceOrder(r.Context(), ledger.PlaceOrderParams{
		MarketID:  req.MarketID,
		User:      caller,
		Side:      domain.Side(req.Side),
		OrderType: domain.OrderType(req.OrderType),
		Price:     req.Price,
		Size:      req.Size,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// GetOrder returns an order by ID.
// GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type listOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// ListOrders returns a market's orders.
// GET /api/orders?market_id=...&limit=50&offset=0
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	marketID := r.URL.Query().Get("market_id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "market_id query parameter required")
		return
	}

	os, err := h.svc.ListOrders(r.Context(), marketID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list orders failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if os == nil {
		os = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: os})
}
