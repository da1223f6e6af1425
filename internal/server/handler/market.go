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

// MarketService defines the registry and resolution operations the market
// handler requires from the ledger core.
type MarketService interface {
	CreateMarket(ctx context.Context, p ledger.CreateMarketParams) (domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	Resolve(ctx context.Context, marketID, caller string, outcome bool) (domain.Market, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	svc    MarketService
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(svc MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		svc:    svc,
		logger: logHandler(logger, "market"),
	}
}

type createMarketRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	ExpiryTimestamp int64  `json:"expiry_timestamp"`
}

// CreateMarket allocates a new market for the authenticated caller.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	m, err := h.svc.CreateMarket(r.Context(), ledger.CreateMarketParams{
		Creator:         caller,
		Title:           req.Title,
		Description:     req.Description,
		ExpiryTimestamp: req.ExpiryTimestamp,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GetMarket returns a market by ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMarket(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
}

// ListMarkets returns markets ordered by creation time.
// GET /api/markets?limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	ms, err := h.svc.ListMarkets(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list markets failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	if ms == nil {
		ms = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{Markets: ms})
}

type resolveMarketRequest struct {
	Outcome bool `json:"outcome"`
}

// ResolveMarket finalizes a market's outcome; creator only, after expiry.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req resolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	m, err := h.svc.Resolve(r.Context(), r.PathValue("id"), caller, req.Outcome)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
