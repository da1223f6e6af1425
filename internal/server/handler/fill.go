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

// FillService defines the settlement operation the fill handler requires.
type FillService interface {
	SettleFill(ctx context.Context, p ledger.SettleFillParams) (domain.FillResult, error)
}

// FillHandler serves the settlement endpoint used by the settlement
// authority on behalf of the off-chain matcher.
type FillHandler struct {
	svc    FillService
	logger *slog.Logger
}

// NewFillHandler creates a FillHandler.
func NewFillHandler(svc FillService, logger *slog.Logger) *FillHandler {
	return &FillHandler{
		svc:    svc,
		logger: logHandler(logger, "fill"),
	}
}

type settleFillRequest struct {
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
	FillSize    int64  `json:"fill_size"`
	FillPrice   int64  `json:"fill_price"`
}

type settleFillResponse struct {
	BuyOrder  domain.Order `json:"buy_order"`
	SellOrder domain.Order `json:"sell_order"`
}

// SettleFill applies an externally matched fill to both orders atomically.
// POST /api/fills
func (h *FillHandler) SettleFill(w http.ResponseWriter, r *http.Request) {
	caller := middleware.CallerFrom(r.Context())
	if caller == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req settleFillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.svc.SettleFill(r.Context(), ledger.SettleFillParams{
		Caller:      caller,
		BuyOrderID:  req.BuyOrderID,
		SellOrderID: req.SellOrderID,
		FillSize:    req.FillSize,
		FillPrice:   req.FillPrice,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settleFillResponse{
		BuyOrder:  res.Buy,
		SellOrder: res.Sell,
	})
}
