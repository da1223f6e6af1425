package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probmarket/ledger/internal/domain"
	"github.com/probmarket/ledger/internal/events"
	"github.com/probmarket/ledger/internal/ledger"
	"github.com/probmarket/ledger/internal/server/middleware"
	"github.com/probmarket/ledger/internal/store/memory"
)

const (
	handlerAuthority = "0x00000000000000000000000000000000000000aa"
	handlerCreator   = "0x00000000000000000000000000000000000000cc"
	handlerTrader    = "0x0000000000000000000000000000000000000001"
)

// newTestMux builds the API routes over a memory-backed service, with a
// middleware stand-in that injects the X-Ledger-Caller header value as the
// authenticated caller.
func newTestMux(t *testing.T) (http.Handler, *ledger.Service) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	svc := ledger.New(
		memory.NewMarketStore(),
		memory.NewOrderStore(),
		memory.NewAuditStore(),
		events.NewMemoryBus(),
		handlerAuthority,
		logger,
	)

	markets := NewMarketHandler(svc, logger)
	orders := NewOrderHandler(svc, logger)
	fills := NewFillHandler(svc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/markets", markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/resolve", markets.ResolveMarket)
	mux.HandleFunc("POST /api/orders", orders.PlaceOrder)
	mux.HandleFunc("GET /api/orders", orders.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", orders.GetOrder)
	mux.HandleFunc("POST /api/fills", fills.SettleFill)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller := r.Header.Get(middleware.HeaderCaller); caller != "" {
			r = r.WithContext(middleware.WithCaller(r.Context(), domain.NormalizeAddress(caller)))
		}
		mux.ServeHTTP(w, r)
	})
	return h, svc
}

func doJSON(t *testing.T, h http.Handler, method, path, caller, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if caller != "" {
		req.Header.Set(middleware.HeaderCaller, caller)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createMarketBody(expiry int64) string {
	b, _ := json.Marshal(map[string]any{
		"title":            "Will the launch happen?",
		"description":      "Resolves yes on success.",
		"expiry_timestamp": expiry,
	})
	return string(b)
}

func TestCreateMarketEndpoint(t *testing.T) {
	h, _ := newTestMux(t)
	expiry := time.Now().Add(time.Hour).Unix()

	rec := doJSON(t, h, http.MethodPost, "/api/markets", handlerCreator, createMarketBody(expiry))
	require.Equal(t, http.StatusCreated, rec.Code)

	var m domain.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, handlerCreator, m.Creator)
	assert.True(t, m.IsActive)
	assert.NotEmpty(t, m.ID)

	got := doJSON(t, h, http.MethodGet, "/api/markets/"+m.ID, "", "")
	assert.Equal(t, http.StatusOK, got.Code)
}

func TestCreateMarketEndpointErrors(t *testing.T) {
	h, _ := newTestMux(t)
	expiry := time.Now().Add(time.Hour).Unix()

	t.Run("missing caller", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/markets", "", createMarketBody(expiry))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/markets", handlerCreator, "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate market", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/markets", handlerCreator, createMarketBody(expiry))
		require.Equal(t, http.StatusCreated, rec.Code)
		rec = doJSON(t, h, http.MethodPost, "/api/markets", handlerCreator, createMarketBody(expiry))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("empty title", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/markets", handlerCreator, `{"title":"","expiry_timestamp":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetMarketEndpointNotFound(t *testing.T) {
	h, _ := newTestMux(t)

	rec := doJSON(t, h, http.MethodGet, "/api/markets/deadbeef", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMarketsEndpointEmpty(t *testing.T) {
	h, _ := newTestMux(t)

	rec := doJSON(t, h, http.MethodGet, "/api/markets", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"markets":[]}`, rec.Body.String())
}

func TestResolveMarketEndpoint(t *testing.T) {
	h, _ := newTestMux(t)

	// Already expired, so it is immediately resolvable by its creator.
	rec := doJSON(t, h, http.MethodPost, "/api/markets", handlerCreator, createMarketBody(time.Now().Add(-time.Hour).Unix()))
	require.Equal(t, http.StatusCreated, rec.Code)
	var m domain.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))

	t.Run("non-creator forbidden", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/markets/"+m.ID+"/resolve", handlerTrader, `{"outcome":true}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("creator resolves", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/markets/"+m.ID+"/resolve", handlerCreator, `{"outcome":true}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resolved domain.Market
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
		assert.True(t, resolved.IsResolved)
		require.NotNil(t, resolved.Resolution)
		assert.True(t, *resolved.Resolution)
	})

	t.Run("repeat conflicts", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/markets/"+m.ID+"/resolve", handlerCreator, `{"outcome":false}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestResolveMarketEndpointBeforeExpiry(t *testing.T) {
	h, _ := newTestMux(t)

	rec := doJSON(t, h, http.MethodPost, "/api/markets", handlerCreator, createMarketBody(time.Now().Add(time.Hour).Unix()))
	require.Equal(t, http.StatusCreated, rec.Code)
	var m domain.Market
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))

	got := doJSON(t, h, http.MethodPost, "/api/markets/"+m.ID+"/resolve", handlerCreator, `{"outcome":true}`)
	assert.Equal(t, http.StatusConflict, got.Code)
}
