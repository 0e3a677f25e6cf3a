package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/bull_call_spread/internal/broker"
	"github.com/eddiefleurent/bull_call_spread/internal/mock"
	"github.com/eddiefleurent/bull_call_spread/internal/models"
	"github.com/eddiefleurent/bull_call_spread/internal/strategy"
)

// emptyCatalogBroker quotes a price but lists no contracts.
type emptyCatalogBroker struct{}

func (emptyCatalogBroker) GetQuote(context.Context, string) (*models.Quote, error) {
	return &models.Quote{Bid: 100, Ask: 100}, nil
}

func (emptyCatalogBroker) GetOptionContracts(context.Context, models.ContractQuery) ([]models.ContractRecord, error) {
	return nil, nil
}

func (emptyCatalogBroker) PlaceMultiLegOrder(context.Context, *models.OrderRequest) (*models.OrderResponse, error) {
	return nil, nil
}

func newTestServer(t *testing.T, cfg Config, b broker.Broker) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if b == nil {
		b = broker.NewTextBroker(mock.NewFixedProvider(200), logger)
	}
	deps := strategy.Deps{
		Broker: b,
		Logger: logger,
		Now:    func() time.Time { return time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC) },
	}
	return NewServer(cfg, strategy.DefaultParams(), deps, logger)
}

func do(t *testing.T, s *Server, method, target, body string, header map[string]string) (*httptest.ResponseRecorder, PlanResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp PlanResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Config{AuthToken: "secret"}, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, Config{AuthToken: "secret"}, nil)

	rec, _ := do(t, s, http.MethodGet, "/api/plan", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/plan", "", map[string]string{"X-Auth-Token": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/plan?token=secret", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlan(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	rec, resp := do(t, s, http.MethodGet, "/api/plan?symbol=spy&buy_pct=3&sell_pct=5&weeks=2&quantity=2", "", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Succeeded)
	assert.Equal(t, models.StateContractsMatched, resp.State)
	assert.Equal(t, "SPY", resp.Params.Symbol)
	assert.Equal(t, "2024-05-24", resp.Expiration)
	assert.Equal(t, models.StrikeTargets{Buy: 194, Sell: 210}, resp.Strikes)
	require.NotNil(t, resp.Legs)
	assert.Equal(t, "SPY240524C00194000", resp.Legs.BuySymbol)
	assert.Equal(t, "SPY240524C00210000", resp.Legs.SellSymbol)
	require.NotNil(t, resp.Order)
	assert.Equal(t, 2, resp.Order.Quantity)
}

func TestPlan_BadParams(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	rec, _ := do(t, s, http.MethodGet, "/api/plan?weeks=two", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := do(t, s, http.MethodGet, "/api/plan?quantity=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.StateFailed, resp.State)
	assert.Contains(t, resp.Output, "quantity must be positive")
}

func TestPlan_NoContracts(t *testing.T) {
	s := newTestServer(t, Config{}, emptyCatalogBroker{})

	rec, resp := do(t, s, http.MethodGet, "/api/plan", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "failed to find suitable option contracts", resp.Output)
	assert.False(t, resp.Succeeded)
}

func TestExecute_Disabled(t *testing.T) {
	s := newTestServer(t, Config{}, nil)

	rec, _ := do(t, s, http.MethodPost, "/api/spreads", `{"symbol":"SPY"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExecute_PlacesOrder(t *testing.T) {
	s := newTestServer(t, Config{AllowExecute: true}, nil)

	rec, resp := do(t, s, http.MethodPost, "/api/spreads", `{"symbol":"SPY","buy_pct":3,"sell_pct":5,"weeks":2,"quantity":1}`, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StateDone, resp.State)
	assert.Contains(t, resp.Output, "Order placed successfully")
	assert.Contains(t, resp.Output, "BUY SPY240524C00194000 x1")
}

func TestExecute_BadBody(t *testing.T) {
	s := newTestServer(t, Config{AllowExecute: true}, nil)

	rec, _ := do(t, s, http.MethodPost, "/api/spreads", `{"symbol":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/spreads", `{"ticker":"SPY"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := newTestServer(t, Config{Port: 0}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
