package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticefi/matching-engine/internal/engine"
	"github.com/latticefi/matching-engine/internal/model"
	"github.com/latticefi/matching-engine/internal/validate"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng := engine.New([]model.Symbol{"ETH-USDT"}, nil, nil, 16, 1000)
	eng.Start(context.Background())
	t.Cleanup(func() { eng.Stop() })

	val := validate.New(1000, 1000)
	return New(eng, val, time.Second)
}

func postOrder(t *testing.T, s *Server, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/orders", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSubmitOrder_AcceptsValidLimitOrder(t *testing.T) {
	s := newTestServer(t)

	rec := postOrder(t, s, map[string]any{
		"user_id":    uuid.New().String(),
		"symbol":     "ETH-USDT",
		"side":       "buy",
		"order_type": "limit",
		"price":      "100.00",
		"quantity":   "1.0",
	})

	assert.Equal(t, 200, rec.Code)
}

func TestSubmitOrder_RejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/orders", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestSubmitOrder_RejectsUnknownSymbol(t *testing.T) {
	s := newTestServer(t)

	rec := postOrder(t, s, map[string]any{
		"user_id":    uuid.New().String(),
		"symbol":     "XRP-USDT",
		"side":       "buy",
		"order_type": "limit",
		"price":      "1.0",
		"quantity":   "1.0",
	})

	assert.Equal(t, 404, rec.Code)
}

func TestGetOrderbook_ReflectsRestedOrder(t *testing.T) {
	s := newTestServer(t)

	rec := postOrder(t, s, map[string]any{
		"user_id":    uuid.New().String(),
		"symbol":     "ETH-USDT",
		"side":       "buy",
		"order_type": "limit",
		"price":      "99.00",
		"quantity":   "1.0",
	})
	require.Equal(t, 200, rec.Code)

	req := httptest.NewRequest("GET", "/orderbook/ETH-USDT", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	bids, ok := resp["bids"].([]any)
	require.True(t, ok)
	assert.Len(t, bids, 1)
}

func TestGetHealth_ReportsOkWhenNotDegraded(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}

func TestGetSymbols_ListsConfiguredSymbols(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/symbols", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "ETH-USDT")
}
