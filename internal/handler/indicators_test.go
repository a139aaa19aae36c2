package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"finboard/internal/cache"
	"finboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIndicatorsByCategory(t *testing.T) {
	stub := &indicatorStub{byCategory: map[domain.Category][]domain.Indicator{
		domain.CategoryCrypto: {{ID: "btc", Category: domain.CategoryCrypto, Value: 97000}},
	}}
	r := newTestRouter(newTestHandler(stub), "")

	w := do(r, http.MethodGet, "/api/indicators/crypto", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Category   string             `json:"category"`
		Indicators []domain.Indicator `json:"indicators"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "crypto", body.Category)
	require.Len(t, body.Indicators, 1)
	assert.Equal(t, "btc", body.Indicators[0].ID)
}

func TestGetIndicatorsUnknownCategory(t *testing.T) {
	r := newTestRouter(newTestHandler(&indicatorStub{}), "")

	w := do(r, http.MethodGet, "/api/indicators/bonds", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "supported_categories")
}

func TestStaticIndicatorRoutesWinOverCategory(t *testing.T) {
	stub := &indicatorStub{
		ticker: []domain.TickerItem{{ID: "usd-blue", Label: "Blue"}},
		dollar: domain.DollarQuotes{Derived: []domain.DerivedMetric{{ID: "gap-blue-oficial", Value: 12.5}}},
		overview: domain.Overview{
			Groups:      []domain.CategoryGroup{{Category: domain.CategoryCrypto}},
			Unavailable: []string{"agro"},
		},
	}
	r := newTestRouter(newTestHandler(stub), "")

	w := do(r, http.MethodGet, "/api/indicators/ticker", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"usd-blue"`)

	w = do(r, http.MethodGet, "/api/indicators/dollar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gap-blue-oficial"`)

	w = do(r, http.MethodGet, "/api/indicators/overview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var overview domain.Overview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	assert.Equal(t, []string{"agro"}, overview.Unavailable)
}

func TestIndicatorErrorsMapToStatus(t *testing.T) {
	stub := &indicatorStub{err: fmt.Errorf("load: %w", domain.ErrUnknownCategory)}
	r := newTestRouter(newTestHandler(stub), "")
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/indicators/crypto", nil).Code)

	stub.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/api/indicators/overview", nil).Code)
}

func TestGetCacheStats(t *testing.T) {
	c := cache.NewTTLCache()
	c.Get("missing")
	h := newTestHandler(&indicatorStub{})
	h.WatchCache("indicators", c)
	r := newTestRouter(h, "")

	w := do(r, http.MethodGet, "/api/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]cache.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint64(1), body["indicators"].Misses)
}
