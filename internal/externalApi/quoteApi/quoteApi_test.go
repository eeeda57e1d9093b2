package quoteApi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fandance/rebalance-api/config"
	"github.com/fandance/rebalance-api/internal/externalApi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newTestApi(handler http.Handler) (*QuoteApi, *httptest.Server) {
	ts := httptest.NewServer(handler)

	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.QuoteApi.Url = ts.URL

	return New(cfg), ts
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "BTC-EUR", NormalizeTicker("btc"))
	assert.Equal(t, "BTC-EUR", NormalizeTicker(" BTC "))
	assert.Equal(t, "VWCE.DE", NormalizeTicker("vwce.de"))
}

func TestDisplayType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ETF", "ETF"},
		{"CRYPTOCURRENCY", "Crypto"},
		{"MUTUALFUND", "Fund"},
		{"EQUITY", "Stock"},
		{"", "Stock"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayType(tt.in), tt.in)
	}
}

func TestSearch_CapsResults(t *testing.T) {
	api, ts := newTestApi(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[
			{"ticker":"A1","name":"One","type":"EQUITY"},
			{"ticker":"A2","name":"Two","type":"ETF"},
			{"ticker":"A3","name":"Three","type":"EQUITY"},
			{"ticker":"A4","name":"Four","type":"EQUITY"},
			{"ticker":"A5","name":"Five","type":"EQUITY"},
			{"ticker":"A6","name":"Six","type":"EQUITY"},
			{"ticker":"A7","name":"Seven","type":"EQUITY"},
			{"ticker":"A8","name":"Eight","type":"EQUITY"},
			{"ticker":"A9","name":"Nine","type":"EQUITY"}
		]}`)
	}))
	defer ts.Close()

	results, err := api.Search(context.Background(), "a")
	require.NoError(t, err)

	assert.Len(t, results, 8)
	assert.Equal(t, "Stock", results[0].Type, "provider type folded for display")
	assert.Equal(t, "ETF", results[1].Type)
}

func TestGetQuotes(t *testing.T) {
	api, ts := newTestApi(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAA,BBB", r.URL.Query().Get("tickers"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"quotes":[
			{"ticker":"AAA","name":"Aaa Corp","type":"EQUITY","price":101.5,"status":true},
			{"ticker":"BBB","name":"Bbb ETF","type":"ETF","price":55.25,"status":true}
		]}`)
	}))
	defer ts.Close()

	quotes, err := api.GetQuotes(context.Background(), []string{"AAA", "BBB"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "Aaa Corp", quotes["AAA"].Name)
	assert.True(t, quotes["AAA"].Price.Equal(decimalFromString(t, "101.5")))
	assert.Equal(t, "ETF", quotes["BBB"].Type)
}

func TestGetQuote_NotFound(t *testing.T) {
	api, ts := newTestApi(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"quotes":[]}`)
	}))
	defer ts.Close()

	_, err := api.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}

func TestGetPriceHistory_NotFound(t *testing.T) {
	api, ts := newTestApi(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := api.GetPriceHistory(context.Background(), "NOPE", "1mo", "1d")
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}
