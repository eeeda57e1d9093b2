package newsApi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fandance/rebalance-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanAssetName(t *testing.T) {
	tests := []struct {
		name   string
		ticker string
		want   string
	}{
		{"Vanguard FTSE All-World UCITS ETF USD Acc", "VWCE.DE", "FTSE All-World"},
		{"iShares Core MSCI World UCITS ETF", "IWDA.AS", "Core MSCI World"},
		{"Apple Inc", "AAPL", "Apple Inc"},
		{"UCITS ETF Acc", "XYZ", "XYZ"},
		{"", "BTC-EUR", "BTC-EUR"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanAssetName(tt.name, tt.ticker), tt.name)
	}
}

func TestGetHeadlines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
	<title>search</title>
	<item><title>One</title><link>https://n/1</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
	<item><title>Two</title><link>https://n/2</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
	<item><title>Three</title><link>https://n/3</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
	<item><title>Four</title><link>https://n/4</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
	<item><title>Five</title><link>https://n/5</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
</channel></rss>`)
	}))
	defer ts.Close()

	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.NewsApi.Url = ts.URL

	api := New(cfg)

	items, err := api.GetHeadlines(context.Background(), "Apple Inc", "AAPL")
	require.NoError(t, err)

	assert.Len(t, items, 4, "headlines capped per asset")
	assert.Equal(t, "One", items[0].Title)
	assert.Equal(t, "News", items[0].Publisher, "publisher falls back when the feed has no source")
}
