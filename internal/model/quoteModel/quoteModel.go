package quoteModel

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the provider's view of one instrument. Status is false when the
// instrument is delisted or not currently traded.
type Quote struct {
	Ticker   string          `json:"ticker"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Sector   string          `json:"sector"`
	Country  string          `json:"country"`
	Currency string          `json:"currency"`
	Price    decimal.Decimal `json:"price"`
	Status   bool            `json:"status"`
}

type SearchResult struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Exchange string `json:"exchange"`
}

type Candle struct {
	Time  time.Time       `json:"t"`
	Close decimal.Decimal `json:"close"`
}

// Raw wire shapes.

type RawSearchResponse struct {
	Results []SearchResult `json:"results"`
}

type RawQuotesResponse struct {
	Quotes []Quote `json:"quotes"`
}

type RawHistoryResponse struct {
	Ticker  string   `json:"ticker"`
	Candles []Candle `json:"candles"`
}
