package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryRecord is a persisted snapshot of one applied rebalance.
// Undo reverses the recorded line deltas literally; it never recomputes a
// plan against current prices.
type HistoryRecord struct {
	HistoryID        string
	PortfolioID      string
	Contribution     decimal.Decimal
	TotalValueBefore decimal.Decimal
	TotalValueAfter  decimal.Decimal
	Undone           bool
	CreatedAt        time.Time
	Items            []HistoryItem
}

// HistoryItem stores the signed deltas applied to one holding, so that
// inverse application restores the exact prior state.
type HistoryItem struct {
	Ticker     string
	AssetName  string
	Action     TradeAction
	UnitsDelta decimal.Decimal
	ValueDelta decimal.Decimal
	Price      decimal.Decimal
}
