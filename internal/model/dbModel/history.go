package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type HistoryRecord struct {
	HistoryID        string          `db:"history_id"`
	PortfolioID      string          `db:"portfolio_id"`
	Contribution     decimal.Decimal `db:"contribution"`
	TotalValueBefore decimal.Decimal `db:"total_value_before"`
	TotalValueAfter  decimal.Decimal `db:"total_value_after"`
	Undone           bool            `db:"undone"`
	CreatedAt        time.Time       `db:"dt_create"`
}

type HistoryItem struct {
	ID         int64           `db:"id"`
	HistoryID  string          `db:"history_id"`
	Ticker     string          `db:"ticker"`
	AssetName  string          `db:"asset_name"`
	Action     string          `db:"action"`
	UnitsDelta decimal.Decimal `db:"units_delta"`
	ValueDelta decimal.Decimal `db:"value_delta"`
	Price      decimal.Decimal `db:"price"`
}
