package dbModel

import "github.com/shopspring/decimal"

type Holding struct {
	ItemID        string          `db:"item_id"`
	PortfolioID   string          `db:"portfolio_id"`
	AssetID       int64           `db:"asset_id"`
	Ticker        string          `db:"ticker"`
	AssetName     string          `db:"asset_name"`
	AssetType     string          `db:"asset_type"`
	Sector        string          `db:"sector"`
	Country       string          `db:"country"`
	Currency      string          `db:"currency"`
	UnitsHeld     decimal.Decimal `db:"units_held"`
	TargetWeight  decimal.Decimal `db:"target_weight"`
	FallbackValue decimal.Decimal `db:"fallback_value"`
}

type Asset struct {
	AssetID  int64  `db:"asset_id"`
	Ticker   string `db:"ticker"`
	Name     string `db:"name"`
	Type     string `db:"type"`
	Sector   string `db:"sector"`
	Country  string `db:"country"`
	Currency string `db:"currency"`
}
