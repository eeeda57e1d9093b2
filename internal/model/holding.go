package model

import "github.com/shopspring/decimal"

// HoldingBase is a holding as stored, before price enrichment.
type HoldingBase struct {
	ItemID        string
	PortfolioID   string
	Asset         Asset
	UnitsHeld     decimal.Decimal
	TargetWeight  decimal.Decimal
	FallbackValue decimal.Decimal // editable value used while the price is unknown
}

// Holding is a position enriched with the last known market price.
// Value equals UnitsHeld*CurrentPrice whenever the price is positive,
// otherwise it carries the manually edited fallback.
type Holding struct {
	HoldingBase
	CurrentPrice decimal.Decimal
	Value        decimal.Decimal
	ActualWeight decimal.Decimal
}

type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// PlannedHolding is one line of a rebalancing plan. Ephemeral: recomputed
// from scratch on every edit and never persisted.
type PlannedHolding struct {
	Holding
	Action       TradeAction
	DiffValue    decimal.Decimal
	UnitsToTrade decimal.Decimal
}

// ApplyOrder is one line of a plan submitted for application. The client
// sends back the computed plan verbatim; the server records and applies
// these deltas as-is.
type ApplyOrder struct {
	ItemID       string
	Ticker       string
	AssetName    string
	Action       TradeAction
	UnitsToTrade decimal.Decimal
	DiffValue    decimal.Decimal
	Price        decimal.Decimal
}

// RebalancePlan is the engine output for a whole portfolio.
type RebalancePlan struct {
	CurrentTotal decimal.Decimal
	Contribution decimal.Decimal
	FutureTotal  decimal.Decimal
	Orders       []PlannedHolding
}
