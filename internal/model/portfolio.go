package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Portfolio struct {
	PortfolioID      string
	UserID           int64
	Name             string
	LastContribution decimal.Decimal
	CreatedAt        time.Time
}

type PortfolioSummary struct {
	PortfolioName string
	TotalValue    decimal.Decimal
	TotalWeight   decimal.Decimal
	RiskScore     int
	HoldingsCount int
}

// PortfolioFullInfo feeds report generation: holdings plus the applied
// rebalance history.
type PortfolioFullInfo struct {
	Portfolio
	Holdings []Holding
	History  []HistoryRecord
}
