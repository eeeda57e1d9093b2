package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ChartPoint struct {
	Date  time.Time
	Value decimal.Decimal
}

type ChartData struct {
	History   []ChartPoint
	ChangeVal decimal.Decimal
	ChangePct decimal.Decimal
}
