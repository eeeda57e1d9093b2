package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Portfolio struct {
	PortfolioID      string          `db:"portfolio_id"`
	UserID           int64           `db:"user_id"`
	Name             string          `db:"name"`
	LastContribution decimal.Decimal `db:"last_contribution"`
	CreatedAt        time.Time       `db:"dt_create"`
}
