package rebalance

import (
	"strings"

	"github.com/fandance/rebalance-api/internal/model"
	"github.com/shopspring/decimal"
)

// riskRule classifies a holding by keyword. Rules are evaluated in order,
// first match wins, so new categories can be appended without disturbing
// the precedence of existing ones.
type riskRule struct {
	matches func(name, category string) bool
	weight  decimal.Decimal
}

var riskRules = []riskRule{
	{
		// commodities dampen risk
		matches: func(name, category string) bool {
			return strings.Contains(name, "gold") ||
				strings.Contains(name, "oro") ||
				strings.Contains(name, "silver") ||
				strings.Contains(category, "commodity")
		},
		weight: decimal.NewFromInt(4),
	},
	{
		// fixed income
		matches: func(name, category string) bool {
			return strings.Contains(name, "bond") ||
				strings.Contains(name, "treasury") ||
				strings.Contains(name, "renta fija")
		},
		weight: decimal.NewFromInt(2),
	},
}

var defaultRiskWeight = decimal.NewFromInt(10)

func holdingRiskWeight(name, category string) decimal.Decimal {
	name = strings.ToLower(name)
	category = strings.ToLower(category)
	for _, rule := range riskRules {
		if rule.matches(name, category) {
			return rule.weight
		}
	}
	return defaultRiskWeight
}

// RiskScore derives a 0-10 score from the target weights: 10 for equities,
// 4 for commodities, 2 for fixed income, weight-averaged over the stated
// targets. Zero total weight scores zero.
func RiskScore(holdings []model.Holding) int {
	totalWeight := decimal.Zero
	for _, h := range holdings {
		totalWeight = totalWeight.Add(h.TargetWeight)
	}

	if !totalWeight.IsPositive() {
		return 0
	}

	weighted := decimal.Zero
	for _, h := range holdings {
		w := holdingRiskWeight(h.Asset.Name, h.Asset.Type)
		weighted = weighted.Add(w.Mul(h.TargetWeight))
	}

	score := weighted.Div(totalWeight).Round(0).IntPart()
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return int(score)
}
