// Package rebalance holds the pure allocation core: plan computation,
// risk scoring and the editable-field coupling rules. No I/O, no state;
// callers pass snapshots in and get fresh values back.
package rebalance

import (
	"sort"

	"github.com/fandance/rebalance-api/internal/model"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// ComputePlan sizes a single-pass proportional allocation: each holding's
// post-contribution target value comes straight from its target weight,
// independently of the other holdings. Weights are taken as stated, even
// when they do not sum to 100, so the planned deltas need not add up to the
// contribution.
//
// A zero diff is labeled SELL; apply treats zero-magnitude lines as no-ops,
// so the label is cosmetic.
func ComputePlan(holdings []model.Holding, contribution decimal.Decimal) model.RebalancePlan {
	currentTotal := decimal.Zero
	for _, h := range holdings {
		currentTotal = currentTotal.Add(h.Value)
	}

	futureTotal := currentTotal.Add(contribution)

	orders := make([]model.PlannedHolding, 0, len(holdings))
	for _, h := range holdings {
		targetValue := futureTotal.Mul(h.TargetWeight.Div(oneHundred))
		diff := targetValue.Sub(h.Value)

		unitsToTrade := decimal.Zero
		if h.CurrentPrice.IsPositive() {
			unitsToTrade = diff.Div(h.CurrentPrice)
		}

		action := model.ActionSell
		if diff.IsPositive() {
			action = model.ActionBuy
		}

		orders = append(orders, model.PlannedHolding{
			Holding:      h,
			Action:       action,
			DiffValue:    diff,
			UnitsToTrade: unitsToTrade,
		})
	}

	// largest position first, display convention
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Value.GreaterThan(orders[j].Value)
	})

	return model.RebalancePlan{
		CurrentTotal: currentTotal,
		Contribution: contribution,
		FutureTotal:  futureTotal,
		Orders:       orders,
	}
}

// ApplyUnitsEdit recalculates the holding after the user typed a new units
// quantity. Value follows the price whenever one is known.
func ApplyUnitsEdit(h model.Holding, units decimal.Decimal) model.Holding {
	h.UnitsHeld = units
	if h.CurrentPrice.IsPositive() {
		h.Value = units.Mul(h.CurrentPrice)
	} else {
		h.Value = h.FallbackValue
	}
	return h
}

// ApplyValueEdit recalculates the holding after the user typed a new value.
// With an unknown price the units stay put and the value becomes the manual
// fallback; there is never a division by zero here.
func ApplyValueEdit(h model.Holding, value decimal.Decimal) model.Holding {
	h.Value = value
	if h.CurrentPrice.IsPositive() {
		h.UnitsHeld = value.Div(h.CurrentPrice)
	} else {
		h.FallbackValue = value
	}
	return h
}
