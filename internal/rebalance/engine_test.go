package rebalance

import (
	"testing"

	"github.com/fandance/rebalance-api/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holding(ticker string, value, weight, price float64) model.Holding {
	h := model.Holding{
		CurrentPrice: decimal.NewFromFloat(price),
		Value:        decimal.NewFromFloat(value),
	}
	h.Asset = model.Asset{Ticker: ticker, Name: ticker}
	h.TargetWeight = decimal.NewFromFloat(weight)
	if price > 0 {
		h.UnitsHeld = h.Value.Div(h.CurrentPrice)
	}
	return h
}

func TestComputePlan_Contribution(t *testing.T) {
	holdings := []model.Holding{
		holding("AAA", 6000, 60, 100),
		holding("BBB", 4000, 40, 50),
	}

	plan := ComputePlan(holdings, decimal.NewFromInt(1000))

	require.Len(t, plan.Orders, 2)
	assert.True(t, plan.FutureTotal.Equal(decimal.NewFromInt(11000)), "future total %s", plan.FutureTotal)

	first, second := plan.Orders[0], plan.Orders[1]
	assert.Equal(t, "AAA", first.Asset.Ticker)
	assert.True(t, first.DiffValue.Equal(decimal.NewFromInt(600)), "diff %s", first.DiffValue)
	assert.True(t, first.UnitsToTrade.Equal(decimal.NewFromInt(6)), "units %s", first.UnitsToTrade)
	assert.Equal(t, model.ActionBuy, first.Action)

	assert.True(t, second.DiffValue.Equal(decimal.NewFromInt(400)), "diff %s", second.DiffValue)
	assert.True(t, second.UnitsToTrade.Equal(decimal.NewFromInt(8)), "units %s", second.UnitsToTrade)
	assert.Equal(t, model.ActionBuy, second.Action)
}

func TestComputePlan_Withdrawal(t *testing.T) {
	holdings := []model.Holding{
		holding("AAA", 6000, 60, 100),
		holding("BBB", 4000, 40, 50),
	}

	plan := ComputePlan(holdings, decimal.NewFromInt(-2000))

	require.Len(t, plan.Orders, 2)
	assert.True(t, plan.FutureTotal.Equal(decimal.NewFromInt(8000)))

	assert.True(t, plan.Orders[0].DiffValue.Equal(decimal.NewFromInt(-1200)))
	assert.True(t, plan.Orders[0].UnitsToTrade.Equal(decimal.NewFromInt(-12)))
	assert.Equal(t, model.ActionSell, plan.Orders[0].Action)

	assert.True(t, plan.Orders[1].DiffValue.Equal(decimal.NewFromInt(-800)))
	assert.True(t, plan.Orders[1].UnitsToTrade.Equal(decimal.NewFromInt(-16)))
	assert.Equal(t, model.ActionSell, plan.Orders[1].Action)
}

// When target weights sum to exactly 100 and every price is nonzero, the
// planned monetary deltas absorb the contribution exactly.
func TestComputePlan_DiffsSumToContribution(t *testing.T) {
	holdings := []model.Holding{
		holding("AAA", 3123.45, 25, 17.5),
		holding("BBB", 980.10, 35, 210),
		holding("CCC", 5500, 40, 3.33),
	}
	contribution := decimal.NewFromFloat(777.77)

	plan := ComputePlan(holdings, contribution)

	sum := decimal.Zero
	for _, o := range plan.Orders {
		sum = sum.Add(o.DiffValue)
	}
	assert.True(t, sum.Equal(contribution), "sum of diffs %s != %s", sum, contribution)
}

func TestComputePlan_WeightsNotNormalized(t *testing.T) {
	// weights sum to 150; each holding is still sized independently
	holdings := []model.Holding{
		holding("AAA", 1000, 100, 10),
		holding("BBB", 1000, 50, 10),
	}

	plan := ComputePlan(holdings, decimal.Zero)

	require.Len(t, plan.Orders, 2)
	// futureTotal = 2000, targets are 2000 and 1000
	assert.True(t, plan.Orders[0].DiffValue.Equal(decimal.NewFromInt(1000)))
	assert.True(t, plan.Orders[1].DiffValue.Equal(decimal.Zero))
	assert.Equal(t, model.ActionSell, plan.Orders[1].Action, "zero diff keeps the SELL label")
}

func TestComputePlan_ZeroPriceNoUnits(t *testing.T) {
	holdings := []model.Holding{
		holding("AAA", 5000, 80, 0),
		holding("BBB", 5000, 20, 100),
	}

	plan := ComputePlan(holdings, decimal.NewFromInt(10000))

	for _, o := range plan.Orders {
		if o.Asset.Ticker != "AAA" {
			continue
		}
		assert.True(t, o.UnitsToTrade.IsZero(), "units for priceless holding must be zero")
		assert.True(t, o.DiffValue.Equal(decimal.NewFromInt(11000)), "monetary delta still reported, got %s", o.DiffValue)
	}
}

func TestComputePlan_OrderedByValueDesc(t *testing.T) {
	holdings := []model.Holding{
		holding("SMALL", 100, 10, 1),
		holding("BIG", 500, 10, 1),
		holding("MID", 200, 10, 1),
	}

	plan := ComputePlan(holdings, decimal.Zero)

	require.Len(t, plan.Orders, 3)
	assert.Equal(t, "BIG", plan.Orders[0].Asset.Ticker)
	assert.Equal(t, "MID", plan.Orders[1].Asset.Ticker)
	assert.Equal(t, "SMALL", plan.Orders[2].Asset.Ticker)
}

func TestComputePlan_Idempotent(t *testing.T) {
	holdings := []model.Holding{
		holding("AAA", 6000, 60, 100),
		holding("BBB", 4000, 40, 50),
	}
	c := decimal.NewFromInt(1234)

	a := ComputePlan(holdings, c)
	b := ComputePlan(holdings, c)

	require.Equal(t, len(a.Orders), len(b.Orders))
	for i := range a.Orders {
		assert.True(t, a.Orders[i].DiffValue.Equal(b.Orders[i].DiffValue))
		assert.True(t, a.Orders[i].UnitsToTrade.Equal(b.Orders[i].UnitsToTrade))
		assert.Equal(t, a.Orders[i].Action, b.Orders[i].Action)
	}
}

func TestComputePlan_Empty(t *testing.T) {
	plan := ComputePlan(nil, decimal.NewFromInt(500))
	assert.Empty(t, plan.Orders)
	assert.True(t, plan.FutureTotal.Equal(decimal.NewFromInt(500)))
}

func TestApplyUnitsEdit(t *testing.T) {
	h := holding("AAA", 1000, 50, 10)
	h = ApplyUnitsEdit(h, decimal.NewFromInt(150))
	assert.True(t, h.Value.Equal(decimal.NewFromInt(1500)))
}

func TestApplyValueEdit(t *testing.T) {
	h := holding("AAA", 1000, 50, 10)
	h = ApplyValueEdit(h, decimal.NewFromInt(500))
	assert.True(t, h.UnitsHeld.Equal(decimal.NewFromInt(50)))
}

func TestApplyValueEdit_UnknownPrice(t *testing.T) {
	h := holding("AAA", 1000, 50, 0)
	h.UnitsHeld = decimal.NewFromInt(3)

	h = ApplyValueEdit(h, decimal.NewFromInt(500))

	assert.True(t, h.UnitsHeld.Equal(decimal.NewFromInt(3)), "units untouched when the price is unknown")
	assert.True(t, h.FallbackValue.Equal(decimal.NewFromInt(500)))
}
