package portfolioService

import (
	"testing"

	"github.com/fandance/rebalance-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate_FixedContributions(t *testing.T) {
	input := model.SimulationInput{
		Years:               10,
		MonthlyContribution: 100,
		ContributionMode:    model.ContributionFixed,
		SimType:             model.SimOptimistic,
	}

	res := simulate(input, 10000)

	require.Len(t, res.Data, 11, "one point per year plus the start")
	assert.Equal(t, 10000.0, res.Data[0].Value)
	assert.InDelta(t, 10000+100*120, res.TotalInvested, 0.01)
	assert.Greater(t, res.FinalGross, res.TotalInvested, "positive drift must beat plain saving")
	assert.Zero(t, res.TaxPaid)
	assert.Equal(t, res.FinalGross, res.FinalNet)
}

func TestSimulate_PessimisticTrailsOptimistic(t *testing.T) {
	input := model.SimulationInput{
		Years:               20,
		MonthlyContribution: 200,
		ContributionMode:    model.ContributionFixed,
		SimType:             model.SimOptimistic,
	}

	optimistic := simulate(input, 5000)

	input.SimType = model.SimPessimistic
	pessimistic := simulate(input, 5000)

	assert.Less(t, pessimistic.FinalGross, optimistic.FinalGross)
}

func TestSimulate_GrowingContributionsInvestMore(t *testing.T) {
	fixed := model.SimulationInput{
		Years:               10,
		MonthlyContribution: 100,
		ContributionMode:    model.ContributionFixed,
		SimType:             model.SimOptimistic,
	}
	growing := fixed
	growing.ContributionMode = model.ContributionGrowing
	growing.GrowthRate = 5

	assert.Greater(t, simulate(growing, 0).TotalInvested, simulate(fixed, 0).TotalInvested)
}

func TestSimulate_TaxOnGainOnly(t *testing.T) {
	input := model.SimulationInput{
		Years:               15,
		MonthlyContribution: 100,
		ContributionMode:    model.ContributionFixed,
		ApplyTax:            true,
		SimType:             model.SimOptimistic,
	}

	res := simulate(input, 10000)

	require.Greater(t, res.Gain, 0.0)
	assert.InDelta(t, res.Gain*capitalGainsTaxRate, res.TaxPaid, 0.01)
	assert.InDelta(t, res.FinalGross-res.TaxPaid, res.FinalNet, 0.01)
}
