package portfolioService

import (
	"context"
	"log/slog"
	"math"

	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/utils"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	optimisticAnnualRate  = 0.07
	pessimisticAnnualRate = 0.04
	monteCarloAnnualVol   = 0.15
	capitalGainsTaxRate   = 0.19
)

// RunSimulations projects each selected portfolio forward with monthly
// compounding. Optimistic and pessimistic use fixed annual rates; the
// Monte Carlo variant draws monthly returns from a normal distribution
// around the optimistic rate. A portfolio whose value cannot be read is
// skipped, not fatal.
func (s *PortfolioService) RunSimulations(ctx context.Context, input model.SimulationInput) ([]model.SimulationResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RunSimulations"

	results := make([]model.SimulationResult, 0, len(input.PortfolioIDs))
	for _, portfolioID := range input.PortfolioIDs {
		portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
		if err != nil {
			slog.Warn("portfolio unavailable for simulation", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID), slog.String("err", err.Error()))
			continue
		}

		_, summary, err := s.GetHoldings(ctx, portfolioID)
		if err != nil {
			slog.Warn("holdings unavailable for simulation", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID), slog.String("err", err.Error()))
			continue
		}

		start := summary.TotalValue.InexactFloat64()
		if start == 0 {
			start = input.InitialCapital
		}

		result := simulate(input, start)
		result.PortfolioID = portfolioID
		result.PortfolioName = portfolio.Name
		results = append(results, result)
	}

	return results, nil
}

func simulate(input model.SimulationInput, start float64) model.SimulationResult {
	months := input.Years * 12
	monthlyRate := annualRate(input.SimType) / 12

	var noise distuv.Normal
	if input.SimType == model.SimMonteCarlo {
		noise = distuv.Normal{Mu: 0, Sigma: monteCarloAnnualVol / math.Sqrt(12)}
	}

	value := start
	invested := start
	contribution := input.MonthlyContribution

	data := make([]model.SimulationPoint, 0, input.Years+1)
	data = append(data, model.SimulationPoint{Year: 0, Value: value})

	for month := 1; month <= months; month++ {
		rate := monthlyRate
		if input.SimType == model.SimMonteCarlo {
			rate += noise.Rand()
		}

		value = value*(1+rate) + contribution
		invested += contribution

		if month%12 == 0 {
			data = append(data, model.SimulationPoint{Year: float64(month) / 12, Value: value})

			if input.ContributionMode == model.ContributionGrowing {
				contribution *= 1 + input.GrowthRate/100
			}
		}
	}

	gain := value - invested

	taxPaid := 0.0
	if input.ApplyTax && gain > 0 {
		taxPaid = gain * capitalGainsTaxRate
	}

	return model.SimulationResult{
		Data:          data,
		FinalGross:    value,
		FinalNet:      value - taxPaid,
		TotalInvested: invested,
		TaxPaid:       taxPaid,
		Gain:          gain,
	}
}

func annualRate(simType model.SimType) float64 {
	if simType == model.SimPessimistic {
		return pessimisticAnnualRate
	}
	return optimisticAnnualRate
}
