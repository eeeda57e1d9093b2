package portfolioService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fandance/rebalance-api/data/repository"
	"github.com/fandance/rebalance-api/internal/externalApi"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/model/quoteModel"
	"github.com/fandance/rebalance-api/internal/rebalance"
	"github.com/fandance/rebalance-api/internal/service"
	"github.com/fandance/rebalance-api/internal/writecoalescer"
	"github.com/fandance/rebalance-api/utils"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// AddAsset looks the ticker up with the provider, upserts the asset and
// attaches it to the portfolio. Adding a ticker the portfolio already holds
// returns the existing holding instead of failing.
func (s *PortfolioService) AddAsset(ctx context.Context, portfolioID, ticker string) (model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddAsset"

	ticker = normalizeTicker(ticker)

	quote, err := s.getQuoteCacheFirst(ctx, ticker)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			return model.Holding{}, service.ErrNotFound
		}
		slog.Error("failed on quote lookup", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	if !quote.Status {
		return model.Holding{}, service.ErrAssetNotActive
	}

	asset, err := s.repo.GetAssetByTicker(ctx, ticker)
	if errors.Is(err, repository.ErrNotFound) {
		asset = model.Asset{
			Ticker:   ticker,
			Name:     quote.Name,
			Type:     quote.Type,
			Sector:   quote.Sector,
			Country:  quote.Country,
			Currency: quote.Currency,
		}
		asset.AssetID, err = s.repo.InsertAsset(ctx, asset)
		if errors.Is(err, repository.ErrAlreadyExists) {
			// concurrent insert of the same ticker, re-read wins
			asset, err = s.repo.GetAssetByTicker(ctx, ticker)
		}
	}
	if err != nil {
		slog.Error("failed on asset upsert", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	_, err = s.repo.InsertHolding(ctx, portfolioID, asset.AssetID)
	if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		slog.Error("failed on repo.InsertHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	base, err := s.repo.GetHoldingByTicker(ctx, portfolioID, ticker)
	if err != nil {
		slog.Error("failed on repo.GetHoldingByTicker", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return enrichHolding(base, quote), nil
}

// GetHoldings returns the portfolio's positions enriched with prices plus a
// summary line. A holding whose price is unknown keeps its manual fallback
// value; everything else is derived live.
func (s *PortfolioService) GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetHoldings"

	portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.PortfolioSummary{}, service.ErrNotFound
		}
		slog.Error("failed on repo.GetPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, model.PortfolioSummary{}, err
	}

	bases, err := s.repo.GetHoldings(ctx, portfolioID)
	if err != nil {
		slog.Error("failed on repo.GetHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, model.PortfolioSummary{}, err
	}

	tickers := make([]string, 0, len(bases))
	for _, base := range bases {
		tickers = append(tickers, base.Asset.Ticker)
	}

	quotes, err := s.getQuotesCacheFirst(ctx, tickers)
	if err != nil {
		// degraded view: fallback values only, prices at zero
		slog.Warn("quotes unavailable, serving stored values", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		quotes = map[string]quoteModel.Quote{}
	}

	holdings := make([]model.Holding, 0, len(bases))
	totalValue := decimal.Zero
	totalWeight := decimal.Zero
	for _, base := range bases {
		holding := enrichHolding(base, quotes[base.Asset.Ticker])
		holdings = append(holdings, holding)
		totalValue = totalValue.Add(holding.Value)
		totalWeight = totalWeight.Add(holding.TargetWeight)
	}

	if totalValue.IsPositive() {
		for i := range holdings {
			holdings[i].ActualWeight = holdings[i].Value.Div(totalValue).Mul(oneHundred)
		}
	}

	summary := model.PortfolioSummary{
		PortfolioName: portfolio.Name,
		TotalValue:    totalValue,
		TotalWeight:   totalWeight,
		RiskScore:     rebalance.RiskScore(holdings),
		HoldingsCount: len(holdings),
	}

	return holdings, summary, nil
}

// UpdateHolding applies one edited field, recomputes the coupled fields and
// returns the fresh holding right away. The database write is coalesced:
// rapid edits of the same field collapse into one write after the quiet
// window, and only the last value survives.
func (s *PortfolioService) UpdateHolding(ctx context.Context, itemID string, units, weight, value *decimal.Decimal) (model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateHolding"

	base, err := s.repo.GetHolding(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Holding{}, service.ErrNotFound
		}
		slog.Error("failed on repo.GetHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	quote, err := s.getQuoteCacheFirst(ctx, base.Asset.Ticker)
	if err != nil {
		slog.Warn("quote unavailable during edit", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		quote = quoteModel.Quote{}
	}

	holding := enrichHolding(base, quote)
	writeCtx := context.WithoutCancel(ctx)

	if units != nil {
		holding = rebalance.ApplyUnitsEdit(holding, *units)
		persisted := holding.UnitsHeld
		s.coalescer.Schedule(writecoalescer.Key(itemID, "units"), func() {
			if err := s.repo.UpdateHolding(writeCtx, itemID, &persisted, nil, nil); err != nil {
				slog.Error("coalesced units write failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
			}
		})
	}

	if value != nil {
		holding = rebalance.ApplyValueEdit(holding, *value)
		if holding.CurrentPrice.IsPositive() {
			persisted := holding.UnitsHeld
			s.coalescer.Schedule(writecoalescer.Key(itemID, "units"), func() {
				if err := s.repo.UpdateHolding(writeCtx, itemID, &persisted, nil, nil); err != nil {
					slog.Error("coalesced units write failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
				}
			})
		} else {
			persisted := holding.FallbackValue
			s.coalescer.Schedule(writecoalescer.Key(itemID, "value"), func() {
				if err := s.repo.UpdateHolding(writeCtx, itemID, nil, nil, &persisted); err != nil {
					slog.Error("coalesced value write failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
				}
			})
		}
	}

	if weight != nil {
		holding.TargetWeight = *weight
		persisted := *weight
		s.coalescer.Schedule(writecoalescer.Key(itemID, "weight"), func() {
			if err := s.repo.UpdateHolding(writeCtx, itemID, nil, &persisted, nil); err != nil {
				slog.Error("coalesced weight write failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
			}
		})
	}

	return holding, nil
}

func (s *PortfolioService) DeleteHolding(ctx context.Context, itemID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteHolding"

	err := s.repo.DeleteHolding(ctx, itemID)
	if err != nil {
		slog.Error("failed on repo.DeleteHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// enrichHolding derives the live fields from the stored base and the quote.
// A zero-value quote (unknown ticker, provider down, delisted) leaves the
// price at zero and the value at the manual fallback.
func enrichHolding(base model.HoldingBase, quote quoteModel.Quote) model.Holding {
	holding := model.Holding{HoldingBase: base}

	if quote.Status && quote.Price.IsPositive() {
		holding.CurrentPrice = quote.Price
		holding.Value = base.UnitsHeld.Mul(quote.Price)
	} else {
		holding.Value = base.FallbackValue
	}

	return holding
}
