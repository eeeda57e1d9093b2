package portfolioService

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/rebalance"
	"github.com/fandance/rebalance-api/utils"
	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
)

const (
	rsiPeriod       = 14
	neutralRsiScore = 50
)

// intervalForPeriod picks a candle granularity that keeps the chart around
// a few dozen points for any supported period.
func intervalForPeriod(period string) string {
	switch period {
	case "1d", "5d":
		return "15m"
	case "1mo", "3mo":
		return "1h"
	default:
		return "1d"
	}
}

// GetChart builds the portfolio value series for a period by summing
// units*close across every priced holding. Only timestamps present for all
// holdings make it into the series, so a late-listing asset shortens the
// chart instead of producing a fake jump.
func (s *PortfolioService) GetChart(ctx context.Context, portfolioID, period string) (model.ChartData, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetChart"

	holdings, _, err := s.GetHoldings(ctx, portfolioID)
	if err != nil {
		return model.ChartData{}, err
	}

	interval := intervalForPeriod(period)

	type bucket struct {
		value decimal.Decimal
		count int
	}
	buckets := map[int64]*bucket{}

	priced := 0
	for _, holding := range holdings {
		if !holding.UnitsHeld.IsPositive() {
			continue
		}

		candles, err := s.quoteApi.GetPriceHistory(ctx, holding.Asset.Ticker, period, interval)
		if err != nil {
			slog.Warn(
				"price history unavailable, holding left out of chart",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("ticker", holding.Asset.Ticker),
				slog.String("err", err.Error()),
			)
			continue
		}

		priced++
		for _, candle := range candles {
			ts := candle.Time.Unix()
			b, ok := buckets[ts]
			if !ok {
				b = &bucket{value: decimal.Zero}
				buckets[ts] = b
			}
			b.value = b.value.Add(holding.UnitsHeld.Mul(candle.Close))
			b.count++
		}
	}

	points := make([]model.ChartPoint, 0, len(buckets))
	for ts, b := range buckets {
		if b.count != priced {
			continue
		}
		points = append(points, model.ChartPoint{Date: time.Unix(ts, 0).UTC(), Value: b.value})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	chart := model.ChartData{History: points}
	if len(points) > 1 {
		first := points[0].Value
		last := points[len(points)-1].Value
		chart.ChangeVal = last.Sub(first)
		if first.IsPositive() {
			chart.ChangePct = chart.ChangeVal.Div(first).Mul(oneHundred)
		}
	}

	return chart, nil
}

// GetRiskProfile scores the allocation on the 0..10 scale using the target
// weights, so the score reflects the intended mix even before it is bought.
func (s *PortfolioService) GetRiskProfile(ctx context.Context, portfolioID string) (int, error) {
	holdings, _, err := s.GetHoldings(ctx, portfolioID)
	if err != nil {
		return 0, err
	}

	return rebalance.RiskScore(holdings), nil
}

// GetNewsDigest collects headlines and an RSI-based sentiment per asset
// plus the average across them. One failing asset degrades to an empty
// entry rather than failing the digest.
func (s *PortfolioService) GetNewsDigest(ctx context.Context, assets []model.AssetRef) (model.NewsDigest, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetNewsDigest"

	digest := model.NewsDigest{
		News:       make(map[string][]model.NewsItem, len(assets)),
		Sentiments: make(map[string]model.Sentiment, len(assets)),
	}

	scoreSum := 0
	for _, asset := range assets {
		ticker := normalizeTicker(asset.Ticker)

		items, err := s.newsApi.GetHeadlines(ctx, asset.Name, ticker)
		if err != nil {
			slog.Warn("headlines unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
			items = []model.NewsItem{}
		}
		digest.News[ticker] = items

		sentiment := s.assetSentiment(ctx, ticker)
		digest.Sentiments[ticker] = sentiment
		scoreSum += sentiment.Score
	}

	if len(assets) > 0 {
		digest.Aggregate = sentimentFromScore(int(math.Round(float64(scoreSum) / float64(len(assets)))))
	} else {
		digest.Aggregate = sentimentFromScore(neutralRsiScore)
	}

	return digest, nil
}

// assetSentiment reads a month of daily closes and takes the latest
// 14-period RSI as the score. Too little history means neutral.
func (s *PortfolioService) assetSentiment(ctx context.Context, ticker string) model.Sentiment {
	candles, err := s.quoteApi.GetPriceHistory(ctx, ticker, "1mo", "1d")
	if err != nil || len(candles) <= rsiPeriod {
		return sentimentFromScore(neutralRsiScore)
	}

	closes := make([]float64, 0, len(candles))
	for _, candle := range candles {
		closes = append(closes, candle.Close.InexactFloat64())
	}

	rsi := talib.Rsi(closes, rsiPeriod)
	last := rsi[len(rsi)-1]
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return sentimentFromScore(neutralRsiScore)
	}

	return sentimentFromScore(int(math.Round(last)))
}

func sentimentFromScore(score int) model.Sentiment {
	switch {
	case score >= 70:
		return model.Sentiment{Score: score, Label: "Overbought", Color: "very_green"}
	case score >= 60:
		return model.Sentiment{Score: score, Label: "Bullish", Color: "green"}
	case score <= 30:
		return model.Sentiment{Score: score, Label: "Oversold", Color: "red"}
	case score <= 40:
		return model.Sentiment{Score: score, Label: "Bearish", Color: "orange"}
	default:
		return model.Sentiment{Score: score, Label: "Neutral", Color: "yellow"}
	}
}
