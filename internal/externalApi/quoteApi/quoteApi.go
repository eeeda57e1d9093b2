package quoteApi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fandance/rebalance-api/config"
	"github.com/fandance/rebalance-api/internal/externalApi"
	"github.com/fandance/rebalance-api/internal/model/quoteModel"
	"github.com/fandance/rebalance-api/utils"
	"github.com/go-resty/resty/v2"
)

const maxSearchResults = 8

type QuoteApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *QuoteApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuoteApi.Url)
	return &QuoteApi{client: client}
}

// NormalizeTicker maps user shorthand to provider symbols.
func NormalizeTicker(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "BTC" {
		return "BTC-EUR"
	}
	return ticker
}

// DisplayType folds the provider's quote types into the categories the
// dashboard shows.
func DisplayType(quoteType string) string {
	upper := strings.ToUpper(quoteType)
	switch {
	case strings.Contains(upper, "ETF"):
		return "ETF"
	case strings.Contains(upper, "CRYPTO"):
		return "Crypto"
	case strings.Contains(upper, "FUND"):
		return "Fund"
	default:
		return "Stock"
	}
}

func (a *QuoteApi) Search(ctx context.Context, query string) ([]quoteModel.SearchResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/v1/search"
	params := map[string]string{
		"q":     query,
		"limit": "8",
	}

	slog.Debug("QuoteApi.Search start", slog.String("rqID", rqID), slog.String("query", query))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing quote provider", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	raw := quoteModel.RawSearchResponse{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshal response into quoteModel.RawSearchResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	results := raw.Results
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}

	for i := range results {
		results[i].Type = DisplayType(results[i].Type)
	}

	slog.Debug("QuoteApi.Search completed", slog.String("rqID", rqID))

	return results, nil
}

func (a *QuoteApi) GetQuote(ctx context.Context, ticker string) (quoteModel.Quote, error) {
	quotes, err := a.GetQuotes(ctx, []string{ticker})
	if err != nil {
		return quoteModel.Quote{}, err
	}

	quote, ok := quotes[ticker]
	if !ok {
		return quoteModel.Quote{}, externalApi.ErrNotFound
	}

	return quote, nil
}

func (a *QuoteApi) GetQuotes(ctx context.Context, tickers []string) (map[string]quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/v1/quotes"
	params := map[string]string{
		"tickers": strings.Join(tickers, ","),
	}

	slog.Debug("QuoteApi.GetQuotes start", slog.String("rqID", rqID), slog.Int("tickers", len(tickers)))

	if len(tickers) == 0 {
		return map[string]quoteModel.Quote{}, nil
	}

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing quote provider", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	raw := quoteModel.RawQuotesResponse{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshal response into quoteModel.RawQuotesResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	quotes := make(map[string]quoteModel.Quote, len(raw.Quotes))
	for _, quote := range raw.Quotes {
		quote.Type = DisplayType(quote.Type)
		quotes[quote.Ticker] = quote
	}

	slog.Debug("QuoteApi.GetQuotes completed", slog.String("rqID", rqID))

	return quotes, nil
}

func (a *QuoteApi) GetPriceHistory(ctx context.Context, ticker, period, interval string) ([]quoteModel.Candle, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/v1/history"
	params := map[string]string{
		"ticker":   ticker,
		"period":   period,
		"interval": interval,
	}

	slog.Debug("QuoteApi.GetPriceHistory start", slog.String("rqID", rqID), slog.String("ticker", ticker), slog.String("period", period))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing quote provider", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, externalApi.ErrNotFound
	}

	raw := quoteModel.RawHistoryResponse{}
	err = json.Unmarshal(resp.Body(), &raw)
	if err != nil {
		slog.Error("can't unmarshal response into quoteModel.RawHistoryResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("QuoteApi.GetPriceHistory completed", slog.String("rqID", rqID), slog.Int("candles", len(raw.Candles)))

	return raw.Candles, nil
}
