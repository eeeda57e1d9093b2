package portfolioService

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/fandance/rebalance-api/config"
	"github.com/fandance/rebalance-api/data/repository"
	"github.com/fandance/rebalance-api/internal/externalApi/quoteApi"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/model/quoteModel"
	"github.com/fandance/rebalance-api/internal/service"
	"github.com/fandance/rebalance-api/internal/writecoalescer"
	"github.com/fandance/rebalance-api/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetOrCreateUser(ctx context.Context, externalID, email string) (int64, error)

	CreatePortfolio(ctx context.Context, userID int64, name string) (model.Portfolio, error)
	GetPortfolios(ctx context.Context, userID int64) ([]model.Portfolio, error)
	GetPortfolio(ctx context.Context, portfolioID string) (model.Portfolio, error)
	RenamePortfolio(ctx context.Context, portfolioID, name string) error
	DeletePortfolio(ctx context.Context, portfolioID string) error
	UpdateLastContribution(ctx context.Context, portfolioID string, amount decimal.Decimal) error
	CopyHoldings(ctx context.Context, srcPortfolioID, dstPortfolioID string) error

	GetAssetByTicker(ctx context.Context, ticker string) (model.Asset, error)
	InsertAsset(ctx context.Context, asset model.Asset) (int64, error)
	InsertHolding(ctx context.Context, portfolioID string, assetID int64) (string, error)
	GetHoldings(ctx context.Context, portfolioID string) ([]model.HoldingBase, error)
	GetHolding(ctx context.Context, itemID string) (model.HoldingBase, error)
	GetHoldingByTicker(ctx context.Context, portfolioID, ticker string) (model.HoldingBase, error)
	UpdateHolding(ctx context.Context, itemID string, units, weight, fallbackValue *decimal.Decimal) error
	AdjustHolding(ctx context.Context, itemID string, unitsDelta, valueDelta decimal.Decimal) error
	DeleteHolding(ctx context.Context, itemID string) error
	GetAllTickers(ctx context.Context) ([]string, error)

	InsertHistoryRecord(ctx context.Context, record model.HistoryRecord) (string, error)
	InsertHistoryItems(ctx context.Context, historyID string, items []model.HistoryItem) error
	GetHistory(ctx context.Context, portfolioID string) ([]model.HistoryRecord, error)
	GetHistoryRecord(ctx context.Context, historyID string) (model.HistoryRecord, error)
	SetHistoryUndone(ctx context.Context, historyID string, undone bool) error
	DeleteHistoryRecord(ctx context.Context, historyID string) error

	WithinTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error
}

type Cache interface {
	GetQuote(ctx context.Context, ticker string) (quoteModel.Quote, error)
	GetQuotes(ctx context.Context, tickers []string) (map[string]quoteModel.Quote, error)
	SetQuotes(ctx context.Context, quotes []quoteModel.Quote) error
}

type Locker interface {
	AcquireApplyLock(ctx context.Context, portfolioID string) (bool, error)
	ReleaseApplyLock(ctx context.Context, portfolioID string) error
}

type QuoteApi interface {
	Search(ctx context.Context, query string) ([]quoteModel.SearchResult, error)
	GetQuote(ctx context.Context, ticker string) (quoteModel.Quote, error)
	GetQuotes(ctx context.Context, tickers []string) (map[string]quoteModel.Quote, error)
	GetPriceHistory(ctx context.Context, ticker, period, interval string) ([]quoteModel.Candle, error)
}

type NewsApi interface {
	GetHeadlines(ctx context.Context, name, ticker string) ([]model.NewsItem, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, info model.PortfolioFullInfo) ([]byte, string, error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (string, error)
}

type PortfolioService struct {
	cfg             *config.Config
	repo            Repository
	cache           Cache
	locker          Locker
	quoteApi        QuoteApi
	newsApi         NewsApi
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage // nil when sharing is disabled
	coalescer       *writecoalescer.Coalescer
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	locker Locker,
	quoteApi QuoteApi,
	newsApi NewsApi,
	reportGenerator ReportGenerator,
	cloudStorage CloudStorage,
	coalescer *writecoalescer.Coalescer,
) *PortfolioService {
	return &PortfolioService{
		cfg:             cfg,
		repo:            repo,
		cache:           cache,
		locker:          locker,
		quoteApi:        quoteApi,
		newsApi:         newsApi,
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
		coalescer:       coalescer,
	}
}

func (s *PortfolioService) GetOrCreateUser(ctx context.Context, externalID, email string) (int64, error) {
	return s.repo.GetOrCreateUser(ctx, externalID, email)
}

func (s *PortfolioService) CreatePortfolio(ctx context.Context, userID int64, name string) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreatePortfolio"

	portfolio, err := s.repo.CreatePortfolio(ctx, userID, name)
	if err != nil {
		slog.Error("failed on repo.CreatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	return portfolio, nil
}

func (s *PortfolioService) GetPortfolios(ctx context.Context, userID int64) ([]model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolios"

	portfolios, err := s.repo.GetPortfolios(ctx, userID)
	if err != nil {
		slog.Error("failed on repo.GetPortfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return portfolios, nil
}

func (s *PortfolioService) RenamePortfolio(ctx context.Context, portfolioID, name string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RenamePortfolio"

	err := s.repo.RenamePortfolio(ctx, portfolioID, name)
	if err != nil {
		slog.Error("failed on repo.RenamePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) DeletePortfolio(ctx context.Context, portfolioID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeletePortfolio"

	err := s.repo.DeletePortfolio(ctx, portfolioID)
	if err != nil {
		slog.Error("failed on repo.DeletePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// DuplicatePortfolio creates a copy of a portfolio with all its holdings.
// The copy and the holdings clone commit together or not at all.
func (s *PortfolioService) DuplicatePortfolio(ctx context.Context, portfolioID string, userID int64, name string) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DuplicatePortfolio"

	src, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Portfolio{}, service.ErrNotFound
		}
		slog.Error("failed on repo.GetPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	if name == "" {
		name = src.Name + " (copy)"
	}

	var copied model.Portfolio
	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		copied, err = s.repo.CreatePortfolio(ctx, userID, name)
		if err != nil {
			return err
		}
		return s.repo.CopyHoldings(ctx, portfolioID, copied.PortfolioID)
	})
	if err != nil {
		slog.Error("failed on duplicate transaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	return copied, nil
}

// SaveContribution persists the contribution field behind the write
// coalescer. The write runs after the quiet window with a detached context;
// a failure there is logged, not surfaced, matching the fire-and-forget
// semantics of typing into the field.
func (s *PortfolioService) SaveContribution(ctx context.Context, portfolioID string, amount decimal.Decimal) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	writeCtx := context.WithoutCancel(ctx)
	s.coalescer.Schedule(writecoalescer.Key(portfolioID, "contribution"), func() {
		if err := s.repo.UpdateLastContribution(writeCtx, portfolioID, amount); err != nil {
			slog.Error("coalesced contribution write failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
	})
}

func (s *PortfolioService) SearchAssets(ctx context.Context, query string) ([]model.AssetSearchResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SearchAssets"

	if len([]rune(query)) < 2 {
		return []model.AssetSearchResult{}, nil
	}

	found, err := s.quoteApi.Search(ctx, query)
	if err != nil {
		slog.Error("failed on quoteApi.Search", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	results := make([]model.AssetSearchResult, 0, len(found))
	for _, r := range found {
		results = append(results, model.AssetSearchResult{
			Ticker:      r.Ticker,
			Name:        r.Name,
			TypeDisplay: r.Type,
			Exchange:    r.Exchange,
		})
	}

	return results, nil
}

// getQuotesCacheFirst serves the whole batch from the cache and falls back
// to the provider on any miss, refreshing the cache with what came back.
func (s *PortfolioService) getQuotesCacheFirst(ctx context.Context, tickers []string) (map[string]quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if len(tickers) == 0 {
		return map[string]quoteModel.Quote{}, nil
	}

	quotes, err := s.cache.GetQuotes(ctx, tickers)
	if err == nil {
		return quotes, nil
	}

	quotes, err = s.quoteApi.GetQuotes(ctx, tickers)
	if err != nil {
		slog.Error("failed on quoteApi.GetQuotes", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	toCache := make([]quoteModel.Quote, 0, len(quotes))
	for _, quote := range quotes {
		toCache = append(toCache, quote)
	}
	if err := s.cache.SetQuotes(ctx, toCache); err != nil {
		slog.Warn("failed on cache.SetQuotes", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	return quotes, nil
}

func (s *PortfolioService) getQuoteCacheFirst(ctx context.Context, ticker string) (quoteModel.Quote, error) {
	quote, err := s.cache.GetQuote(ctx, ticker)
	if err == nil {
		return quote, nil
	}

	quote, err = s.quoteApi.GetQuote(ctx, ticker)
	if err != nil {
		return quoteModel.Quote{}, err
	}

	if err := s.cache.SetQuotes(ctx, []quoteModel.Quote{quote}); err != nil {
		slog.Warn("failed on cache.SetQuotes", slog.String("err", err.Error()))
	}

	return quote, nil
}

// FillQuoteCache warms the quote cache for every ticker held anywhere.
// Runs as a background job so dashboard loads rarely hit the provider.
func (s *PortfolioService) FillQuoteCache(ctx context.Context) error {
	tickers, err := s.repo.GetAllTickers(ctx)
	if err != nil {
		return err
	}

	if len(tickers) == 0 {
		return nil
	}

	quotes, err := s.quoteApi.GetQuotes(ctx, tickers)
	if err != nil {
		return err
	}

	toCache := make([]quoteModel.Quote, 0, len(quotes))
	for _, quote := range quotes {
		toCache = append(toCache, quote)
	}

	return s.cache.SetQuotes(ctx, toCache)
}

// normalizeTicker is re-exported through the quote client so the service
// stays the single place that decides what a ticker looks like internally.
func normalizeTicker(ticker string) string {
	return quoteApi.NormalizeTicker(ticker)
}
