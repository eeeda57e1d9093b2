package portfolioService

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/fandance/rebalance-api/config"
	"github.com/fandance/rebalance-api/data/repository"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/model/quoteModel"
	"github.com/fandance/rebalance-api/internal/service"
	"github.com/fandance/rebalance-api/internal/writecoalescer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo keeps everything in maps and runs "transactions" by just calling
// the closure. Enough to exercise the service orchestration.
type fakeRepo struct {
	portfolios map[string]*model.Portfolio
	holdings   map[string]*model.HoldingBase
	records    map[string]*model.HistoryRecord
	seq        int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		portfolios: map[string]*model.Portfolio{},
		holdings:   map[string]*model.HoldingBase{},
		records:    map[string]*model.HistoryRecord{},
	}
}

func (r *fakeRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakeRepo) GetOrCreateUser(_ context.Context, _, _ string) (int64, error) { return 1, nil }

func (r *fakeRepo) CreatePortfolio(_ context.Context, userID int64, name string) (model.Portfolio, error) {
	p := model.Portfolio{PortfolioID: r.nextID("p"), UserID: userID, Name: name}
	r.portfolios[p.PortfolioID] = &p
	return p, nil
}

func (r *fakeRepo) GetPortfolios(_ context.Context, _ int64) ([]model.Portfolio, error) {
	return nil, nil
}

func (r *fakeRepo) GetPortfolio(_ context.Context, portfolioID string) (model.Portfolio, error) {
	p, ok := r.portfolios[portfolioID]
	if !ok {
		return model.Portfolio{}, repository.ErrNotFound
	}
	return *p, nil
}

func (r *fakeRepo) RenamePortfolio(_ context.Context, portfolioID, name string) error {
	r.portfolios[portfolioID].Name = name
	return nil
}

func (r *fakeRepo) DeletePortfolio(_ context.Context, portfolioID string) error {
	delete(r.portfolios, portfolioID)
	return nil
}

func (r *fakeRepo) UpdateLastContribution(_ context.Context, portfolioID string, amount decimal.Decimal) error {
	r.portfolios[portfolioID].LastContribution = amount
	return nil
}

func (r *fakeRepo) CopyHoldings(_ context.Context, src, dst string) error {
	for _, h := range r.holdings {
		if h.PortfolioID == src {
			clone := *h
			clone.ItemID = r.nextID("i")
			clone.PortfolioID = dst
			r.holdings[clone.ItemID] = &clone
		}
	}
	return nil
}

func (r *fakeRepo) GetAssetByTicker(_ context.Context, _ string) (model.Asset, error) {
	return model.Asset{}, repository.ErrNotFound
}

func (r *fakeRepo) InsertAsset(_ context.Context, _ model.Asset) (int64, error) { return 1, nil }

func (r *fakeRepo) InsertHolding(_ context.Context, _ string, _ int64) (string, error) {
	return r.nextID("i"), nil
}

func (r *fakeRepo) GetHoldings(_ context.Context, portfolioID string) ([]model.HoldingBase, error) {
	var out []model.HoldingBase
	for _, h := range r.holdings {
		if h.PortfolioID == portfolioID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (r *fakeRepo) GetHolding(_ context.Context, itemID string) (model.HoldingBase, error) {
	h, ok := r.holdings[itemID]
	if !ok {
		return model.HoldingBase{}, repository.ErrNotFound
	}
	return *h, nil
}

func (r *fakeRepo) GetHoldingByTicker(_ context.Context, portfolioID, ticker string) (model.HoldingBase, error) {
	for _, h := range r.holdings {
		if h.PortfolioID == portfolioID && h.Asset.Ticker == ticker {
			return *h, nil
		}
	}
	return model.HoldingBase{}, repository.ErrNotFound
}

func (r *fakeRepo) UpdateHolding(_ context.Context, itemID string, units, weight, fallbackValue *decimal.Decimal) error {
	h := r.holdings[itemID]
	if units != nil {
		h.UnitsHeld = *units
	}
	if weight != nil {
		h.TargetWeight = *weight
	}
	if fallbackValue != nil {
		h.FallbackValue = *fallbackValue
	}
	return nil
}

func (r *fakeRepo) AdjustHolding(_ context.Context, itemID string, unitsDelta, valueDelta decimal.Decimal) error {
	h := r.holdings[itemID]
	h.UnitsHeld = h.UnitsHeld.Add(unitsDelta)
	h.FallbackValue = h.FallbackValue.Add(valueDelta)
	return nil
}

func (r *fakeRepo) DeleteHolding(_ context.Context, itemID string) error {
	delete(r.holdings, itemID)
	return nil
}

func (r *fakeRepo) GetAllTickers(_ context.Context) ([]string, error) { return nil, nil }

func (r *fakeRepo) InsertHistoryRecord(_ context.Context, record model.HistoryRecord) (string, error) {
	record.HistoryID = r.nextID("h")
	record.CreatedAt = time.Now()
	r.records[record.HistoryID] = &record
	return record.HistoryID, nil
}

func (r *fakeRepo) InsertHistoryItems(_ context.Context, historyID string, items []model.HistoryItem) error {
	r.records[historyID].Items = items
	return nil
}

func (r *fakeRepo) GetHistory(_ context.Context, portfolioID string) ([]model.HistoryRecord, error) {
	var out []model.HistoryRecord
	for _, rec := range r.records {
		if rec.PortfolioID == portfolioID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetHistoryRecord(_ context.Context, historyID string) (model.HistoryRecord, error) {
	rec, ok := r.records[historyID]
	if !ok {
		return model.HistoryRecord{}, repository.ErrNotFound
	}
	return *rec, nil
}

func (r *fakeRepo) SetHistoryUndone(_ context.Context, historyID string, undone bool) error {
	r.records[historyID].Undone = undone
	return nil
}

func (r *fakeRepo) DeleteHistoryRecord(_ context.Context, historyID string) error {
	delete(r.records, historyID)
	return nil
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error {
	return txFunc(ctx)
}

type fakeQuoteApi struct {
	quotes map[string]quoteModel.Quote
}

func (a *fakeQuoteApi) Search(_ context.Context, _ string) ([]quoteModel.SearchResult, error) {
	return nil, nil
}

func (a *fakeQuoteApi) GetQuote(_ context.Context, ticker string) (quoteModel.Quote, error) {
	return a.quotes[ticker], nil
}

func (a *fakeQuoteApi) GetQuotes(_ context.Context, tickers []string) (map[string]quoteModel.Quote, error) {
	out := map[string]quoteModel.Quote{}
	for _, t := range tickers {
		if q, ok := a.quotes[t]; ok {
			out[t] = q
		}
	}
	return out, nil
}

func (a *fakeQuoteApi) GetPriceHistory(_ context.Context, _, _, _ string) ([]quoteModel.Candle, error) {
	return nil, nil
}

type missCache struct{}

func (missCache) GetQuote(_ context.Context, _ string) (quoteModel.Quote, error) {
	return quoteModel.Quote{}, errors.New("miss")
}

func (missCache) GetQuotes(_ context.Context, _ []string) (map[string]quoteModel.Quote, error) {
	return nil, errors.New("miss")
}

func (missCache) SetQuotes(_ context.Context, _ []quoteModel.Quote) error { return nil }

type fakeLocker struct {
	held map[string]bool
}

func (l *fakeLocker) AcquireApplyLock(_ context.Context, portfolioID string) (bool, error) {
	if l.held[portfolioID] {
		return false, nil
	}
	l.held[portfolioID] = true
	return true, nil
}

func (l *fakeLocker) ReleaseApplyLock(_ context.Context, portfolioID string) error {
	delete(l.held, portfolioID)
	return nil
}

type fixture struct {
	svc    *PortfolioService
	repo   *fakeRepo
	quotes *fakeQuoteApi
	locker *fakeLocker
}

func newFixture() *fixture {
	repo := newFakeRepo()
	quotes := &fakeQuoteApi{quotes: map[string]quoteModel.Quote{}}
	locker := &fakeLocker{held: map[string]bool{}}

	svc := New(
		&config.Config{},
		repo,
		missCache{},
		locker,
		quotes,
		nil,
		nil,
		nil,
		writecoalescer.New(time.Millisecond),
	)

	return &fixture{svc: svc, repo: repo, quotes: quotes, locker: locker}
}

func (f *fixture) addHolding(portfolioID, ticker string, units, weight, fallback, price float64, active bool) string {
	itemID := f.repo.nextID("i")
	f.repo.holdings[itemID] = &model.HoldingBase{
		ItemID:        itemID,
		PortfolioID:   portfolioID,
		Asset:         model.Asset{Ticker: ticker, Name: ticker + " Inc", Type: "Stock"},
		UnitsHeld:     decimal.NewFromFloat(units),
		TargetWeight:  decimal.NewFromFloat(weight),
		FallbackValue: decimal.NewFromFloat(fallback),
	}
	f.quotes.quotes[ticker] = quoteModel.Quote{
		Ticker: ticker,
		Name:   ticker + " Inc",
		Price:  decimal.NewFromFloat(price),
		Status: active,
	}
	return itemID
}

func ordersFromPlan(plan model.RebalancePlan) []model.ApplyOrder {
	orders := make([]model.ApplyOrder, 0, len(plan.Orders))
	for _, line := range plan.Orders {
		orders = append(orders, model.ApplyOrder{
			ItemID:       line.ItemID,
			Ticker:       line.Asset.Ticker,
			AssetName:    line.Asset.Name,
			Action:       line.Action,
			UnitsToTrade: line.UnitsToTrade,
			DiffValue:    line.DiffValue,
			Price:        line.CurrentPrice,
		})
	}
	return orders
}

func TestApplyRebalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.repo.CreatePortfolio(ctx, 1, "main")
	require.NoError(t, err)

	itemA := f.addHolding(p.PortfolioID, "AAA", 60, 60, 0, 100, true)
	itemB := f.addHolding(p.PortfolioID, "BBB", 80, 40, 0, 50, true)

	plan, err := f.svc.ComputeRebalance(ctx, p.PortfolioID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.Len(t, plan.Orders, 2)

	record, err := f.svc.ApplyRebalance(ctx, p.PortfolioID, plan.Contribution, ordersFromPlan(plan))
	require.NoError(t, err)

	assert.Len(t, record.Items, 2)
	assert.True(t, f.repo.holdings[itemA].UnitsHeld.Equal(decimal.NewFromInt(66)), "got %s", f.repo.holdings[itemA].UnitsHeld)
	assert.True(t, f.repo.holdings[itemB].UnitsHeld.Equal(decimal.NewFromInt(88)), "got %s", f.repo.holdings[itemB].UnitsHeld)
	assert.True(t, f.repo.portfolios[p.PortfolioID].LastContribution.Equal(decimal.NewFromInt(1000)))
	assert.False(t, f.locker.held[p.PortfolioID], "lock released after apply")
}

func TestApplyRebalance_UndoRestoresExactState(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.repo.CreatePortfolio(ctx, 1, "main")
	require.NoError(t, err)

	itemA := f.addHolding(p.PortfolioID, "AAA", 60, 60, 0, 100, true)
	itemC := f.addHolding(p.PortfolioID, "CCC", 0, 40, 500, 0, true) // no price, manual value

	plan, err := f.svc.ComputeRebalance(ctx, p.PortfolioID, decimal.NewFromInt(1000))
	require.NoError(t, err)

	record, err := f.svc.ApplyRebalance(ctx, p.PortfolioID, plan.Contribution, ordersFromPlan(plan))
	require.NoError(t, err)

	// priceless line lands on the fallback value, not on units
	assert.True(t, f.repo.holdings[itemC].UnitsHeld.IsZero())
	assert.False(t, f.repo.holdings[itemC].FallbackValue.Equal(decimal.NewFromInt(500)))

	// prices move between apply and undo; undo must not care
	f.quotes.quotes["AAA"] = quoteModel.Quote{Ticker: "AAA", Price: decimal.NewFromInt(137), Status: true}

	err = f.svc.UndoRebalance(ctx, record.HistoryID)
	require.NoError(t, err)

	assert.True(t, f.repo.holdings[itemA].UnitsHeld.Equal(decimal.NewFromInt(60)), "got %s", f.repo.holdings[itemA].UnitsHeld)
	assert.True(t, f.repo.holdings[itemC].FallbackValue.Equal(decimal.NewFromInt(500)), "got %s", f.repo.holdings[itemC].FallbackValue)

	stored, err := f.repo.GetHistoryRecord(ctx, record.HistoryID)
	require.NoError(t, err)
	assert.True(t, stored.Undone, "record stays in the ledger, flagged undone")

	err = f.svc.UndoRebalance(ctx, record.HistoryID)
	assert.ErrorIs(t, err, service.ErrAlreadyUndone)
}

func TestApplyRebalance_SecondApplyRejectedWhileLocked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.repo.CreatePortfolio(ctx, 1, "main")
	require.NoError(t, err)
	f.addHolding(p.PortfolioID, "AAA", 10, 100, 0, 10, true)

	f.locker.held[p.PortfolioID] = true

	_, err = f.svc.ApplyRebalance(ctx, p.PortfolioID, decimal.NewFromInt(100), nil)
	assert.ErrorIs(t, err, service.ErrApplyInProgress)
}

func TestDeleteHistory_LeavesHoldingsUntouched(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.repo.CreatePortfolio(ctx, 1, "main")
	require.NoError(t, err)
	itemA := f.addHolding(p.PortfolioID, "AAA", 60, 100, 0, 100, true)

	plan, err := f.svc.ComputeRebalance(ctx, p.PortfolioID, decimal.NewFromInt(1000))
	require.NoError(t, err)

	record, err := f.svc.ApplyRebalance(ctx, p.PortfolioID, plan.Contribution, ordersFromPlan(plan))
	require.NoError(t, err)

	unitsAfterApply := f.repo.holdings[itemA].UnitsHeld

	err = f.svc.DeleteHistory(ctx, record.HistoryID)
	require.NoError(t, err)

	_, err = f.repo.GetHistoryRecord(ctx, record.HistoryID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.True(t, f.repo.holdings[itemA].UnitsHeld.Equal(unitsAfterApply), "delete is not undo")
}

func TestUpdateHolding_ValueEditRecomputesUnits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.repo.CreatePortfolio(ctx, 1, "main")
	require.NoError(t, err)
	itemA := f.addHolding(p.PortfolioID, "AAA", 10, 100, 0, 50, true)

	newValue := decimal.NewFromInt(1000)
	holding, err := f.svc.UpdateHolding(ctx, itemA, nil, nil, &newValue)
	require.NoError(t, err)

	assert.True(t, holding.UnitsHeld.Equal(decimal.NewFromInt(20)), "got %s", holding.UnitsHeld)
	assert.True(t, holding.Value.Equal(newValue))

	// coalesced write lands after the quiet window
	time.Sleep(30 * time.Millisecond)
	assert.True(t, f.repo.holdings[itemA].UnitsHeld.Equal(decimal.NewFromInt(20)), "got %s", f.repo.holdings[itemA].UnitsHeld)
}

func TestGetHoldings_Summary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p, err := f.repo.CreatePortfolio(ctx, 1, "main")
	require.NoError(t, err)
	f.addHolding(p.PortfolioID, "AAA", 60, 60, 0, 100, true)
	f.addHolding(p.PortfolioID, "BBB", 80, 40, 0, 50, true)

	holdings, summary, err := f.svc.GetHoldings(ctx, p.PortfolioID)
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	assert.True(t, summary.TotalValue.Equal(decimal.NewFromInt(10000)))
	assert.True(t, summary.TotalWeight.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 2, summary.HoldingsCount)
	assert.Equal(t, 10, summary.RiskScore, "plain equities score at the top of the scale")

	assert.True(t, holdings[0].ActualWeight.Equal(decimal.NewFromInt(60)), "got %s", holdings[0].ActualWeight)
	assert.True(t, holdings[1].ActualWeight.Equal(decimal.NewFromInt(40)), "got %s", holdings[1].ActualWeight)
}
