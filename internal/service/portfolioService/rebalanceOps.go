package portfolioService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fandance/rebalance-api/data/repository"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/rebalance"
	"github.com/fandance/rebalance-api/internal/service"
	"github.com/fandance/rebalance-api/utils"
	"github.com/shopspring/decimal"
)

// deltas smaller than this are treated as zero and never recorded
var zeroTolerance = decimal.New(1, -5)

// ComputeRebalance prices the portfolio and runs the allocation pass.
// Pure read: nothing is persisted, the client may call this on every edit.
func (s *PortfolioService) ComputeRebalance(ctx context.Context, portfolioID string, contribution decimal.Decimal) (model.RebalancePlan, error) {
	holdings, _, err := s.GetHoldings(ctx, portfolioID)
	if err != nil {
		return model.RebalancePlan{}, err
	}

	return rebalance.ComputePlan(holdings, contribution), nil
}

// ApplyRebalance executes a submitted plan: each line's deltas land on its
// holding and a history record captures them for undo. Holdings, the record
// and the contribution update commit in one transaction. A second apply for
// the same portfolio while one is in flight is rejected, not queued.
func (s *PortfolioService) ApplyRebalance(ctx context.Context, portfolioID string, contribution decimal.Decimal, orders []model.ApplyOrder) (model.HistoryRecord, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ApplyRebalance"

	locked, err := s.locker.AcquireApplyLock(ctx, portfolioID)
	if err != nil {
		slog.Error("failed on locker.AcquireApplyLock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.HistoryRecord{}, err
	}
	if !locked {
		return model.HistoryRecord{}, service.ErrApplyInProgress
	}
	defer func() {
		if err := s.locker.ReleaseApplyLock(ctx, portfolioID); err != nil {
			slog.Error("failed on locker.ReleaseApplyLock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	holdings, summary, err := s.GetHoldings(ctx, portfolioID)
	if err != nil {
		return model.HistoryRecord{}, err
	}

	itemIDs := make(map[string]struct{}, len(holdings))
	for _, holding := range holdings {
		itemIDs[holding.ItemID] = struct{}{}
	}

	record := model.HistoryRecord{
		PortfolioID:      portfolioID,
		Contribution:     contribution,
		TotalValueBefore: summary.TotalValue,
		TotalValueAfter:  summary.TotalValue.Add(contribution),
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, order := range orders {
			if _, ok := itemIDs[order.ItemID]; !ok {
				// stale plan line for a holding deleted meanwhile
				slog.Warn("skipping order for unknown holding", slog.String("rqID", rqID), slog.String("op", op), slog.String("itemID", order.ItemID))
				continue
			}

			if order.UnitsToTrade.Abs().LessThan(zeroTolerance) && order.DiffValue.Abs().LessThan(zeroTolerance) {
				continue
			}

			// with a live price the value is derived from units, so only
			// priceless holdings carry the delta on their fallback value
			fallbackDelta := decimal.Zero
			if !order.Price.IsPositive() {
				fallbackDelta = order.DiffValue
			}

			if err := s.repo.AdjustHolding(ctx, order.ItemID, order.UnitsToTrade, fallbackDelta); err != nil {
				return err
			}

			record.Items = append(record.Items, model.HistoryItem{
				Ticker:     order.Ticker,
				AssetName:  order.AssetName,
				Action:     order.Action,
				UnitsDelta: order.UnitsToTrade,
				ValueDelta: order.DiffValue,
				Price:      order.Price,
			})
		}

		record.HistoryID, err = s.repo.InsertHistoryRecord(ctx, record)
		if err != nil {
			return err
		}

		if len(record.Items) > 0 {
			if err := s.repo.InsertHistoryItems(ctx, record.HistoryID, record.Items); err != nil {
				return err
			}
		}

		return s.repo.UpdateLastContribution(ctx, portfolioID, contribution)
	})
	if err != nil {
		slog.Error("failed on apply transaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.HistoryRecord{}, err
	}

	slog.Info(
		"rebalance applied",
		slog.String("rqID", rqID),
		slog.String("portfolioID", portfolioID),
		slog.Int("lines", len(record.Items)),
	)

	return record, nil
}

func (s *PortfolioService) GetHistory(ctx context.Context, portfolioID string) ([]model.HistoryRecord, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetHistory"

	records, err := s.repo.GetHistory(ctx, portfolioID)
	if err != nil {
		slog.Error("failed on repo.GetHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return records, nil
}

// UndoRebalance reverses an applied record by negating its stored line
// deltas. It never recomputes against current prices and never clamps, so
// the holdings come back to exactly their prior units and fallback values.
// The record stays in the ledger flagged as undone.
func (s *PortfolioService) UndoRebalance(ctx context.Context, historyID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UndoRebalance"

	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		record, err := s.repo.GetHistoryRecord(ctx, historyID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			return err
		}

		if record.Undone {
			return service.ErrAlreadyUndone
		}

		for _, item := range record.Items {
			holding, err := s.repo.GetHoldingByTicker(ctx, record.PortfolioID, item.Ticker)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					// holding removed since the apply, nothing to restore
					slog.Warn("undo skips removed holding", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", item.Ticker))
					continue
				}
				return err
			}

			fallbackDelta := decimal.Zero
			if !item.Price.IsPositive() {
				fallbackDelta = item.ValueDelta.Neg()
			}

			if err := s.repo.AdjustHolding(ctx, holding.ItemID, item.UnitsDelta.Neg(), fallbackDelta); err != nil {
				return err
			}
		}

		return s.repo.SetHistoryUndone(ctx, historyID, true)
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrAlreadyUndone) {
			return err
		}
		slog.Error("failed on undo transaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("rebalance undone", slog.String("rqID", rqID), slog.String("historyID", historyID))

	return nil
}

// DeleteHistory drops the audit record only. Holdings stay exactly as they
// are; deleting is not undoing.
func (s *PortfolioService) DeleteHistory(ctx context.Context, historyID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteHistory"

	err := s.repo.DeleteHistoryRecord(ctx, historyID)
	if err != nil {
		slog.Error("failed on repo.DeleteHistoryRecord", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
