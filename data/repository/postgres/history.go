package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/fandance/rebalance-api/data/repository"
	"github.com/fandance/rebalance-api/internal/converter/dbConverter"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/model/dbModel"
	"github.com/fandance/rebalance-api/utils"
)

func (r *Postgres) InsertHistoryRecord(ctx context.Context, record model.HistoryRecord) (historyID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO rebalance_history(portfolio_id, contribution, total_value_before, total_value_after)
		VALUES($1, $2, $3, $4)
		RETURNING history_id
		`

	slog.Debug("InsertHistoryRecord start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertHistoryRecord failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHistoryRecord completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(
		ctx, query,
		record.PortfolioID, record.Contribution, record.TotalValueBefore, record.TotalValueAfter,
	).Scan(&historyID)
	if err != nil {
		return "", err
	}

	return historyID, nil
}

func (r *Postgres) InsertHistoryItems(ctx context.Context, historyID string, items []model.HistoryItem) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO rebalance_history_items(history_id, ticker, asset_name, action, units_delta, value_delta, price)
		VALUES(:history_id, :ticker, :asset_name, :action, :units_delta, :value_delta, :price)
		`

	slog.Debug("InsertHistoryItems start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertHistoryItems failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHistoryItems completed", slog.String("rqID", rqID))
		}
	}()

	dbItems := make([]dbModel.HistoryItem, 0, len(items))
	for _, item := range items {
		dbItems = append(dbItems, dbModel.HistoryItem{
			HistoryID:  historyID,
			Ticker:     item.Ticker,
			AssetName:  item.AssetName,
			Action:     string(item.Action),
			UnitsDelta: item.UnitsDelta,
			ValueDelta: item.ValueDelta,
			Price:      item.Price,
		})
	}

	_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, dbItems)
	return err
}

func (r *Postgres) getHistoryItems(ctx context.Context, historyID string) ([]dbModel.HistoryItem, error) {
	query := `
		SELECT id, history_id, ticker, asset_name, action, units_delta, value_delta, price
		FROM rebalance_history_items
		WHERE history_id = $1
		ORDER BY id
		`

	var items []dbModel.HistoryItem
	err := r.txOrDb(ctx).SelectContext(ctx, &items, query, historyID)
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *Postgres) GetHistory(ctx context.Context, portfolioID string) (records []model.HistoryRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT history_id, portfolio_id, contribution, total_value_before, total_value_after, undone, dt_create
		FROM rebalance_history
		WHERE portfolio_id = $1
		ORDER BY dt_create DESC
		`

	slog.Debug("GetHistory start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHistory failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHistory completed", slog.String("rqID", rqID))
		}
	}()

	var dbRecords []dbModel.HistoryRecord
	err = r.txOrDb(ctx).SelectContext(ctx, &dbRecords, query, portfolioID)
	if err != nil {
		return nil, err
	}

	records = make([]model.HistoryRecord, 0, len(dbRecords))
	for _, dbRecord := range dbRecords {
		items, err := r.getHistoryItems(ctx, dbRecord.HistoryID)
		if err != nil {
			return nil, err
		}
		records = append(records, dbConverter.ConvertHistoryRecord(dbRecord, items))
	}

	return records, nil
}

func (r *Postgres) GetHistoryRecord(ctx context.Context, historyID string) (record model.HistoryRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT history_id, portfolio_id, contribution, total_value_before, total_value_after, undone, dt_create
		FROM rebalance_history
		WHERE history_id = $1
		`

	slog.Debug("GetHistoryRecord start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHistoryRecord failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHistoryRecord completed", slog.String("rqID", rqID))
		}
	}()

	dbRecord := dbModel.HistoryRecord{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, historyID).StructScan(&dbRecord)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.HistoryRecord{}, repository.ErrNotFound
		}
		return model.HistoryRecord{}, err
	}

	items, err := r.getHistoryItems(ctx, historyID)
	if err != nil {
		return model.HistoryRecord{}, err
	}

	return dbConverter.ConvertHistoryRecord(dbRecord, items), nil
}

func (r *Postgres) SetHistoryUndone(ctx context.Context, historyID string, undone bool) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE rebalance_history SET undone = $2 WHERE history_id = $1`

	slog.Debug("SetHistoryUndone start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("SetHistoryUndone failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("SetHistoryUndone completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, historyID, undone)
	return err
}

// DeleteHistoryRecord removes the audit record only; holdings are never
// touched here.
func (r *Postgres) DeleteHistoryRecord(ctx context.Context, historyID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM rebalance_history WHERE history_id = $1`

	slog.Debug("DeleteHistoryRecord start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteHistoryRecord failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteHistoryRecord completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, historyID)
	return err
}
