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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

func (r *Postgres) GetAssetByTicker(ctx context.Context, ticker string) (asset model.Asset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT asset_id, ticker, name, type, sector, country, currency
		FROM assets
		WHERE ticker = $1
		`

	slog.Debug("GetAssetByTicker start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAssetByTicker failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAssetByTicker completed", slog.String("rqID", rqID))
		}
	}()

	dbAsset := dbModel.Asset{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, ticker).StructScan(&dbAsset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Asset{}, repository.ErrNotFound
		}
		return model.Asset{}, err
	}

	return dbConverter.ConvertAsset(dbAsset), nil
}

func (r *Postgres) InsertAsset(ctx context.Context, asset model.Asset) (assetID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO assets(ticker, name, type, sector, country, currency)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING asset_id
		`

	slog.Debug("InsertAsset start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertAsset failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertAsset completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, asset.Ticker, asset.Name, asset.Type, asset.Sector, asset.Country, asset.Currency).Scan(&assetID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return assetID, nil
}

func (r *Postgres) InsertHolding(ctx context.Context, portfolioID string, assetID int64) (itemID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO portfolio_items(portfolio_id, asset_id)
		VALUES($1, $2)
		RETURNING item_id
		`

	slog.Debug("InsertHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertHolding completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, portfolioID, assetID).Scan(&itemID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", repository.ErrAlreadyExists
		}
		return "", err
	}

	return itemID, nil
}

const holdingColumns = `
	i.item_id, i.portfolio_id, i.asset_id, i.units_held, i.target_weight, i.fallback_value,
	a.ticker, a.name AS asset_name, a.type AS asset_type, a.sector, a.country, a.currency
	`

func (r *Postgres) GetHoldings(ctx context.Context, portfolioID string) (holdings []model.HoldingBase, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT ` + holdingColumns + `
		FROM portfolio_items i
		JOIN assets a ON a.asset_id = i.asset_id
		WHERE i.portfolio_id = $1
		ORDER BY i.dt_create
		`

	slog.Debug("GetHoldings start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldings completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbHolding dbModel.Holding
		err = rows.StructScan(&dbHolding)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(dbHolding))
	}

	return holdings, nil
}

func (r *Postgres) GetHolding(ctx context.Context, itemID string) (holding model.HoldingBase, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT ` + holdingColumns + `
		FROM portfolio_items i
		JOIN assets a ON a.asset_id = i.asset_id
		WHERE i.item_id = $1
		`

	slog.Debug("GetHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHolding completed", slog.String("rqID", rqID))
		}
	}()

	dbHolding := dbModel.Holding{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, itemID).StructScan(&dbHolding)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.HoldingBase{}, repository.ErrNotFound
		}
		return model.HoldingBase{}, err
	}

	return dbConverter.ConvertHolding(dbHolding), nil
}

func (r *Postgres) GetHoldingByTicker(ctx context.Context, portfolioID, ticker string) (holding model.HoldingBase, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT ` + holdingColumns + `
		FROM portfolio_items i
		JOIN assets a ON a.asset_id = i.asset_id
		WHERE i.portfolio_id = $1 AND a.ticker = $2
		`

	slog.Debug("GetHoldingByTicker start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHoldingByTicker failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHoldingByTicker completed", slog.String("rqID", rqID))
		}
	}()

	dbHolding := dbModel.Holding{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, portfolioID, ticker).StructScan(&dbHolding)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.HoldingBase{}, repository.ErrNotFound
		}
		return model.HoldingBase{}, err
	}

	return dbConverter.ConvertHolding(dbHolding), nil
}

// UpdateHolding writes only the fields that are non-nil.
func (r *Postgres) UpdateHolding(ctx context.Context, itemID string, units, weight, fallbackValue *decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE portfolio_items
		SET units_held = COALESCE($2, units_held),
			target_weight = COALESCE($3, target_weight),
			fallback_value = COALESCE($4, fallback_value)
		WHERE item_id = $1
		`

	slog.Debug("UpdateHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateHolding completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, itemID, units, weight, fallbackValue)
	return err
}

// AdjustHolding applies signed deltas to a holding. Apply and undo both go
// through here, undo with the deltas negated.
func (r *Postgres) AdjustHolding(ctx context.Context, itemID string, unitsDelta, valueDelta decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE portfolio_items
		SET units_held = units_held + $2,
			fallback_value = fallback_value + $3
		WHERE item_id = $1
		`

	slog.Debug("AdjustHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("AdjustHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("AdjustHolding completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, itemID, unitsDelta, valueDelta)
	return err
}

func (r *Postgres) DeleteHolding(ctx context.Context, itemID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM portfolio_items WHERE item_id = $1`

	slog.Debug("DeleteHolding start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteHolding failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteHolding completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, itemID)
	return err
}

// GetAllTickers lists every distinct ticker held in any portfolio, for the
// quote cache refresh job.
func (r *Postgres) GetAllTickers(ctx context.Context) (tickers []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT DISTINCT a.ticker
		FROM portfolio_items i
		JOIN assets a ON a.asset_id = i.asset_id
		`

	slog.Debug("GetAllTickers start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAllTickers failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAllTickers completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &tickers, query)
	if err != nil {
		return nil, err
	}

	return tickers, nil
}
