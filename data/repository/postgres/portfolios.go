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
	"github.com/shopspring/decimal"
)

func (r *Postgres) CreatePortfolio(ctx context.Context, userID int64, name string) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO portfolios(user_id, name) VALUES($1, $2)
		RETURNING portfolio_id, user_id, name, last_contribution, dt_create
		`

	slog.Debug("CreatePortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreatePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreatePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	dbPortfolio := dbModel.Portfolio{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID, name).StructScan(&dbPortfolio)
	if err != nil {
		return model.Portfolio{}, err
	}

	return dbConverter.ConvertPortfolio(dbPortfolio), nil
}

func (r *Postgres) GetPortfolios(ctx context.Context, userID int64) (portfolios []model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT portfolio_id, user_id, name, last_contribution, dt_create
		FROM portfolios
		WHERE user_id = $1
		ORDER BY dt_create
		`

	slog.Debug("GetPortfolios start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolios failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolios completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbPortfolio dbModel.Portfolio
		err = rows.StructScan(&dbPortfolio)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, dbConverter.ConvertPortfolio(dbPortfolio))
	}

	return portfolios, nil
}

func (r *Postgres) GetPortfolio(ctx context.Context, portfolioID string) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT portfolio_id, user_id, name, last_contribution, dt_create
		FROM portfolios
		WHERE portfolio_id = $1
		`

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolio completed", slog.String("rqID", rqID))
		}
	}()

	dbPortfolio := dbModel.Portfolio{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, portfolioID).StructScan(&dbPortfolio)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Portfolio{}, repository.ErrNotFound
		}
		return model.Portfolio{}, err
	}

	return dbConverter.ConvertPortfolio(dbPortfolio), nil
}

func (r *Postgres) RenamePortfolio(ctx context.Context, portfolioID, name string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE portfolios SET name = $2 WHERE portfolio_id = $1`

	slog.Debug("RenamePortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("RenamePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("RenamePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, portfolioID, name)
	return err
}

func (r *Postgres) DeletePortfolio(ctx context.Context, portfolioID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM portfolios WHERE portfolio_id = $1`

	slog.Debug("DeletePortfolio start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeletePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, portfolioID)
	return err
}

func (r *Postgres) UpdateLastContribution(ctx context.Context, portfolioID string, amount decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE portfolios SET last_contribution = $2 WHERE portfolio_id = $1`

	slog.Debug("UpdateLastContribution start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateLastContribution failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateLastContribution completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, portfolioID, amount)
	return err
}

// CopyHoldings clones every holding of src into dst with the same units and
// target weights. Used by portfolio duplication.
func (r *Postgres) CopyHoldings(ctx context.Context, srcPortfolioID, dstPortfolioID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO portfolio_items(portfolio_id, asset_id, units_held, target_weight, fallback_value)
		SELECT $2, asset_id, units_held, target_weight, fallback_value
		FROM portfolio_items
		WHERE portfolio_id = $1
		`

	slog.Debug("CopyHoldings start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CopyHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CopyHoldings completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, srcPortfolioID, dstPortfolioID)
	return err
}
