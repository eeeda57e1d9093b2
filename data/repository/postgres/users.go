package postgres

import (
	"context"
	"log/slog"

	"github.com/fandance/rebalance-api/utils"
)

func (r *Postgres) GetOrCreateUser(ctx context.Context, externalID, email string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO users(external_id, email) VALUES($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET email = EXCLUDED.email
		RETURNING user_id
		`

	slog.Debug("GetOrCreateUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetOrCreateUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetOrCreateUser completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, externalID, email).Scan(&userID)
	if err != nil {
		return 0, err
	}

	return userID, nil
}
