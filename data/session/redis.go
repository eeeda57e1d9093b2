package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fandance/rebalance-api/config"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/utils"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("session not found")

const (
	sessionKeyPrefix   = "session:"
	applyLockKeyPrefix = "apply_lock:"
)

type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func (s *RedisSession) GetSession(ctx context.Context, token string) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := s.redis.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.Get in GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, err
	}

	session := model.Session{}
	if err := json.Unmarshal([]byte(res), &session); err != nil {
		slog.Error("can't unmarshal session", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return model.Session{}, errors.New("can't unmarshal session")
	}

	return session, nil
}

func (s *RedisSession) SetSession(ctx context.Context, token string, session model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	sessionJson, err := json.Marshal(session)
	if err != nil {
		slog.Error("can't marshal session", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshal session")
	}

	err = s.redis.Set(ctx, sessionKeyPrefix+token, sessionJson, s.cfg.SessionExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set in SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// AcquireApplyLock takes the single-flight lock for a portfolio. It returns
// false when another apply is already in flight. The TTL guards against a
// crashed holder keeping the portfolio locked forever.
func (s *RedisSession) AcquireApplyLock(ctx context.Context, portfolioID string) (bool, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	ok, err := s.redis.SetNX(ctx, applyLockKeyPrefix+portfolioID, 1, s.cfg.ApplyLockTTL).Result()
	if err != nil {
		slog.Error("failed on redis.SetNX in AcquireApplyLock", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return false, fmt.Errorf("acquire apply lock: %w", err)
	}

	return ok, nil
}

func (s *RedisSession) ReleaseApplyLock(ctx context.Context, portfolioID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	err := s.redis.Del(ctx, applyLockKeyPrefix+portfolioID).Err()
	if err != nil {
		slog.Error("failed on redis.Del in ReleaseApplyLock", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}
