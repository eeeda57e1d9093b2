package authApi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fandance/rebalance-api/config"
	"github.com/fandance/rebalance-api/internal/externalApi"
	"github.com/fandance/rebalance-api/utils"
	"github.com/go-resty/resty/v2"
)

// UserInfo is the auth provider's answer to a token check. Authentication
// itself is delegated; this backend only verifies tokens the SPA already
// obtained.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type AuthApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *AuthApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AuthApi.Url)
	return &AuthApi{client: client}
}

func (a *AuthApi) VerifyToken(ctx context.Context, token string) (UserInfo, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/auth/v1/user"

	slog.Debug("AuthApi.VerifyToken start", slog.String("rqID", rqID))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetAuthToken(token).
		Get(url)

	if err != nil {
		slog.Error("error while dialing auth provider", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return UserInfo{}, err
	}

	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return UserInfo{}, externalApi.ErrUnauthorized
	}

	userInfo := UserInfo{}
	err = json.Unmarshal(resp.Body(), &userInfo)
	if err != nil {
		slog.Error("can't unmarshal response into authApi.UserInfo", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return UserInfo{}, err
	}

	if userInfo.ID == "" {
		return UserInfo{}, externalApi.ErrUnauthorized
	}

	slog.Debug("AuthApi.VerifyToken completed", slog.String("rqID", rqID))

	return userInfo, nil
}
