package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fandance/rebalance-api/internal/externalApi/authApi"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/utils"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type sessionCtxKey struct{}

func sessionFromCtx(ctx context.Context) model.Session {
	session, ok := ctx.Value(sessionCtxKey{}).(model.Session)
	if !ok {
		return model.Session{}
	}
	return session
}

// requestIDMiddleware tags every request with a uuid that all layers log.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rqID := r.Header.Get("X-Request-Id")
		if rqID == "" {
			rqID = uuid.NewString()
		}

		w.Header().Set("X-Request-Id", rqID)
		next.ServeHTTP(w, r.WithContext(utils.CtxWithRqID(r.Context(), rqID)))
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		slog.Info(
			"http request",
			slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type SessionStore interface {
	GetSession(ctx context.Context, token string) (model.Session, error)
	SetSession(ctx context.Context, token string, session model.Session) error
}

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (authApi.UserInfo, error)
}

type UserResolver interface {
	GetOrCreateUser(ctx context.Context, externalID, email string) (int64, error)
}

// AuthMiddleware resolves the bearer token to a user. Known tokens come
// straight from the redis session store; unknown ones go to the auth
// provider once and the resulting session is cached for the TTL.
type AuthMiddleware struct {
	sessions SessionStore
	verifier TokenVerifier
	users    UserResolver
}

func NewAuthMiddleware(sessions SessionStore, verifier TokenVerifier, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, verifier: verifier, users: users}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		rqID := utils.GetRequestIDFromCtx(ctx)

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}

		session, err := m.sessions.GetSession(ctx, token)
		if err != nil {
			userInfo, err := m.verifier.VerifyToken(ctx, token)
			if err != nil {
				slog.Debug("token rejected", slog.String("rqID", rqID), slog.String("err", err.Error()))
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			userID, err := m.users.GetOrCreateUser(ctx, userInfo.ID, userInfo.Email)
			if err != nil {
				slog.Error("failed to resolve user", slog.String("rqID", rqID), slog.String("err", err.Error()))
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}

			session = model.Session{UserID: userID, ExternalID: userInfo.ID, Email: userInfo.Email}
			if err := m.sessions.SetSession(ctx, token, session); err != nil {
				slog.Warn("failed to cache session", slog.String("rqID", rqID), slog.String("err", err.Error()))
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionCtxKey{}, session)))
	})
}
