package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fandance/rebalance-api/internal/externalApi/authApi"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService panics on anything a test did not override.
type stubService struct {
	Service
	applyErr   error
	undoErr    error
	plan       model.RebalancePlan
	computeErr error
}

func (s *stubService) ApplyRebalance(_ context.Context, _ string, _ decimal.Decimal, _ []model.ApplyOrder) (model.HistoryRecord, error) {
	return model.HistoryRecord{}, s.applyErr
}

func (s *stubService) UndoRebalance(_ context.Context, _ string) error {
	return s.undoErr
}

func (s *stubService) ComputeRebalance(_ context.Context, _ string, _ decimal.Decimal) (model.RebalancePlan, error) {
	return s.plan, s.computeErr
}

type memorySessions struct {
	sessions map[string]model.Session
}

func (m *memorySessions) GetSession(_ context.Context, token string) (model.Session, error) {
	session, ok := m.sessions[token]
	if !ok {
		return model.Session{}, errors.New("not found")
	}
	return session, nil
}

func (m *memorySessions) SetSession(_ context.Context, token string, session model.Session) error {
	m.sessions[token] = session
	return nil
}

type stubVerifier struct {
	info authApi.UserInfo
	err  error
}

func (v *stubVerifier) VerifyToken(_ context.Context, _ string) (authApi.UserInfo, error) {
	return v.info, v.err
}

type stubUsers struct{}

func (stubUsers) GetOrCreateUser(_ context.Context, _, _ string) (int64, error) { return 42, nil }

func newTestHandler(svc Service, verifier TokenVerifier) (http.Handler, *memorySessions) {
	sessions := &memorySessions{sessions: map[string]model.Session{}}
	auth := NewAuthMiddleware(sessions, verifier, stubUsers{})

	mux := http.NewServeMux()
	mux.Handle("/", auth.Handler(routedController(svc)))
	return mux, sessions
}

func routedController(svc Service) http.Handler {
	c := NewController(svc)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /portfolios/{portfolioID}/rebalance/apply", c.applyRebalance)
	mux.HandleFunc("POST /history/{historyID}/undo", c.undoRebalance)
	return mux
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		handler, _ := newTestHandler(&stubService{}, &stubVerifier{err: errors.New("unreachable")})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/history/h-1/undo", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		handler, _ := newTestHandler(&stubService{}, &stubVerifier{err: errors.New("bad token")})

		req := httptest.NewRequest(http.MethodPost, "/history/h-1/undo", nil)
		req.Header.Set("Authorization", "Bearer nope")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("verified token creates cached session", func(t *testing.T) {
		handler, sessions := newTestHandler(
			&stubService{},
			&stubVerifier{info: authApi.UserInfo{ID: "ext-1", Email: "a@b.c"}},
		)

		req := httptest.NewRequest(http.MethodPost, "/history/h-1/undo", nil)
		req.Header.Set("Authorization", "Bearer fresh-token")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)

		cached, ok := sessions.sessions["fresh-token"]
		require.True(t, ok, "session cached after provider verification")
		assert.Equal(t, int64(42), cached.UserID)
	})
}

func TestErrorMapping(t *testing.T) {
	verifier := &stubVerifier{info: authApi.UserInfo{ID: "ext-1"}}

	authed := func(method, target, body string) *http.Request {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer t")
		return req
	}

	t.Run("apply in progress is 409", func(t *testing.T) {
		handler, _ := newTestHandler(&stubService{applyErr: service.ErrApplyInProgress}, verifier)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authed(http.MethodPost, "/portfolios/p-1/rebalance/apply", `{"contribution":100,"orders":[]}`))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("double undo is 409", func(t *testing.T) {
		handler, _ := newTestHandler(&stubService{undoErr: service.ErrAlreadyUndone}, verifier)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authed(http.MethodPost, "/history/h-1/undo", ""))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown record is 404", func(t *testing.T) {
		handler, _ := newTestHandler(&stubService{undoErr: service.ErrNotFound}, verifier)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authed(http.MethodPost, "/history/h-1/undo", ""))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("garbage numbers decode as zero, not 400", func(t *testing.T) {
		handler, _ := newTestHandler(&stubService{}, verifier)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authed(http.MethodPost, "/portfolios/p-1/rebalance/apply", `{"contribution":"garbage","orders":[]}`))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
