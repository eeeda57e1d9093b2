// Package httpserver is the REST surface of the dashboard backend: a chi
// router with request-id, logging and bearer-auth middleware in front of
// the portfolio service.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fandance/rebalance-api/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	server *http.Server
	cfg    *config.Config
}

func New(cfg *config.Config, controller *Controller, auth *AuthMiddleware) *Server {
	router := chi.NewRouter()

	router.Use(middleware.Recoverer)
	router.Use(middleware.RealIP)
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", controller.health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Handler)

		r.Route("/portfolios", func(r chi.Router) {
			r.Post("/", controller.createPortfolio)
			r.Get("/", controller.listPortfolios)

			r.Route("/{portfolioID}", func(r chi.Router) {
				r.Put("/name", controller.renamePortfolio)
				r.Delete("/", controller.deletePortfolio)
				r.Post("/duplicate", controller.duplicatePortfolio)
				r.Put("/contribution", controller.saveContribution)

				r.Post("/holdings", controller.addHolding)
				r.Get("/holdings", controller.getHoldings)

				r.Post("/rebalance", controller.computeRebalance)
				r.Post("/rebalance/apply", controller.applyRebalance)

				r.Get("/history", controller.getHistory)
				r.Get("/risk", controller.getRisk)
				r.Post("/chart", controller.getChart)

				r.Get("/report", controller.exportReport)
				r.Post("/report/share", controller.shareReport)
			})
		})

		r.Route("/holdings/{itemID}", func(r chi.Router) {
			r.Put("/", controller.updateHolding)
			r.Delete("/", controller.deleteHolding)
		})

		r.Route("/history/{historyID}", func(r chi.Router) {
			r.Post("/undo", controller.undoRebalance)
			r.Delete("/", controller.deleteHistory)
		})

		r.Get("/assets/search", controller.searchAssets)
		r.Post("/news", controller.getNews)
		r.Post("/simulations", controller.runSimulations)
	})

	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:      router,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		},
	}
}

func (s *Server) Start() error {
	slog.Info("starting http server", slog.Int("port", s.cfg.HTTP.Port))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
