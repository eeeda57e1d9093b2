package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/service"
	"github.com/fandance/rebalance-api/utils"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const timeFormat = time.RFC3339

type Service interface {
	CreatePortfolio(ctx context.Context, userID int64, name string) (model.Portfolio, error)
	GetPortfolios(ctx context.Context, userID int64) ([]model.Portfolio, error)
	RenamePortfolio(ctx context.Context, portfolioID, name string) error
	DeletePortfolio(ctx context.Context, portfolioID string) error
	DuplicatePortfolio(ctx context.Context, portfolioID string, userID int64, name string) (model.Portfolio, error)
	SaveContribution(ctx context.Context, portfolioID string, amount decimal.Decimal)

	SearchAssets(ctx context.Context, query string) ([]model.AssetSearchResult, error)
	AddAsset(ctx context.Context, portfolioID, ticker string) (model.Holding, error)
	GetHoldings(ctx context.Context, portfolioID string) ([]model.Holding, model.PortfolioSummary, error)
	UpdateHolding(ctx context.Context, itemID string, units, weight, value *decimal.Decimal) (model.Holding, error)
	DeleteHolding(ctx context.Context, itemID string) error

	ComputeRebalance(ctx context.Context, portfolioID string, contribution decimal.Decimal) (model.RebalancePlan, error)
	ApplyRebalance(ctx context.Context, portfolioID string, contribution decimal.Decimal, orders []model.ApplyOrder) (model.HistoryRecord, error)
	GetHistory(ctx context.Context, portfolioID string) ([]model.HistoryRecord, error)
	UndoRebalance(ctx context.Context, historyID string) error
	DeleteHistory(ctx context.Context, historyID string) error

	GetRiskProfile(ctx context.Context, portfolioID string) (int, error)
	GetChart(ctx context.Context, portfolioID, period string) (model.ChartData, error)
	GetNewsDigest(ctx context.Context, assets []model.AssetRef) (model.NewsDigest, error)
	RunSimulations(ctx context.Context, input model.SimulationInput) ([]model.SimulationResult, error)

	ExportReport(ctx context.Context, portfolioID string) ([]byte, string, error)
	ShareReport(ctx context.Context, portfolioID string) (string, error)
}

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func (c *Controller) respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("err", err.Error()))
	}
}

func (c *Controller) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrApplyInProgress):
		status, msg = http.StatusConflict, "another apply is in progress"
	case errors.Is(err, service.ErrAlreadyUndone):
		status, msg = http.StatusConflict, "already undone"
	case errors.Is(err, service.ErrAssetNotActive):
		status, msg = http.StatusUnprocessableEntity, "asset is not traded"
	case errors.Is(err, service.ErrSharingDisabled):
		status, msg = http.StatusNotImplemented, "report sharing is disabled"
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("err", err.Error()))
	}

	c.respondJSON(w, r, status, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func (c *Controller) health(w http.ResponseWriter, r *http.Request) {
	c.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *Controller) createPortfolio(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	portfolio, err := c.service.CreatePortfolio(r.Context(), sessionFromCtx(r.Context()).UserID, req.Name)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, r, http.StatusCreated, toPortfolioResponse(portfolio))
}

func (c *Controller) listPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := c.service.GetPortfolios(r.Context(), sessionFromCtx(r.Context()).UserID)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	out := make([]portfolioResponse, 0, len(portfolios))
	for _, p := range portfolios {
		out = append(out, toPortfolioResponse(p))
	}

	c.respondJSON(w, r, http.StatusOK, out)
}

func (c *Controller) renamePortfolio(w http.ResponseWriter, r *http.Request) {
	var req renamePortfolioRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	if err := c.service.RenamePortfolio(r.Context(), chi.URLParam(r, "portfolioID"), req.Name); err != nil {
		c.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) deletePortfolio(w http.ResponseWriter, r *http.Request) {
	if err := c.service.DeletePortfolio(r.Context(), chi.URLParam(r, "portfolioID")); err != nil {
		c.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) duplicatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req duplicatePortfolioRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	portfolio, err := c.service.DuplicatePortfolio(r.Context(), chi.URLParam(r, "portfolioID"), sessionFromCtx(r.Context()).UserID, req.Name)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, r, http.StatusCreated, toPortfolioResponse(portfolio))
}

func (c *Controller) saveContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	c.service.SaveContribution(r.Context(), chi.URLParam(r, "portfolioID"), req.Amount.Decimal)

	w.WriteHeader(http.StatusAccepted)
}

func (c *Controller) searchAssets(w http.ResponseWriter, r *http.Request) {
	results, err := c.service.SearchAssets(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	out := make([]searchResultResponse, 0, len(results))
	for _, res := range results {
		out = append(out, searchResultResponse{
			Ticker:   res.Ticker,
			Name:     res.Name,
			Type:     res.TypeDisplay,
			Exchange: res.Exchange,
		})
	}

	c.respondJSON(w, r, http.StatusOK, out)
}

func (c *Controller) addHolding(w http.ResponseWriter, r *http.Request) {
	var req addHoldingRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	holding, err := c.service.AddAsset(r.Context(), chi.URLParam(r, "portfolioID"), req.Ticker)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, r, http.StatusCreated, toHoldingResponse(holding))
}

func (c *Controller) getHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, summary, err := c.service.GetHoldings(r.Context(), chi.URLParam(r, "portfolioID"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	out := holdingsResponse{
		Holdings: make([]holdingResponse, 0, len(holdings)),
		Summary: summaryResponse{
			Name:          summary.PortfolioName,
			TotalValue:    model.NewAmount(summary.TotalValue),
			TotalWeight:   model.NewAmount(summary.TotalWeight),
			RiskScore:     summary.RiskScore,
			HoldingsCount: summary.HoldingsCount,
		},
	}
	for _, holding := range holdings {
		out.Holdings = append(out.Holdings, toHoldingResponse(holding))
	}

	c.respondJSON(w, r, http.StatusOK, out)
}

func (c *Controller) updateHolding(w http.ResponseWriter, r *http.Request) {
	var req updateHoldingRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	var units, weight, value *decimal.Decimal
	if req.Units != nil {
		units = &req.Units.Decimal
	}
	if req.Weight != nil {
		weight = &req.Weight.Decimal
	}
	if req.Value != nil {
		value = &req.Value.Decimal
	}

	holding, err := c.service.UpdateHolding(r.Context(), chi.URLParam(r, "itemID"), units, weight, value)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, r, http.StatusOK, toHoldingResponse(holding))
}

func (c *Controller) deleteHolding(w http.ResponseWriter, r *http.Request) {
	if err := c.service.DeleteHolding(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		c.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) computeRebalance(w http.ResponseWriter, r *http.Request) {
	var req computeRebalanceRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	plan, err := c.service.ComputeRebalance(r.Context(), chi.URLParam(r, "portfolioID"), req.Contribution.Decimal)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, r, http.StatusOK, toPlanResponse(plan))
}

func (c *Controller) applyRebalance(w http.ResponseWriter, r *http.Request) {
	var req applyRebalanceRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	orders := make([]model.ApplyOrder, 0, len(req.Orders))
	for _, order := range req.Orders {
		orders = append(orders, model.ApplyOrder{
			ItemID:       order.ItemID,
			Ticker:       order.Ticker,
			AssetName:    order.Name,
			Action:       model.TradeAction(order.Action),
			UnitsToTrade: order.UnitsToTrade.Decimal,
			DiffValue:    order.DiffValue.Decimal,
			Price:        order.Price.Decimal,
		})
	}

	record, err := c.service.ApplyRebalance(r.Context(), chi.URLParam(r, "portfolioID"), req.Contribution.Decimal, orders)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, r, http.StatusOK, toHistoryRecordResponse(record))
}

func (c *Controller) getHistory(w http.ResponseWriter, r *http.Request) {
	records, err := c.service.GetHistory(r.Context(), chi.URLParam(r, "portfolioID"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	out := make([]historyRecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toHistoryRecordResponse(record))
	}

	c.respondJSON(w, r, http.StatusOK, out)
}

func (c *Controller) undoRebalance(w http.ResponseWriter, r *http.Request) {
	if err := c.service.UndoRebalance(r.Context(), chi.URLParam(r, "historyID")); err != nil {
		c.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := c.service.DeleteHistory(r.Context(), chi.URLParam(r, "historyID")); err != nil {
		c.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) getRisk(w http.ResponseWriter, r *http.Request) {
	score, err := c.service.GetRiskProfile(r.Context(), chi.URLParam(r, "portfolioID"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, r, http.StatusOK, riskResponse{Score: score})
}

func (c *Controller) getChart(w http.ResponseWriter, r *http.Request) {
	var req chartRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	chart, err := c.service.GetChart(r.Context(), chi.URLParam(r, "portfolioID"), req.Period)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	out := chartResponse{
		History:   make([]chartPointResponse, 0, len(chart.History)),
		ChangeVal: model.NewAmount(chart.ChangeVal),
		ChangePct: model.NewAmount(chart.ChangePct),
	}
	for _, point := range chart.History {
		out.History = append(out.History, chartPointResponse{
			Date:  point.Date.Format(timeFormat),
			Value: model.NewAmount(point.Value),
		})
	}

	c.respondJSON(w, r, http.StatusOK, out)
}

func (c *Controller) getNews(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	assets := make([]model.AssetRef, 0, len(req.Assets))
	for _, asset := range req.Assets {
		assets = append(assets, model.AssetRef{Ticker: asset.Ticker, Name: asset.Name})
	}

	digest, err := c.service.GetNewsDigest(r.Context(), assets)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	out := newsDigestResponse{
		News:       make(map[string][]newsItemResponse, len(digest.News)),
		Sentiments: make(map[string]sentimentResponse, len(digest.Sentiments)),
		Aggregate:  toSentimentResponse(digest.Aggregate),
	}
	for ticker, items := range digest.News {
		list := make([]newsItemResponse, 0, len(items))
		for _, item := range items {
			list = append(list, newsItemResponse{
				Title:     item.Title,
				Link:      item.Link,
				Publisher: item.Publisher,
				Time:      item.Time,
			})
		}
		out.News[ticker] = list
	}
	for ticker, sentiment := range digest.Sentiments {
		out.Sentiments[ticker] = toSentimentResponse(sentiment)
	}

	c.respondJSON(w, r, http.StatusOK, out)
}

func (c *Controller) runSimulations(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if err := decodeBody(r, &req); err != nil {
		c.respondJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	input := model.SimulationInput{
		PortfolioIDs:        req.PortfolioIDs,
		Years:               req.Years,
		InitialCapital:      req.InitialCapital.InexactFloat64(),
		MonthlyContribution: req.MonthlyContribution.InexactFloat64(),
		ContributionMode:    model.ContributionMode(req.ContributionMode),
		GrowthRate:          req.GrowthRate.InexactFloat64(),
		ApplyTax:            req.ApplyTax,
		SimType:             model.SimType(req.SimType),
	}

	results, err := c.service.RunSimulations(r.Context(), input)
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	out := make([]simulationResultResponse, 0, len(results))
	for _, res := range results {
		data := make([]simulationPointResponse, 0, len(res.Data))
		for _, point := range res.Data {
			data = append(data, simulationPointResponse{Year: point.Year, Value: point.Value})
		}
		out = append(out, simulationResultResponse{
			PortfolioID:   res.PortfolioID,
			PortfolioName: res.PortfolioName,
			Data:          data,
			FinalGross:    res.FinalGross,
			FinalNet:      res.FinalNet,
			TotalInvested: res.TotalInvested,
			TaxPaid:       res.TaxPaid,
			Gain:          res.Gain,
		})
	}

	c.respondJSON(w, r, http.StatusOK, out)
}

func (c *Controller) exportReport(w http.ResponseWriter, r *http.Request) {
	content, filename, err := c.service.ExportReport(r.Context(), chi.URLParam(r, "portfolioID"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	_, _ = w.Write(content)
}

func (c *Controller) shareReport(w http.ResponseWriter, r *http.Request) {
	link, err := c.service.ShareReport(r.Context(), chi.URLParam(r, "portfolioID"))
	if err != nil {
		c.respondError(w, r, err)
		return
	}

	c.respondJSON(w, r, http.StatusOK, shareResponse{Link: link})
}
