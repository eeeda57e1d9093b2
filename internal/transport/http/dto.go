package httpserver

import (
	"github.com/fandance/rebalance-api/internal/model"
)

// Requests. Numeric fields use model.Amount so malformed client input
// degrades to zero instead of a 400.

type createPortfolioRequest struct {
	Name string `json:"name"`
}

type renamePortfolioRequest struct {
	Name string `json:"name"`
}

type duplicatePortfolioRequest struct {
	Name string `json:"name"`
}

type contributionRequest struct {
	Amount model.Amount `json:"amount"`
}

type addHoldingRequest struct {
	Ticker string `json:"ticker"`
}

type updateHoldingRequest struct {
	Units  *model.Amount `json:"units"`
	Weight *model.Amount `json:"weight"`
	Value  *model.Amount `json:"value"`
}

type computeRebalanceRequest struct {
	Contribution model.Amount `json:"contribution"`
}

type applyOrderRequest struct {
	ItemID       string       `json:"item_id"`
	Ticker       string       `json:"ticker"`
	Name         string       `json:"name"`
	Action       string       `json:"action"`
	UnitsToTrade model.Amount `json:"units_to_trade"`
	DiffValue    model.Amount `json:"diff_value"`
	Price        model.Amount `json:"price"`
}

type applyRebalanceRequest struct {
	Contribution model.Amount        `json:"contribution"`
	Orders       []applyOrderRequest `json:"orders"`
}

type chartRequest struct {
	Period string `json:"period"`
}

type assetRefRequest struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

type newsRequest struct {
	Assets []assetRefRequest `json:"assets"`
}

type simulationRequest struct {
	PortfolioIDs        []string     `json:"portfolio_ids"`
	Years               int          `json:"years"`
	InitialCapital      model.Amount `json:"initial_capital"`
	MonthlyContribution model.Amount `json:"monthly_contribution"`
	ContributionMode    string       `json:"contribution_mode"`
	GrowthRate          model.Amount `json:"growth_rate"`
	ApplyTax            bool         `json:"apply_tax"`
	SimType             string       `json:"sim_type"`
}

// Responses.

type portfolioResponse struct {
	PortfolioID      string       `json:"portfolio_id"`
	Name             string       `json:"name"`
	LastContribution model.Amount `json:"last_contribution"`
	CreatedAt        string       `json:"created_at"`
}

type holdingResponse struct {
	ItemID       string       `json:"item_id"`
	Ticker       string       `json:"ticker"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	Currency     string       `json:"currency"`
	Units        model.Amount `json:"units"`
	Price        model.Amount `json:"price"`
	Value        model.Amount `json:"value"`
	TargetWeight model.Amount `json:"target_weight"`
	ActualWeight model.Amount `json:"actual_weight"`
}

type summaryResponse struct {
	Name          string       `json:"name"`
	TotalValue    model.Amount `json:"total_value"`
	TotalWeight   model.Amount `json:"total_weight"`
	RiskScore     int          `json:"risk_score"`
	HoldingsCount int          `json:"holdings_count"`
}

type holdingsResponse struct {
	Holdings []holdingResponse `json:"holdings"`
	Summary  summaryResponse   `json:"summary"`
}

type planOrderResponse struct {
	holdingResponse
	Action       string       `json:"action"`
	DiffValue    model.Amount `json:"diff_value"`
	UnitsToTrade model.Amount `json:"units_to_trade"`
}

type planResponse struct {
	CurrentTotal model.Amount        `json:"current_total"`
	Contribution model.Amount        `json:"contribution"`
	FutureTotal  model.Amount        `json:"future_total"`
	Orders       []planOrderResponse `json:"orders"`
}

type historyItemResponse struct {
	Ticker     string       `json:"ticker"`
	Name       string       `json:"name"`
	Action     string       `json:"action"`
	UnitsDelta model.Amount `json:"units_delta"`
	ValueDelta model.Amount `json:"value_delta"`
	Price      model.Amount `json:"price"`
}

type historyRecordResponse struct {
	HistoryID        string                `json:"history_id"`
	Contribution     model.Amount          `json:"contribution"`
	TotalValueBefore model.Amount          `json:"total_value_before"`
	TotalValueAfter  model.Amount          `json:"total_value_after"`
	Undone           bool                  `json:"undone"`
	CreatedAt        string                `json:"created_at"`
	Items            []historyItemResponse `json:"items"`
}

type riskResponse struct {
	Score int `json:"score"`
}

type chartPointResponse struct {
	Date  string       `json:"date"`
	Value model.Amount `json:"value"`
}

type chartResponse struct {
	History   []chartPointResponse `json:"history"`
	ChangeVal model.Amount         `json:"change_val"`
	ChangePct model.Amount         `json:"change_pct"`
}

type newsItemResponse struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Publisher string `json:"publisher"`
	Time      string `json:"time"`
}

type sentimentResponse struct {
	Score int    `json:"score"`
	Label string `json:"label"`
	Color string `json:"color"`
}

type newsDigestResponse struct {
	News       map[string][]newsItemResponse `json:"news"`
	Sentiments map[string]sentimentResponse  `json:"sentiments"`
	Aggregate  sentimentResponse             `json:"aggregate"`
}

type simulationPointResponse struct {
	Year  float64 `json:"year"`
	Value float64 `json:"value"`
}

type simulationResultResponse struct {
	PortfolioID   string                    `json:"portfolio_id"`
	PortfolioName string                    `json:"portfolio_name"`
	Data          []simulationPointResponse `json:"data"`
	FinalGross    float64                   `json:"final_gross"`
	FinalNet      float64                   `json:"final_net"`
	TotalInvested float64                   `json:"total_invested"`
	TaxPaid       float64                   `json:"tax_paid"`
	Gain          float64                   `json:"gain"`
}

type shareResponse struct {
	Link string `json:"link"`
}

type searchResultResponse struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Exchange string `json:"exchange"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Converters.

func toPortfolioResponse(p model.Portfolio) portfolioResponse {
	return portfolioResponse{
		PortfolioID:      p.PortfolioID,
		Name:             p.Name,
		LastContribution: model.NewAmount(p.LastContribution),
		CreatedAt:        p.CreatedAt.Format(timeFormat),
	}
}

func toHoldingResponse(h model.Holding) holdingResponse {
	return holdingResponse{
		ItemID:       h.ItemID,
		Ticker:       h.Asset.Ticker,
		Name:         h.Asset.Name,
		Type:         h.Asset.Type,
		Currency:     h.Asset.Currency,
		Units:        model.NewAmount(h.UnitsHeld),
		Price:        model.NewAmount(h.CurrentPrice),
		Value:        model.NewAmount(h.Value),
		TargetWeight: model.NewAmount(h.TargetWeight),
		ActualWeight: model.NewAmount(h.ActualWeight),
	}
}

func toPlanResponse(plan model.RebalancePlan) planResponse {
	orders := make([]planOrderResponse, 0, len(plan.Orders))
	for _, order := range plan.Orders {
		orders = append(orders, planOrderResponse{
			holdingResponse: toHoldingResponse(order.Holding),
			Action:          string(order.Action),
			DiffValue:       model.NewAmount(order.DiffValue),
			UnitsToTrade:    model.NewAmount(order.UnitsToTrade),
		})
	}

	return planResponse{
		CurrentTotal: model.NewAmount(plan.CurrentTotal),
		Contribution: model.NewAmount(plan.Contribution),
		FutureTotal:  model.NewAmount(plan.FutureTotal),
		Orders:       orders,
	}
}

func toHistoryRecordResponse(record model.HistoryRecord) historyRecordResponse {
	items := make([]historyItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, historyItemResponse{
			Ticker:     item.Ticker,
			Name:       item.AssetName,
			Action:     string(item.Action),
			UnitsDelta: model.NewAmount(item.UnitsDelta),
			ValueDelta: model.NewAmount(item.ValueDelta),
			Price:      model.NewAmount(item.Price),
		})
	}

	return historyRecordResponse{
		HistoryID:        record.HistoryID,
		Contribution:     model.NewAmount(record.Contribution),
		TotalValueBefore: model.NewAmount(record.TotalValueBefore),
		TotalValueAfter:  model.NewAmount(record.TotalValueAfter),
		Undone:           record.Undone,
		CreatedAt:        record.CreatedAt.Format(timeFormat),
		Items:            items,
	}
}

func toSentimentResponse(s model.Sentiment) sentimentResponse {
	return sentimentResponse{Score: s.Score, Label: s.Label, Color: s.Color}
}
