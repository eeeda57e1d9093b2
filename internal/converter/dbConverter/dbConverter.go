package dbConverter

import (
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/model/dbModel"
)

func ConvertPortfolio(p dbModel.Portfolio) model.Portfolio {
	return model.Portfolio{
		PortfolioID:      p.PortfolioID,
		UserID:           p.UserID,
		Name:             p.Name,
		LastContribution: p.LastContribution,
		CreatedAt:        p.CreatedAt,
	}
}

func ConvertHolding(h dbModel.Holding) model.HoldingBase {
	return model.HoldingBase{
		ItemID:      h.ItemID,
		PortfolioID: h.PortfolioID,
		Asset: model.Asset{
			AssetID:  h.AssetID,
			Ticker:   h.Ticker,
			Name:     h.AssetName,
			Type:     h.AssetType,
			Sector:   h.Sector,
			Country:  h.Country,
			Currency: h.Currency,
		},
		UnitsHeld:     h.UnitsHeld,
		TargetWeight:  h.TargetWeight,
		FallbackValue: h.FallbackValue,
	}
}

func ConvertAsset(a dbModel.Asset) model.Asset {
	return model.Asset{
		AssetID:  a.AssetID,
		Ticker:   a.Ticker,
		Name:     a.Name,
		Type:     a.Type,
		Sector:   a.Sector,
		Country:  a.Country,
		Currency: a.Currency,
	}
}

func ConvertHistoryRecord(r dbModel.HistoryRecord, items []dbModel.HistoryItem) model.HistoryRecord {
	record := model.HistoryRecord{
		HistoryID:        r.HistoryID,
		PortfolioID:      r.PortfolioID,
		Contribution:     r.Contribution,
		TotalValueBefore: r.TotalValueBefore,
		TotalValueAfter:  r.TotalValueAfter,
		Undone:           r.Undone,
		CreatedAt:        r.CreatedAt,
		Items:            make([]model.HistoryItem, 0, len(items)),
	}

	for _, item := range items {
		record.Items = append(record.Items, model.HistoryItem{
			Ticker:     item.Ticker,
			AssetName:  item.AssetName,
			Action:     model.TradeAction(item.Action),
			UnitsDelta: item.UnitsDelta,
			ValueDelta: item.ValueDelta,
			Price:      item.Price,
		})
	}

	return record
}
