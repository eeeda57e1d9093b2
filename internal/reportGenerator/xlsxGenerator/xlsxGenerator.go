package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, info model.PortfolioFullInfo) (fileBytes []byte, filename string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillHoldingsSheet(f, info); err != nil {
		return nil, "", err
	}

	if err := g.fillHistorySheet(f, info); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), reportFilename(info.Name), nil
}

func reportFilename(portfolioName string) string {
	name := strings.ReplaceAll(strings.TrimSpace(portfolioName), " ", "_")
	if name == "" {
		name = "portfolio"
	}
	return fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("2006-01-02"))
}

// sectionHeader merges the range, writes the title and paints it.
func sectionHeader(f *excelize.File, sheet, from, to, title, color string) error {
	if err := f.MergeCell(sheet, from, to); err != nil {
		return err
	}

	f.SetCellValue(sheet, from, title)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, from, from, styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	return nil
}

func (g *XLSXGenerator) fillHoldingsSheet(f *excelize.File, info model.PortfolioFullInfo) error {
	sheetName := "Holdings"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// light blue / green / orange section bands
	if err := sectionHeader(f, sheetName, "A1", "D1", "Assets", "#cfe2f3"); err != nil {
		return err
	}
	if err := sectionHeader(f, sheetName, "E1", "G1", "Position", "#d9ead3"); err != nil {
		return err
	}
	if err := sectionHeader(f, sheetName, "H1", "J1", "Weights", "#f9cb9c"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "name")
	_ = f.SetCellStr(sheetName, "B2", "ticker")
	_ = f.SetCellStr(sheetName, "C2", "type")
	_ = f.SetCellStr(sheetName, "D2", "currency")
	_ = f.SetCellStr(sheetName, "E2", "units")
	_ = f.SetCellStr(sheetName, "F2", "price")
	_ = f.SetCellStr(sheetName, "G2", "value")
	_ = f.SetCellStr(sheetName, "H2", "target %")
	_ = f.SetCellStr(sheetName, "I2", "actual %")
	_ = f.SetCellStr(sheetName, "J2", "drift %")

	for i, holding := range info.Holdings {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), holding.Asset.Name)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), holding.Asset.Ticker)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), holding.Asset.Type)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), holding.Asset.Currency)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), holding.UnitsHeld.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), holding.CurrentPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), holding.Value.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), holding.TargetWeight.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), holding.ActualWeight.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), holding.ActualWeight.Sub(holding.TargetWeight).InexactFloat64())
	}

	return nil
}

func (g *XLSXGenerator) fillHistorySheet(f *excelize.File, info model.PortfolioFullInfo) error {
	sheetName := "Rebalance history"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := sectionHeader(f, sheetName, "A1", "G1", "Applied rebalances", "#cccccc"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "date")
	_ = f.SetCellStr(sheetName, "B2", "ticker")
	_ = f.SetCellStr(sheetName, "C2", "name")
	_ = f.SetCellStr(sheetName, "D2", "action")
	_ = f.SetCellStr(sheetName, "E2", "units")
	_ = f.SetCellStr(sheetName, "F2", "price")
	_ = f.SetCellStr(sheetName, "G2", "status")

	row := 2
	for _, record := range info.History {
		status := "applied"
		if record.Undone {
			status = "undone"
		}

		for _, item := range record.Items {
			row++
			_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), record.CreatedAt.Format("2006-01-02 15:04"))
			_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), item.Ticker)
			_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), item.AssetName)
			_ = f.SetCellStr(sheetName, fmt.Sprintf("D%d", row), string(item.Action))
			_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), item.UnitsDelta.InexactFloat64())
			_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), item.Price.InexactFloat64())
			_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", row), status)
		}
	}

	return nil
}
