package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/fandance/rebalance-api/data/repository"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/internal/service"
	"github.com/fandance/rebalance-api/utils"
)

// ExportReport renders the portfolio workbook for direct download.
func (s *PortfolioService) ExportReport(ctx context.Context, portfolioID string) ([]byte, string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportReport"

	info, err := s.portfolioFullInfo(ctx, portfolioID)
	if err != nil {
		return nil, "", err
	}

	content, filename, err := s.reportGenerator.Generate(ctx, info)
	if err != nil {
		slog.Error("failed on reportGenerator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return content, filename, nil
}

// ShareReport renders the workbook, uploads it to the configured drive and
// returns a public download link. Unavailable when sharing is disabled.
func (s *PortfolioService) ShareReport(ctx context.Context, portfolioID string) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ShareReport"

	if s.cloudStorage == nil {
		return "", service.ErrSharingDisabled
	}

	content, filename, err := s.ExportReport(ctx, portfolioID)
	if err != nil {
		return "", err
	}

	link, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(content), filename)
	if err != nil {
		slog.Error("failed on cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Info("report shared", slog.String("rqID", rqID), slog.String("portfolioID", portfolioID))

	return link, nil
}

func (s *PortfolioService) portfolioFullInfo(ctx context.Context, portfolioID string) (model.PortfolioFullInfo, error) {
	portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PortfolioFullInfo{}, service.ErrNotFound
		}
		return model.PortfolioFullInfo{}, err
	}

	holdings, _, err := s.GetHoldings(ctx, portfolioID)
	if err != nil {
		return model.PortfolioFullInfo{}, err
	}

	history, err := s.repo.GetHistory(ctx, portfolioID)
	if err != nil {
		return model.PortfolioFullInfo{}, err
	}

	return model.PortfolioFullInfo{
		Portfolio: portfolio,
		Holdings:  holdings,
		History:   history,
	}, nil
}
