package newsApi

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/fandance/rebalance-api/config"
	"github.com/fandance/rebalance-api/internal/model"
	"github.com/fandance/rebalance-api/utils"
	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
)

const maxItemsPerAsset = 4

// fund boilerplate stripped before using an asset name as a search query
var fundNoisePattern = regexp.MustCompile(`(?i)(UCITS|ETF|Acc|Dist|EUR|USD|Class|\(.*\)|Corp|Bond|Index|Fund|iShares|Vanguard|Amundi|Xtrackers|SPDR|Invesco)`)

type NewsApi struct {
	client *resty.Client
	parser *gofeed.Parser
}

func New(cfg *config.Config) *NewsApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.NewsApi.Url)
	return &NewsApi{client: client, parser: gofeed.NewParser()}
}

// CleanAssetName reduces a fund's marketing name to something a news search
// can work with, falling back to the ticker when nothing useful remains.
func CleanAssetName(name, ticker string) string {
	cleaned := fundNoisePattern.ReplaceAllString(name, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if len(cleaned) <= 3 {
		return ticker
	}
	return cleaned
}

func (a *NewsApi) GetHeadlines(ctx context.Context, name, ticker string) ([]model.NewsItem, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	query := CleanAssetName(name, ticker) + " finance news"
	feedURL := "/rss/search?q=" + url.QueryEscape(query) + "&hl=en-US&gl=US&ceid=US:en"

	slog.Debug("NewsApi.GetHeadlines start", slog.String("rqID", rqID), slog.String("query", query))

	resp, err := a.client.R().Get(feedURL)
	if err != nil {
		slog.Error("error while dialing news feed", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	feed, err := a.parser.ParseString(string(resp.Body()))
	if err != nil {
		slog.Error("can't parse news feed", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	items := make([]model.NewsItem, 0, maxItemsPerAsset)
	for _, entry := range feed.Items {
		if len(items) == maxItemsPerAsset {
			break
		}

		publisher := "News"
		if entry.Custom != nil && entry.Custom["source"] != "" {
			publisher = entry.Custom["source"]
		}

		items = append(items, model.NewsItem{
			Title:     entry.Title,
			Link:      entry.Link,
			Publisher: publisher,
			Time:      entry.Published,
		})
	}

	slog.Debug("NewsApi.GetHeadlines completed", slog.String("rqID", rqID), slog.Int("items", len(items)))

	return items, nil
}
