package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const newsSearchURL = "https://newsapi.org/v2/everything"

// NewsConnector searches recent news coverage via NewsAPI and extracts
// article text from the linked pages.
type NewsConnector struct {
	apiKey   string
	daysBack int

	httpClient *http.Client
	extractor  *WebConnector
}

// NewNewsConnector creates a news connector. The extractor is shared with
// the web connector so page downloads are cached across both.
func NewNewsConnector(apiKey string, daysBack int, extractor *WebConnector) *NewsConnector {
	if daysBack <= 0 {
		daysBack = 7
	}
	if extractor == nil {
		// page extraction works without search credentials
		extractor = NewWebConnector("", "")
	}
	return &NewsConnector{
		apiKey:     apiKey,
		daysBack:   daysBack,
		httpClient: http.DefaultClient,
		extractor:  extractor,
	}
}

func (c *NewsConnector) Kind() Kind {
	return KindNews
}

type newsSearchResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Author      string `json:"author"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Fetch searches news articles about the topic, one summary document per
// article plus content chunks from the article body.
func (c *NewsConnector) Fetch(ctx context.Context, topic string, maxResults int) ([]Document, error) {
	if c.apiKey == "" {
		return nil, &FetchError{Source: KindNews, Err: fmt.Errorf("connector not configured")}
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	from := time.Now().AddDate(0, 0, -c.daysBack).Format("2006-01-02")
	query := url.Values{
		"q":        {topic},
		"apiKey":   {c.apiKey},
		"pageSize": {fmt.Sprint(maxResults)},
		"language": {"en"},
		"sortBy":   {"relevancy"},
		"from":     {from},
	}

	var response newsSearchResponse
	err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return getJSON(ctx, c.httpClient, newsSearchURL+"?"+query.Encode(), nil, &response)
	})
	if err != nil {
		return nil, &FetchError{Source: KindNews, Err: err}
	}

	results := make([][]Document, len(response.Articles))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(maxPageWorkers)
	for i, article := range response.Articles {
		eg.Go(func() error {
			base := Document{
				Source:      KindNews,
				Title:       article.Title,
				URL:         article.URL,
				Author:      article.Author,
				PublishedAt: article.PublishedAt,
				Metadata: map[string]any{
					"source_name":     article.Source.Name,
					"source_database": "newsapi",
				},
			}

			summary := base
			summary.ChunkType = ChunkSummary
			summary.Content = strings.TrimSpace(
				fmt.Sprintf("Title: %s\n\nDescription: %s", article.Title, article.Description),
			)
			docs := []Document{summary}

			text, err := c.extractor.extractReadable(ectx, article.URL)
			if err != nil {
				logger.Warn("[News] failed to extract article", "url", article.URL, "error", err)
			} else {
				docs = append(docs, contentDocuments(base, text)...)
			}

			results[i] = docs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, &FetchError{Source: KindNews, Err: err}
	}

	var out []Document
	for _, docs := range results {
		out = append(out, docs...)
	}
	return out, nil
}
