package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/logger"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const googleSearchURL = "https://www.googleapis.com/customsearch/v1"

// maxPageWorkers bounds concurrent page downloads per search.
const maxPageWorkers = 5

// WebConnector searches the open web via the Google Custom Search API and
// extracts readable article text from the result pages.
type WebConnector struct {
	apiKey   string
	engineID string

	httpClient *http.Client

	cache   map[string]string
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewWebConnector creates a web connector. The engine ID selects the
// programmable search engine to query.
func NewWebConnector(apiKey, engineID string) *WebConnector {
	return &WebConnector{
		apiKey:     apiKey,
		engineID:   engineID,
		httpClient: http.DefaultClient,
		cache:      make(map[string]string),
	}
}

func (c *WebConnector) Kind() Kind {
	return KindWeb
}

type googleSearchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Fetch searches for the topic and returns one summary document per hit
// plus content chunks extracted from each page.
func (c *WebConnector) Fetch(ctx context.Context, topic string, maxResults int) ([]Document, error) {
	if c.apiKey == "" || c.engineID == "" {
		return nil, &FetchError{Source: KindWeb, Err: fmt.Errorf("connector not configured")}
	}
	// Google caps a single request at 10 results
	if maxResults <= 0 || maxResults > 10 {
		maxResults = 10
	}

	query := url.Values{
		"key": {c.apiKey},
		"cx":  {c.engineID},
		"q":   {topic},
		"num": {fmt.Sprint(maxResults)},
	}

	var response googleSearchResponse
	err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return getJSON(ctx, c.httpClient, googleSearchURL+"?"+query.Encode(), nil, &response)
	})
	if err != nil {
		return nil, &FetchError{Source: KindWeb, Err: err}
	}

	results := make([][]Document, len(response.Items))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(maxPageWorkers)
	for i, item := range response.Items {
		eg.Go(func() error {
			base := Document{
				Source: KindWeb,
				Title:  item.Title,
				URL:    item.Link,
				Metadata: map[string]any{
					"snippet":         item.Snippet,
					"source_database": "google_custom_search",
				},
			}

			summary := base
			summary.ChunkType = ChunkSummary
			summary.Content = strings.TrimSpace(
				fmt.Sprintf("Title: %s\n\nSnippet: %s", item.Title, item.Snippet),
			)
			docs := []Document{summary}

			text, err := c.extractReadable(ectx, item.Link)
			if err != nil {
				// page failures only cost their chunks
				logger.Warn("[Web] failed to extract page", "url", item.Link, "error", err)
			} else {
				docs = append(docs, contentDocuments(base, text)...)
			}

			results[i] = docs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, &FetchError{Source: KindWeb, Err: err}
	}

	var out []Document
	for _, docs := range results {
		out = append(out, docs...)
	}
	return out, nil
}

// extractReadable downloads a page and extracts its main article text.
// Results are cached per URL, concurrent requests for the same URL are
// collapsed via singleflight.
func (c *WebConnector) extractReadable(ctx context.Context, pageURL string) (string, error) {
	c.cacheMu.RLock()
	if cached, ok := c.cache[pageURL]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	result, err, _ := c.group.Do(pageURL, func() (any, error) {
		c.cacheMu.RLock()
		if cached, ok := c.cache[pageURL]; ok {
			c.cacheMu.RUnlock()
			return cached, nil
		}
		c.cacheMu.RUnlock()

		rCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(rCtx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to fetch url: %w", err)
		}
		defer resp.Body.Close()

		contentType := resp.Header.Get("Content-Type")
		if !strings.Contains(contentType, "text/html") {
			return "", fmt.Errorf("unsupported content type: %s", contentType)
		}

		u, err := url.Parse(pageURL)
		if err != nil {
			return "", fmt.Errorf("failed to parse url: %w", err)
		}
		article, err := readability.FromReader(resp.Body, u)
		if err != nil {
			return "", fmt.Errorf("failed to parse html: %w", err)
		}
		var builder strings.Builder
		if err := article.RenderText(&builder); err != nil {
			return "", fmt.Errorf("failed to render article text: %w", err)
		}

		text := builder.String()
		c.cacheMu.Lock()
		c.cache[pageURL] = text
		c.cacheMu.Unlock()

		return text, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
