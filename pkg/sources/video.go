package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	youtubeSearchURL = "https://www.googleapis.com/youtube/v3/search"
	youtubeVideosURL = "https://www.googleapis.com/youtube/v3/videos"

	// public caption endpoint, only works for videos with published tracks
	youtubeTimedTextURL = "https://video.google.com/timedtext"
)

// VideoConnector searches YouTube via the Data API and builds documents
// from video descriptions and caption transcripts.
type VideoConnector struct {
	apiKey string

	httpClient *http.Client
}

func NewVideoConnector(apiKey string) *VideoConnector {
	return &VideoConnector{
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
}

func (c *VideoConnector) Kind() Kind {
	return KindVideo
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type youtubeVideosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// Fetch searches videos about the topic. Each video yields a summary
// document from its description, videos with a caption track also yield
// content chunks from the transcript.
func (c *VideoConnector) Fetch(ctx context.Context, topic string, maxResults int) ([]Document, error) {
	if c.apiKey == "" {
		return nil, &FetchError{Source: KindVideo, Err: fmt.Errorf("connector not configured")}
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	searchQuery := url.Values{
		"part":       {"snippet"},
		"q":          {topic},
		"key":        {c.apiKey},
		"maxResults": {fmt.Sprint(maxResults)},
		"type":       {"video"},
	}

	var search youtubeSearchResponse
	err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return getJSON(ctx, c.httpClient, youtubeSearchURL+"?"+searchQuery.Encode(), nil, &search)
	})
	if err != nil {
		return nil, &FetchError{Source: KindVideo, Err: err}
	}
	if len(search.Items) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}

	detailsQuery := url.Values{
		"part": {"snippet,statistics,contentDetails"},
		"key":  {c.apiKey},
		"id":   {strings.Join(ids, ",")},
	}

	var details youtubeVideosResponse
	err = util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return getJSON(ctx, c.httpClient, youtubeVideosURL+"?"+detailsQuery.Encode(), nil, &details)
	})
	if err != nil {
		return nil, &FetchError{Source: KindVideo, Err: err}
	}

	results := make([][]Document, len(details.Items))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(maxPageWorkers)
	for i, video := range details.Items {
		eg.Go(func() error {
			base := Document{
				Source:      KindVideo,
				Title:       video.Snippet.Title,
				URL:         "https://www.youtube.com/watch?v=" + video.ID,
				Author:      video.Snippet.ChannelTitle,
				PublishedAt: video.Snippet.PublishedAt,
				Metadata: map[string]any{
					"video_id":        video.ID,
					"view_count":      video.Statistics.ViewCount,
					"like_count":      video.Statistics.LikeCount,
					"duration":        video.ContentDetails.Duration,
					"source_database": "youtube_data_api",
				},
			}

			summary := base
			summary.ChunkType = ChunkSummary
			summary.Content = strings.TrimSpace(
				fmt.Sprintf("Title: %s\n\nDescription: %s", video.Snippet.Title, video.Snippet.Description),
			)
			docs := []Document{summary}

			transcript, err := c.fetchTranscript(ectx, video.ID)
			if err != nil {
				logger.Warn("[Video] no transcript", "video_id", video.ID, "error", err)
			} else if transcript != "" {
				docs = append(docs, contentDocuments(base, transcript)...)
			}

			results[i] = docs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, &FetchError{Source: KindVideo, Err: err}
	}

	var out []Document
	for _, docs := range results {
		out = append(out, docs...)
	}
	return out, nil
}

func (c *VideoConnector) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	query := url.Values{
		"lang": {"en"},
		"v":    {videoID},
	}

	rCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rCtx, http.MethodGet, youtubeTimedTextURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", nil
	}

	var parsed timedText
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse transcript: %w", err)
	}

	var builder strings.Builder
	for _, line := range parsed.Texts {
		text := strings.TrimSpace(html.UnescapeString(line.Value))
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(text)
	}
	return builder.String(), nil
}
