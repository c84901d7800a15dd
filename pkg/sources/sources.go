package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Kind identifies the provider a document came from.
type Kind string

const (
	KindWeb      Kind = "web"
	KindNews     Kind = "news"
	KindVideo    Kind = "video"
	KindAcademic Kind = "academic"
	KindJournal  Kind = "journal"
)

// ChunkType distinguishes a short summary record from a full text chunk.
type ChunkType string

const (
	ChunkSummary ChunkType = "summary"
	ChunkContent ChunkType = "content"
)

// Document is one retrievable unit of source material. A single search hit
// usually produces one summary document plus several content chunks.
type Document struct {
	Source      Kind           `json:"source"`
	ChunkType   ChunkType      `json:"chunk_type"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Author      string         `json:"author,omitempty"`
	PublishedAt string         `json:"published_at,omitempty"`
	Content     string         `json:"content"`
	FullText    bool           `json:"full_text"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Connector fetches documents about a topic from one external provider.
//
// Fetch returns the documents it could gather. A connector that finds
// nothing returns an empty slice and no error, errors are reserved for
// provider failures.
type Connector interface {
	Kind() Kind
	Fetch(ctx context.Context, topic string, maxResults int) ([]Document, error)
}

// FetchError wraps a provider failure with the connector it came from.
type FetchError struct {
	Source Kind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

const (
	defaultChunkSize    = 3000
	defaultChunkOverlap = 200

	fetchTimeout = 30 * time.Second
)

// getJSON performs a GET request and decodes the JSON response body into out.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out any) error {
	rCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ChunkText splits text into chunks of roughly size runes with the given
// overlap between consecutive chunks. Chunk boundaries prefer paragraph
// breaks, then sentence ends, then whitespace.
func ChunkText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := end
		segment := string(runes[start:end])
		for _, sep := range []string{"\n\n", ". ", " "} {
			if idx := strings.LastIndex(segment, sep); idx >= 0 {
				runeIdx := len([]rune(segment[:idx+len(sep)]))
				if runeIdx > size/2 {
					cut = start + runeIdx
					break
				}
			}
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// contentDocuments turns full text into content chunks sharing the given
// base document fields.
func contentDocuments(base Document, fullText string) []Document {
	chunks := ChunkText(fullText, defaultChunkSize, defaultChunkOverlap)
	docs := make([]Document, 0, len(chunks))
	for _, chunk := range chunks {
		doc := base
		doc.ChunkType = ChunkContent
		doc.Content = chunk
		doc.FullText = true
		docs = append(docs, doc)
	}
	return docs
}
