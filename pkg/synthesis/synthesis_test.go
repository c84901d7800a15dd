package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/meridian-kg/backend/pkg/ai"
	"github.com/meridian-kg/backend/pkg/sources"
)

type fakeAIClient struct {
	article    articleOut
	formatErr  error
	embedErr   error
	lastPrompt string
	calls      int
}

func (c *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not implemented")
}

func (c *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	c.calls++
	c.lastPrompt = prompt
	if c.formatErr != nil {
		return c.formatErr
	}
	*out.(*articleOut) = c.article
	return nil
}

func (c *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if c.embedErr != nil {
		return nil, c.embedErr
	}
	return []float32{0.1, 0.2}, nil
}

func (c *fakeAIClient) ResetMetrics() {}

func (c *fakeAIClient) GetMetrics() ai.ModelMetrics {
	return ai.ModelMetrics{}
}

func contentDoc(title, url, content string) sources.Document {
	return sources.Document{
		Source:    sources.KindWeb,
		ChunkType: sources.ChunkContent,
		Title:     title,
		URL:       url,
		Content:   content,
	}
}

func TestSynthesize_BuildsNode(t *testing.T) {
	client := &fakeAIClient{article: articleOut{
		Article: "Solar cells convert light [1].\n\nMore detail follows.",
	}}

	node, err := New(client).Synthesize(
		context.Background(),
		"Solar Energy",
		"Photovoltaic Cells",
		[]string{"Grid Storage", "Solar Thermal"},
		[]sources.Document{contentDoc("PV Basics", "https://example.org/pv", "cells convert light")},
	)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if node.ID != "photovoltaic-cells" {
		t.Fatalf("node ID = %q", node.ID)
	}
	if node.Name != "Photovoltaic Cells" {
		t.Fatalf("node Name = %q", node.Name)
	}
	if node.Summary != "Solar cells convert light [1]." {
		t.Fatalf("summary = %q", node.Summary)
	}
	if node.LowConfidence {
		t.Fatal("node with sources must not be low confidence")
	}
	if len(node.Citations) != 1 || node.Citations[0].URL != "https://example.org/pv" {
		t.Fatalf("unexpected citations: %+v", node.Citations)
	}
	if len(node.Embedding) == 0 {
		t.Fatal("expected an embedding")
	}
	if !strings.Contains(client.lastPrompt, "Grid Storage, Solar Thermal") {
		t.Fatal("prompt should list the related topics")
	}
}

func TestSynthesize_NoSources(t *testing.T) {
	client := &fakeAIClient{article: articleOut{Article: "A short overview."}}

	node, err := New(client).Synthesize(context.Background(), "Solar Energy", "Obscure Topic", nil, nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !node.LowConfidence {
		t.Fatal("node without sources must be low confidence")
	}
	if len(node.Citations) != 0 {
		t.Fatalf("expected no citations, got %+v", node.Citations)
	}
	if strings.Contains(client.lastPrompt, "[1]") {
		t.Fatal("no-source prompt must not contain excerpt tags")
	}
}

func TestSynthesize_FailureAfterRetries(t *testing.T) {
	client := &fakeAIClient{formatErr: errors.New("model unreachable")}

	_, err := New(client).Synthesize(context.Background(), "G", "T", nil, nil)
	var synthErr *Error
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if synthErr.Topic != "T" {
		t.Fatalf("error should carry the topic, got %q", synthErr.Topic)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
}

func TestBuildExcerpts_SharesIndexPerURL(t *testing.T) {
	docs := []sources.Document{
		contentDoc("Page A", "https://a", "first chunk"),
		contentDoc("Page A", "https://a", "second chunk"),
		contentDoc("Page B", "https://b", "other page"),
	}

	excerpts, citations := buildExcerpts(docs, 1000)

	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(citations))
	}
	if citations[0].Index != 1 || citations[1].Index != 2 {
		t.Fatalf("citation indices wrong: %+v", citations)
	}
	if strings.Count(excerpts, "[1]") != 2 {
		t.Fatalf("both chunks of page A should carry index 1:\n%s", excerpts)
	}
	if strings.Count(excerpts, "[2]") != 1 {
		t.Fatalf("page B should carry index 2:\n%s", excerpts)
	}
}

func TestBuildExcerpts_AppliesBudget(t *testing.T) {
	long := strings.Repeat("x", 500)
	docs := []sources.Document{
		contentDoc("A", "https://a", long),
		contentDoc("B", "https://b", long),
	}

	excerpts, _ := buildExcerpts(docs, 200)

	// each excerpt gets at most 100 characters of content
	if strings.Contains(excerpts, strings.Repeat("x", 101)) {
		t.Fatal("excerpt content exceeds per-document budget")
	}
}
