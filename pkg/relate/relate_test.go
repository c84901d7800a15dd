package relate

import (
	"context"
	"errors"
	"testing"

	"github.com/meridian-kg/backend/pkg/ai"
	"github.com/meridian-kg/backend/pkg/common"
)

type fakeAIClient struct {
	out   relationshipOut
	err   error
	calls int
}

func (c *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not implemented")
}

func (c *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	*out.(*relationshipOut) = c.out
	return nil
}

func (c *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeAIClient) ResetMetrics() {}

func (c *fakeAIClient) GetMetrics() ai.ModelMetrics {
	return ai.ModelMetrics{}
}

func testNodes(names ...string) []common.Node {
	nodes := make([]common.Node, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, common.Node{ID: name, Name: name, Summary: "about " + name})
	}
	return nodes
}

func TestExtract_FewerThanTwoNodes(t *testing.T) {
	client := &fakeAIClient{}

	edges, err := New(client).Extract(context.Background(), testNodes("a"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if edges != nil {
		t.Fatalf("expected nil edges, got %+v", edges)
	}
	if client.calls != 0 {
		t.Fatal("single node graph must not reach the model")
	}
}

func TestExtract_FiltersRawOutput(t *testing.T) {
	client := &fakeAIClient{out: relationshipOut{Relationships: []rawRelationship{
		{Source: 1, Target: 2, Label: "enables", Weight: 0.8},
		{Source: 2, Target: 2, Label: "self loop", Weight: 0.5},
		{Source: 0, Target: 1, Label: "out of range", Weight: 0.5},
		{Source: 1, Target: 9, Label: "out of range", Weight: 0.5},
		{Source: 2, Target: 3, Label: "", Weight: 0.5},
		{Source: 2, Target: 3, Label: "zero weight", Weight: 0},
		{Source: 2, Target: 3, Label: "clamped", Weight: 1.7},
	}}}

	edges, err := New(client).Extract(context.Background(), testNodes("a", "b", "c"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d: %+v", len(edges), edges)
	}
	if edges[0].SourceID != "a" || edges[0].TargetID != "b" || edges[0].Weight != 0.8 {
		t.Fatalf("unexpected first edge: %+v", edges[0])
	}
	if edges[1].Weight != 1 {
		t.Fatalf("weight should be clamped to 1, got %v", edges[1].Weight)
	}
	for _, edge := range edges {
		if edge.ID == "" {
			t.Fatal("edges must have IDs")
		}
	}
}

func TestExtract_KeepsHeavierOfDuplicatePair(t *testing.T) {
	client := &fakeAIClient{out: relationshipOut{Relationships: []rawRelationship{
		{Source: 1, Target: 2, Label: "weak", Weight: 0.3},
		{Source: 2, Target: 1, Label: "strong", Weight: 0.9},
	}}}

	edges, err := New(client).Extract(context.Background(), testNodes("a", "b"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].Label != "strong" || edges[0].SourceID != "b" {
		t.Fatalf("heavier edge should win: %+v", edges[0])
	}
}

func TestExtract_TieKeepsFirst(t *testing.T) {
	client := &fakeAIClient{out: relationshipOut{Relationships: []rawRelationship{
		{Source: 1, Target: 2, Label: "first", Weight: 0.5},
		{Source: 2, Target: 1, Label: "second", Weight: 0.5},
	}}}

	edges, err := New(client).Extract(context.Background(), testNodes("a", "b"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(edges) != 1 || edges[0].Label != "first" {
		t.Fatalf("tie should keep the earlier edge: %+v", edges)
	}
}

func TestExtract_FailureWrapsError(t *testing.T) {
	client := &fakeAIClient{err: errors.New("model unreachable")}

	_, err := New(client).Extract(context.Background(), testNodes("a", "b"))
	var relErr *Error
	if !errors.As(err, &relErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
}
