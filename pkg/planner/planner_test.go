package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/meridian-kg/backend/pkg/ai"
)

type fakeAIClient struct {
	plans []topicPlan
	errs  []error
	calls int
}

func (c *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not implemented")
}

func (c *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return c.errs[idx]
	}
	if idx < len(c.plans) {
		*out.(*topicPlan) = c.plans[idx]
		return nil
	}
	return errors.New("no scripted response")
}

func (c *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return make([]float32, 4), nil
}

func (c *fakeAIClient) ResetMetrics() {}

func (c *fakeAIClient) GetMetrics() ai.ModelMetrics {
	return ai.ModelMetrics{}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		raw  string
		want Mode
	}{
		{"explorer", ModeExplorer},
		{"discoverer", ModeDiscoverer},
		{"pioneer", ModePioneer},
		{"PIONEER", ModePioneer},
		{" discoverer ", ModeDiscoverer},
		{"", ModeExplorer},
		{"bogus", ModeExplorer},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseMode(tt.raw); got != tt.want {
				t.Fatalf("ParseMode(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMode_MaxTopics(t *testing.T) {
	if ModeExplorer.MaxTopics() != 6 {
		t.Fatalf("explorer cap = %d, want 6", ModeExplorer.MaxTopics())
	}
	if ModeDiscoverer.MaxTopics() != 8 {
		t.Fatalf("discoverer cap = %d, want 8", ModeDiscoverer.MaxTopics())
	}
	if ModePioneer.MaxTopics() != 10 {
		t.Fatalf("pioneer cap = %d, want 10", ModePioneer.MaxTopics())
	}
}

func TestPlan_CleansTopics(t *testing.T) {
	client := &fakeAIClient{plans: []topicPlan{{
		KnowledgeGraphName: "Solar Energy",
		Subtopics: []Topic{
			{Name: "Photovoltaic Cells", Reason: "core tech"},
			{Name: "photovoltaic cells", Reason: "duplicate"},
			{Name: "Photovoltaic-Cells", Reason: "same node id as the first"},
			{Name: "  "},
			{Name: "solar energy", Reason: "echoes the query"},
			{Name: "Grid Integration", Reason: "deployment"},
		},
	}}}

	title, topics, err := New(client).Plan(context.Background(), "solar energy", ModeExplorer)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if title != "Solar Energy" {
		t.Fatalf("title = %q, want %q", title, "Solar Energy")
	}
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics after cleaning, got %d: %+v", len(topics), topics)
	}
	if topics[0].Name != "Photovoltaic Cells" || topics[1].Name != "Grid Integration" {
		t.Fatalf("unexpected topics: %+v", topics)
	}
}

func TestPlan_EnforcesModeCap(t *testing.T) {
	var raw []Topic
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"} {
		raw = append(raw, Topic{Name: name})
	}
	client := &fakeAIClient{plans: []topicPlan{{KnowledgeGraphName: "T", Subtopics: raw}}}

	_, topics, err := New(client).Plan(context.Background(), "query", ModeExplorer)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(topics) != ModeExplorer.MaxTopics() {
		t.Fatalf("expected %d topics, got %d", ModeExplorer.MaxTopics(), len(topics))
	}
}

func TestPlan_RetriesTransientFailure(t *testing.T) {
	client := &fakeAIClient{
		errs: []error{errors.New("model overloaded"), nil},
		plans: []topicPlan{
			{},
			{KnowledgeGraphName: "T", Subtopics: []Topic{{Name: "A"}}},
		},
	}

	_, topics, err := New(client).Plan(context.Background(), "query", ModeExplorer)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(topics))
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", client.calls)
	}
}

func TestPlan_FatalAfterRetries(t *testing.T) {
	bad := errors.New("model unreachable")
	client := &fakeAIClient{errs: []error{bad, bad, bad}}

	_, _, err := New(client).Plan(context.Background(), "query", ModeExplorer)
	var planErr *Error
	if !errors.As(err, &planErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.calls)
	}
}

func TestPlan_EmptyQuery(t *testing.T) {
	client := &fakeAIClient{}
	_, _, err := New(client).Plan(context.Background(), "   ", ModeExplorer)
	var planErr *Error
	if !errors.As(err, &planErr) {
		t.Fatalf("expected *Error for empty query, got %v", err)
	}
	if client.calls != 0 {
		t.Fatal("empty query must not reach the model")
	}
}

func TestPlan_TitleFallsBackToQuery(t *testing.T) {
	client := &fakeAIClient{plans: []topicPlan{{
		Subtopics: []Topic{{Name: "A"}},
	}}}

	title, _, err := New(client).Plan(context.Background(), "dark matter", ModeExplorer)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if title != "dark matter" {
		t.Fatalf("title = %q, want query fallback", title)
	}
}
