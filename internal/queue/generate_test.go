package queue

import (
	"context"
	"testing"

	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/planner"
	"github.com/meridian-kg/backend/pkg/store"

	"github.com/google/uuid"
)

type fakeGraphStore struct {
	store.GraphStore

	state    store.GraphState
	stateErr error
}

func (s *fakeGraphStore) GetState(ctx context.Context, id uuid.UUID) (store.GraphState, error) {
	return s.state, s.stateErr
}

func TestParseJob(t *testing.T) {
	id := uuid.New()
	job, err := parseJob(&GenerateGraphMsg{
		UUID:   id.String(),
		Query:  "history of the internet",
		UserID: "user-1",
		Mode:   "pioneer",
	})
	if err != nil {
		t.Fatalf("parseJob() error = %v", err)
	}
	if job.UUID != id {
		t.Fatalf("uuid = %s, want %s", job.UUID, id)
	}
	if job.Mode != planner.ModePioneer {
		t.Fatalf("mode = %s, want %s", job.Mode, planner.ModePioneer)
	}
}

func TestParseJob_DefaultsMode(t *testing.T) {
	job, err := parseJob(&GenerateGraphMsg{
		UUID:  uuid.NewString(),
		Query: "quantum computing",
	})
	if err != nil {
		t.Fatalf("parseJob() error = %v", err)
	}
	if job.Mode != planner.ModeExplorer {
		t.Fatalf("mode = %s, want %s", job.Mode, planner.ModeExplorer)
	}
}

func TestAlreadyTerminal(t *testing.T) {
	tests := []struct {
		name  string
		state store.GraphState
		want  bool
	}{
		{"started", store.Started(), false},
		{"topics found", store.TopicsFound([]string{"A"}), false},
		{"done", store.Done(), true},
		{"failed", store.Failed("planning: timeout"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graphs := &fakeGraphStore{state: tt.state}
			got, err := alreadyTerminal(context.Background(), graphs, uuid.New())
			if err != nil {
				t.Fatalf("alreadyTerminal() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("alreadyTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlreadyTerminal_MissingGraphIsPermanent(t *testing.T) {
	graphs := &fakeGraphStore{stateErr: store.ErrNotFound}
	_, err := alreadyTerminal(context.Background(), graphs, uuid.New())
	if err == nil {
		t.Fatal("expected error for missing graph")
	}
	if !util.IsPermanent(err) {
		t.Fatalf("error = %v, want permanent", err)
	}
}

func TestParseJob_InvalidInput(t *testing.T) {
	if _, err := parseJob(&GenerateGraphMsg{UUID: "not-a-uuid", Query: "x"}); err == nil {
		t.Fatal("expected error for invalid uuid")
	}
	if _, err := parseJob(&GenerateGraphMsg{UUID: uuid.NewString()}); err == nil {
		t.Fatal("expected error for empty query")
	}
}
