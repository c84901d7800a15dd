package store

import (
	"context"
	"errors"
	"time"

	"github.com/meridian-kg/backend/pkg/common"
	"github.com/meridian-kg/backend/pkg/sources"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a graph UUID does not exist.
var ErrNotFound = errors.New("graph not found")

// ErrStaleTransition is returned when a state update would move a graph
// backwards or out of a terminal state.
var ErrStaleTransition = errors.New("stale state transition")

// GraphRecord is a stored generation run. Payload is nil until the run
// reaches PhaseDone.
type GraphRecord struct {
	UUID      uuid.UUID     `json:"uuid"`
	UserID    string        `json:"user_id"`
	Query     string        `json:"query"`
	Title     string        `json:"title"`
	Status    string        `json:"status"`
	Payload   *common.Graph `json:"payload,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// State decodes the record's wire status.
func (r *GraphRecord) State() (GraphState, error) {
	return ParseState(r.Status)
}

// GraphStore persists generation runs and their status.
type GraphStore interface {
	// CreateGraph registers a new run in PhaseStarted.
	CreateGraph(ctx context.Context, id uuid.UUID, userID, query string) error

	// SetState advances the run's status. Transitions that move backwards
	// or leave a terminal state return ErrStaleTransition.
	SetState(ctx context.Context, id uuid.UUID, state GraphState) error

	// SetTitle records the display title chosen during planning. Writing
	// to a terminal run returns ErrStaleTransition.
	SetTitle(ctx context.Context, id uuid.UUID, title string) error

	// SetResult stores the finished graph payload.
	SetResult(ctx context.Context, id uuid.UUID, graph *common.Graph) error

	GetGraph(ctx context.Context, id uuid.UUID) (*GraphRecord, error)
	GetState(ctx context.Context, id uuid.UUID) (GraphState, error)
	ListGraphs(ctx context.Context, userID string) ([]GraphRecord, error)
	DeleteGraph(ctx context.Context, id uuid.UUID) error
}

// ContentStore persists retrieved documents scoped by retrieval batch and
// serves vector similarity search over them.
type ContentStore interface {
	// InsertDocuments embeds and stores documents under the given batch.
	InsertDocuments(ctx context.Context, batchID uuid.UUID, docs []sources.Document) error

	// SearchSimilar returns the documents of one batch most similar to the
	// query text, best match first.
	SearchSimilar(ctx context.Context, batchID uuid.UUID, query string, limit int) ([]sources.Document, error)

	// DeleteBatch removes every document of a batch.
	DeleteBatch(ctx context.Context, batchID uuid.UUID) error
}
