package retrieve

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/meridian-kg/backend/pkg/logger"
	"github.com/meridian-kg/backend/pkg/sources"
	"github.com/meridian-kg/backend/pkg/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoSourcesAvailable is returned when the retriever has no configured
// connectors to query.
var ErrNoSourcesAvailable = errors.New("no source connectors available")

// Error marks a topic whose retrieval produced nothing usable. Callers
// skip the topic rather than failing the whole run.
type Error struct {
	Topic string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retrieval for topic %q failed: %v", e.Topic, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retriever fans a topic out across every configured source connector,
// stores the gathered documents under a fresh batch, and returns them.
type Retriever struct {
	connectors   []sources.Connector
	content      store.ContentStore
	maxPerSource int
}

// New creates a retriever. maxPerSource caps the search hits requested
// from each connector.
func New(content store.ContentStore, connectors []sources.Connector, maxPerSource int) *Retriever {
	if maxPerSource <= 0 {
		maxPerSource = 10
	}
	return &Retriever{
		connectors:   connectors,
		content:      content,
		maxPerSource: maxPerSource,
	}
}

// Search queries all connectors for the topic in parallel. Individual
// connector failures are logged and tolerated, the topic only fails when
// nothing at all could be retrieved. Retrieved documents are persisted
// under batchID before Search returns, all topics of one generation run
// share a batch so the run's corpus can be searched and deleted as one.
func (r *Retriever) Search(ctx context.Context, batchID uuid.UUID, topic string) ([]sources.Document, error) {
	if len(r.connectors) == 0 {
		return nil, ErrNoSourcesAvailable
	}

	results := make([][]sources.Document, len(r.connectors))
	var (
		errsMu sync.Mutex
		errs   []error
	)

	eg, ectx := errgroup.WithContext(ctx)
	for i, connector := range r.connectors {
		eg.Go(func() error {
			docs, err := connector.Fetch(ectx, topic, r.maxPerSource)
			if err != nil {
				logger.Warn("[Retrieve] connector failed",
					"topic", topic, "source", connector.Kind(), "error", err)
				errsMu.Lock()
				errs = append(errs, err)
				errsMu.Unlock()
				return nil
			}
			results[i] = docs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, &Error{Topic: topic, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// merge preserving connector registration order
	var docs []sources.Document
	for _, part := range results {
		docs = append(docs, part...)
	}

	if len(docs) == 0 {
		if len(errs) > 0 {
			return nil, &Error{Topic: topic, Err: errors.Join(errs...)}
		}
		// nothing found anywhere, the caller decides how to degrade
		return nil, nil
	}

	if err := r.content.InsertDocuments(ctx, batchID, docs); err != nil {
		return nil, &Error{Topic: topic, Err: err}
	}

	logger.Debug("[Retrieve] topic retrieved",
		"topic", topic, "batch", batchID, "documents", len(docs), "failed_sources", len(errs))

	return docs, nil
}
