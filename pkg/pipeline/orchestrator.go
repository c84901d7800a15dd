package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/meridian-kg/backend/pkg/common"
	"github.com/meridian-kg/backend/pkg/logger"
	"github.com/meridian-kg/backend/pkg/planner"
	"github.com/meridian-kg/backend/pkg/retrieve"
	"github.com/meridian-kg/backend/pkg/sources"
	"github.com/meridian-kg/backend/pkg/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxTopicWorkers bounds how many topics are retrieved or synthesized at
// the same time.
const maxTopicWorkers = 5

// TopicPlanner plans the graph title and topics for a query.
type TopicPlanner interface {
	Plan(ctx context.Context, query string, mode planner.Mode) (string, []planner.Topic, error)
}

// Retriever gathers source documents for one topic.
type Retriever interface {
	Search(ctx context.Context, batchID uuid.UUID, topic string) ([]sources.Document, error)
}

// Synthesizer writes the article node for one topic.
type Synthesizer interface {
	Synthesize(ctx context.Context, graphTitle, topic string, relatedTopics []string, docs []sources.Document) (common.Node, error)
}

// RelationExtractor derives edges between finished nodes.
type RelationExtractor interface {
	Extract(ctx context.Context, nodes []common.Node) ([]common.Edge, error)
}

// Job identifies one generation run.
type Job struct {
	UUID   uuid.UUID    `json:"uuid"`
	Query  string       `json:"query"`
	UserID string       `json:"user_id"`
	Mode   planner.Mode `json:"mode"`
}

// Orchestrator drives a generation run through its phases: plan topics,
// retrieve and synthesize per topic, extract relationships, persist the
// result. Status is written to the graph store at every phase boundary so
// pollers see progress, the event sink carries the fine-grained trace.
type Orchestrator struct {
	planner     TopicPlanner
	retriever   Retriever
	synthesizer Synthesizer
	relator     RelationExtractor
	graphs      store.GraphStore
}

// NewOrchestratorParams collects the orchestrator's collaborators.
type NewOrchestratorParams struct {
	Planner     TopicPlanner
	Retriever   Retriever
	Synthesizer Synthesizer
	Relator     RelationExtractor
	Graphs      store.GraphStore
}

func NewOrchestrator(params NewOrchestratorParams) *Orchestrator {
	return &Orchestrator{
		planner:     params.Planner,
		retriever:   params.Retriever,
		synthesizer: params.Synthesizer,
		relator:     params.Relator,
		graphs:      params.Graphs,
	}
}

type topicResult struct {
	topic   planner.Topic
	docs    []sources.Document
	node    common.Node
	skipped bool
}

// Run executes the whole pipeline for one job. Per-topic failures are
// tolerated as long as at least one topic survives, planning failures and
// a fully failed topic set abort the run. The returned error is nil when
// the run reached PhaseDone.
func (o *Orchestrator) Run(ctx context.Context, job Job, sink EventSink) error {
	logger.Info("[Pipeline] run started",
		"uuid", job.UUID, "query", job.Query, "mode", string(job.Mode))

	sink.emit(Event{Type: EventThought, Message: fmt.Sprintf("Planning topics for %q", job.Query)})

	title, topics, err := o.planner.Plan(ctx, job.Query, job.Mode)
	if err != nil {
		return o.fail(ctx, job, sink, fmt.Errorf("planning: %w", err))
	}

	if err := o.graphs.SetTitle(ctx, job.UUID, title); err != nil {
		return o.fail(ctx, job, sink, err)
	}

	names := make([]string, 0, len(topics))
	for _, topic := range topics {
		names = append(names, topic.Name)
	}
	if err := o.graphs.SetState(ctx, job.UUID, store.TopicsFound(names)); err != nil {
		return o.fail(ctx, job, sink, err)
	}
	sink.emit(Event{
		Type:    EventObservation,
		Message: fmt.Sprintf("Planned %d topics for %q", len(topics), title),
	})

	results, err := o.retrieveAll(ctx, job, sink, topics)
	if err != nil {
		return o.fail(ctx, job, sink, err)
	}

	if err := o.graphs.SetState(ctx, job.UUID, store.SearchResultsFound()); err != nil {
		return o.fail(ctx, job, sink, err)
	}

	nodes, err := o.synthesizeAll(ctx, job, sink, title, results)
	if err != nil {
		return o.fail(ctx, job, sink, err)
	}

	if err := o.graphs.SetState(ctx, job.UUID, store.ArticlesGenerated()); err != nil {
		return o.fail(ctx, job, sink, err)
	}
	sink.emit(Event{
		Type:    EventObservation,
		Message: fmt.Sprintf("Generated %d articles", len(nodes)),
	})

	sink.emit(Event{Type: EventAction, Message: "Extracting relationships between topics"})
	edges, err := o.relator.Extract(ctx, nodes)
	if err != nil {
		// an unconnected graph is still a graph
		logger.Warn("[Pipeline] relationship extraction failed", "uuid", job.UUID, "error", err)
		sink.emit(Event{
			Type:    EventError,
			Message: fmt.Sprintf("Relationship extraction failed, graph has no edges: %v", err),
		})
		edges = nil
	}

	graph := &common.Graph{
		Name:  title,
		Nodes: nodes,
		Edges: edges,
	}

	// status first so pollers never see "done" without a payload close behind
	if err := o.graphs.SetState(ctx, job.UUID, store.Done()); err != nil {
		return o.fail(ctx, job, sink, err)
	}
	if err := o.graphs.SetResult(ctx, job.UUID, graph); err != nil {
		sink.emit(Event{
			Type:     EventError,
			Message:  fmt.Sprintf("Failed to persist result: %v", err),
			Terminal: true,
		})
		return err
	}

	sink.emit(Event{
		Type:     EventObservation,
		Message:  fmt.Sprintf("Knowledge graph %q finished with %d nodes and %d edges", title, len(nodes), len(edges)),
		Terminal: true,
	})
	logger.Info("[Pipeline] run finished",
		"uuid", job.UUID, "nodes", len(nodes), "edges", len(edges))
	return nil
}

// retrieveAll fans retrieval out across topics. Topics whose retrieval
// fails are marked skipped, a missing connector setup aborts the run.
func (o *Orchestrator) retrieveAll(
	ctx context.Context,
	job Job,
	sink EventSink,
	topics []planner.Topic,
) ([]topicResult, error) {
	results := make([]topicResult, len(topics))

	var sinkMu sync.Mutex
	emit := func(event Event) {
		sinkMu.Lock()
		sink.emit(event)
		sinkMu.Unlock()
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(maxTopicWorkers)
	for i, topic := range topics {
		eg.Go(func() error {
			emit(Event{
				Type:    EventAction,
				Message: fmt.Sprintf("Searching sources for %q", topic.Name),
				Topic:   topic.Name,
			})

			docs, err := o.retriever.Search(ectx, job.UUID, topic.Name)
			if err != nil {
				if errors.Is(err, retrieve.ErrNoSourcesAvailable) {
					return err
				}
				logger.Warn("[Pipeline] topic skipped after retrieval failure",
					"uuid", job.UUID, "topic", topic.Name, "error", err)
				emit(Event{
					Type:    EventError,
					Message: fmt.Sprintf("Skipping %q: %v", topic.Name, err),
					Topic:   topic.Name,
				})
				results[i] = topicResult{topic: topic, skipped: true}
				return nil
			}

			emit(Event{
				Type:    EventObservation,
				Message: fmt.Sprintf("Retrieved %d documents for %q", len(docs), topic.Name),
				Topic:   topic.Name,
			})
			results[i] = topicResult{topic: topic, docs: docs}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	surviving := 0
	for _, result := range results {
		if !result.skipped {
			surviving++
		}
	}
	if surviving == 0 {
		return nil, errors.New("retrieval failed for every topic")
	}
	return results, nil
}

// synthesizeAll writes an article for every surviving topic. Topics whose
// synthesis fails are dropped, at least one node must remain.
func (o *Orchestrator) synthesizeAll(
	ctx context.Context,
	job Job,
	sink EventSink,
	title string,
	results []topicResult,
) ([]common.Node, error) {
	var sinkMu sync.Mutex
	emit := func(event Event) {
		sinkMu.Lock()
		sink.emit(event)
		sinkMu.Unlock()
	}

	// related lists are fixed before the goroutines start, synthesis
	// failures must not change what other articles may link to
	surviving := make([]string, 0, len(results))
	for i := range results {
		if !results[i].skipped {
			surviving = append(surviving, results[i].topic.Name)
		}
	}
	relatedFor := func(topic string) []string {
		related := make([]string, 0, len(surviving)-1)
		for _, name := range surviving {
			if name != topic {
				related = append(related, name)
			}
		}
		return related
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(maxTopicWorkers)
	for i := range results {
		if results[i].skipped {
			continue
		}
		eg.Go(func() error {
			result := &results[i]
			emit(Event{
				Type:    EventAction,
				Message: fmt.Sprintf("Writing article for %q", result.topic.Name),
				Topic:   result.topic.Name,
			})

			node, err := o.synthesizer.Synthesize(ectx, title, result.topic.Name, relatedFor(result.topic.Name), result.docs)
			if err != nil {
				logger.Warn("[Pipeline] topic skipped after synthesis failure",
					"uuid", job.UUID, "topic", result.topic.Name, "error", err)
				emit(Event{
					Type:    EventError,
					Message: fmt.Sprintf("Skipping %q: %v", result.topic.Name, err),
					Topic:   result.topic.Name,
				})
				result.skipped = true
				return nil
			}

			result.node = node
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var nodes []common.Node
	for _, result := range results {
		if !result.skipped {
			nodes = append(nodes, result.node)
		}
	}
	if len(nodes) == 0 {
		return nil, errors.New("synthesis failed for every topic")
	}
	return nodes, nil
}

// fail moves the run to PhaseFailed and emits the terminal error event.
// The original error is always returned, even when recording the failure
// state itself fails.
func (o *Orchestrator) fail(ctx context.Context, job Job, sink EventSink, cause error) error {
	logger.Error("[Pipeline] run failed", "uuid", job.UUID, "error", cause)

	if err := o.graphs.SetState(ctx, job.UUID, store.Failed(cause.Error())); err != nil {
		logger.Error("[Pipeline] failed to record failure state", "uuid", job.UUID, "error", err)
	}
	sink.emit(Event{
		Type:     EventError,
		Message:  cause.Error(),
		Terminal: true,
	})
	return cause
}
