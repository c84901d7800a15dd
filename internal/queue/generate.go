package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/ai"
	"github.com/meridian-kg/backend/pkg/leaselock"
	"github.com/meridian-kg/backend/pkg/logger"
	"github.com/meridian-kg/backend/pkg/pipeline"
	"github.com/meridian-kg/backend/pkg/planner"
	"github.com/meridian-kg/backend/pkg/relate"
	"github.com/meridian-kg/backend/pkg/retrieve"
	"github.com/meridian-kg/backend/pkg/sources"
	"github.com/meridian-kg/backend/pkg/store"
	graphstore "github.com/meridian-kg/backend/pkg/store/pgx"
	"github.com/meridian-kg/backend/pkg/synthesis"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
)

// GenerateGraphMsg is the wire format of a generation job on the
// generate queue.
type GenerateGraphMsg struct {
	UUID   string `json:"uuid"`
	Query  string `json:"query"`
	UserID string `json:"user_id"`
	Mode   string `json:"mode"`
}

// BuildConnectors assembles the source connectors that have credentials
// configured. The news connector shares the web connector's page
// extractor so readability results are cached across both.
func BuildConnectors() []sources.Connector {
	connectors := make([]sources.Connector, 0, 4)

	var web *sources.WebConnector
	if key := util.GetEnv("GOOGLE_SEARCH_KEY"); key != "" {
		web = sources.NewWebConnector(key, util.GetEnv("GOOGLE_SEARCH_ENGINE_ID"))
		connectors = append(connectors, web)
	}
	if key := util.GetEnv("NEWSAPI_KEY"); key != "" {
		daysBack := int(util.GetEnvNumeric("NEWS_DAYS_BACK", 30))
		connectors = append(connectors, sources.NewNewsConnector(key, daysBack, web))
	}
	if key := util.GetEnv("YOUTUBE_API_KEY"); key != "" {
		connectors = append(connectors, sources.NewVideoConnector(key))
	}
	// Semantic Scholar works without a key, just at a lower rate limit.
	if util.GetEnvBool("SEMANTIC_SCHOLAR_ENABLED", true) {
		connectors = append(connectors, sources.NewAcademicConnector(util.GetEnv("SEMANTIC_SCHOLAR_KEY")))
	}

	return connectors
}

// ProcessGenerateMessage runs the generation pipeline for one queued
// job. A per-graph lease guarantees a single writer even when the same
// message is redelivered to another worker, pipeline events are
// republished on the event exchange under "graph.<uuid>".
func ProcessGenerateMessage(
	ctx context.Context,
	aiClient ai.Client,
	ch *amqp091.Channel,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(GenerateGraphMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return util.Permanent(err)
	}

	job, err := parseJob(data)
	if err != nil {
		return util.Permanent(err)
	}

	graphs := graphstore.NewGraphDBStore(conn)
	terminal, err := alreadyTerminal(ctx, graphs, job.UUID)
	if err != nil {
		return err
	}
	if terminal {
		logger.Warn("[Queue] Graph already terminal, dropping redelivered job", "uuid", data.UUID)
		return nil
	}

	content := graphstore.NewContentDBStore(conn, aiClient)
	maxPerSource := int(util.GetEnvNumeric("SEARCH_MAX_RESULTS", 10))

	orchestrator := pipeline.NewOrchestrator(pipeline.NewOrchestratorParams{
		Planner:     planner.New(aiClient),
		Retriever:   retrieve.New(content, BuildConnectors(), maxPerSource),
		Synthesizer: synthesis.New(aiClient),
		Relator:     relate.New(aiClient),
		Graphs:      graphs,
	})

	topic := "graph.events." + data.UUID
	sink := func(event pipeline.Event) {
		payload, err := json.Marshal(event)
		if err != nil {
			logger.Error("[Queue] Failed to marshal event", "uuid", data.UUID, "err", err)
			return
		}
		if err := PublishTopic(ch, topic, payload); err != nil {
			logger.Warn("[Queue] Failed to publish event", "uuid", data.UUID, "err", err)
		}
	}

	locks := leaselock.New(conn)
	err = locks.WithLease(ctx, "generate:"+data.UUID, leaselock.Options{
		TTL:        2 * time.Minute,
		RenewEvery: 30 * time.Second,
	}, func(ctx context.Context) error {
		return orchestrator.Run(ctx, job, sink)
	})
	if errors.Is(err, leaselock.ErrBusy) {
		// Another worker already owns this run, drop the duplicate.
		logger.Warn("[Queue] Graph already being generated", "uuid", data.UUID)
		return nil
	}
	if errors.Is(err, store.ErrStaleTransition) {
		// Another writer finished the run first, retrying cannot succeed.
		return util.Permanent(err)
	}
	return err
}

// alreadyTerminal reports whether the graph reached a terminal state.
// Redelivered jobs for such graphs must not run again, terminal rows
// never change.
func alreadyTerminal(ctx context.Context, graphs store.GraphStore, id uuid.UUID) (bool, error) {
	state, err := graphs.GetState(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		// The row is gone, retrying cannot bring it back.
		return false, util.Permanent(err)
	}
	if err != nil {
		return false, err
	}
	return state.Terminal(), nil
}

func parseJob(data *GenerateGraphMsg) (pipeline.Job, error) {
	id, err := uuid.Parse(data.UUID)
	if err != nil {
		return pipeline.Job{}, fmt.Errorf("invalid graph uuid %q: %w", data.UUID, err)
	}
	if data.Query == "" {
		return pipeline.Job{}, fmt.Errorf("empty query for graph %s", data.UUID)
	}

	return pipeline.Job{
		UUID:   id,
		Query:  data.Query,
		UserID: data.UserID,
		Mode:   planner.ParseMode(data.Mode),
	}, nil
}
