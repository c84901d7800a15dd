package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/ai"
	"github.com/meridian-kg/backend/pkg/logger"
)

// Mode controls how adventurous topic planning is. Wider modes produce
// more topics and reach further from the query.
type Mode string

const (
	ModeExplorer   Mode = "explorer"
	ModeDiscoverer Mode = "discoverer"
	ModePioneer    Mode = "pioneer"
)

// ParseMode maps a raw string to a Mode, unknown values fall back to
// ModeExplorer.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeDiscoverer:
		return ModeDiscoverer
	case ModePioneer:
		return ModePioneer
	default:
		return ModeExplorer
	}
}

// MaxTopics returns the topic cap for the mode.
func (m Mode) MaxTopics() int {
	switch m {
	case ModeDiscoverer:
		return 8
	case ModePioneer:
		return 10
	default:
		return 6
	}
}

func (m Mode) guidance() string {
	switch m {
	case ModeDiscoverer:
		return ai.TopicGuidanceDiscoverer
	case ModePioneer:
		return ai.TopicGuidancePioneer
	default:
		return ai.TopicGuidanceExplorer
	}
}

// Error marks a planning failure. Planning errors are fatal for the run,
// there is nothing to build a graph from without topics.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("topic planning failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Topic is one planned subtopic of the graph.
type Topic struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Planner decomposes a user query into the topics of a knowledge graph.
type Planner struct {
	aiClient ai.Client
	maxTries int
}

func New(aiClient ai.Client) *Planner {
	return &Planner{
		aiClient: aiClient,
		maxTries: 3,
	}
}

type topicPlan struct {
	KnowledgeGraphName string  `json:"knowledge_graph_name"`
	Subtopics          []Topic `json:"subtopics"`
}

// Plan asks the model for a graph title and subtopics. The raw plan is
// cleaned afterwards: blank and duplicate names are dropped (compared by
// slug so spellings that share a node id collapse, first occurrence
// wins), the query itself is never a topic,
// and the mode's cap is enforced.
func (p *Planner) Plan(ctx context.Context, query string, mode Mode) (string, []Topic, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil, &Error{Err: errors.New("empty query")}
	}

	prompt := fmt.Sprintf(ai.TopicPlanPrompt, query, mode.MaxTopics(), mode.guidance())

	plan, err := util.RetryWithContext(ctx, p.maxTries, func(ctx context.Context) (topicPlan, error) {
		var out topicPlan
		err := p.aiClient.GenerateCompletionWithFormat(
			ctx,
			"topic_plan",
			"Knowledge graph title and subtopic decomposition of a query",
			prompt,
			&out,
		)
		if err != nil {
			return topicPlan{}, err
		}
		if len(cleanTopics(query, out.Subtopics, mode.MaxTopics())) == 0 {
			return topicPlan{}, errors.New("plan contains no usable topics")
		}
		return out, nil
	})
	if err != nil {
		return "", nil, &Error{Err: err}
	}

	title := strings.TrimSpace(plan.KnowledgeGraphName)
	if title == "" {
		title = query
	}

	topics := cleanTopics(query, plan.Subtopics, mode.MaxTopics())
	logger.Info("[Plan] topics planned",
		"query", query, "mode", string(mode), "title", title, "topics", len(topics))

	return title, topics, nil
}

func cleanTopics(query string, raw []Topic, limit int) []Topic {
	seen := make(map[string]bool, len(raw))
	seen[util.Slug(query)] = true

	topics := make([]Topic, 0, len(raw))
	for _, topic := range raw {
		name := strings.TrimSpace(topic.Name)
		if name == "" {
			continue
		}
		// topic names become node ids via their slug, two topics with
		// the same slug would collide
		key := util.Slug(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		topics = append(topics, Topic{
			Name:   name,
			Reason: strings.TrimSpace(topic.Reason),
		})
		if len(topics) == limit {
			break
		}
	}
	return topics
}
