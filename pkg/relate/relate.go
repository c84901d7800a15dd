package relate

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/ai"
	"github.com/meridian-kg/backend/pkg/common"
	"github.com/meridian-kg/backend/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Error marks a failed relationship extraction. The graph is still valid
// without edges, callers degrade to an unconnected graph.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("relationship extraction failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extractor derives the directional edges between the nodes of a finished
// graph from their article summaries.
type Extractor struct {
	aiClient ai.Client
	maxTries int
}

func New(aiClient ai.Client) *Extractor {
	return &Extractor{
		aiClient: aiClient,
		maxTries: 3,
	}
}

type rawRelationship struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

type relationshipOut struct {
	Relationships []rawRelationship `json:"relationships"`
}

// Extract asks the model for relationships between all nodes in a single
// call, then filters the raw output: out-of-range indices, self loops,
// blank labels, and non-positive weights are dropped, weights above 1 are
// clamped, and of two edges between the same unordered pair only the
// heavier one survives (the earlier one on a tie).
//
// Graphs with fewer than two nodes have no edges by definition.
func (x *Extractor) Extract(ctx context.Context, nodes []common.Node) ([]common.Edge, error) {
	if len(nodes) < 2 {
		return nil, nil
	}

	var listing strings.Builder
	for i, node := range nodes {
		summary := node.Summary
		if summary == "" {
			summary = node.Name
		}
		fmt.Fprintf(&listing, "%d. %s\n%s\n\n", i+1, node.Name, summary)
	}

	prompt := fmt.Sprintf(ai.RelationshipPrompt, strings.TrimSpace(listing.String()))

	out, err := util.RetryWithContext(ctx, x.maxTries, func(ctx context.Context) (relationshipOut, error) {
		var result relationshipOut
		err := x.aiClient.GenerateCompletionWithFormat(
			ctx,
			"relationships",
			"Directional relationships between the topics of a knowledge graph",
			prompt,
			&result,
		)
		return result, err
	})
	if err != nil {
		return nil, &Error{Err: err}
	}

	edges, err := filterEdges(nodes, out.Relationships)
	if err != nil {
		return nil, &Error{Err: err}
	}

	logger.Info("[Relate] relationships extracted",
		"nodes", len(nodes), "raw", len(out.Relationships), "edges", len(edges))

	return edges, nil
}

type pairKey struct {
	a, b string
}

func unorderedKey(source, target string) pairKey {
	if source < target {
		return pairKey{a: source, b: target}
	}
	return pairKey{a: target, b: source}
}

func filterEdges(nodes []common.Node, raw []rawRelationship) ([]common.Edge, error) {
	best := make(map[pairKey]int)
	var edges []common.Edge

	for _, rel := range raw {
		if rel.Source < 1 || rel.Source > len(nodes) ||
			rel.Target < 1 || rel.Target > len(nodes) {
			continue
		}
		if rel.Source == rel.Target {
			continue
		}

		label := strings.TrimSpace(rel.Label)
		if label == "" {
			continue
		}

		weight := rel.Weight
		if weight <= 0 {
			continue
		}
		if weight > 1 {
			weight = 1
		}

		sourceID := nodes[rel.Source-1].ID
		targetID := nodes[rel.Target-1].ID

		key := unorderedKey(sourceID, targetID)
		if idx, ok := best[key]; ok {
			if weight > edges[idx].Weight {
				edges[idx].SourceID = sourceID
				edges[idx].TargetID = targetID
				edges[idx].Label = label
				edges[idx].Weight = weight
			}
			continue
		}

		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}

		best[key] = len(edges)
		edges = append(edges, common.Edge{
			ID:       id,
			SourceID: sourceID,
			TargetID: targetID,
			Label:    label,
			Weight:   weight,
		})
	}

	return edges, nil
}
