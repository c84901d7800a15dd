package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-kg/backend/internal/util"
	"github.com/meridian-kg/backend/pkg/ai"
	"github.com/meridian-kg/backend/pkg/common"
	"github.com/meridian-kg/backend/pkg/logger"
	"github.com/meridian-kg/backend/pkg/sources"
)

// totalExcerptBudget caps the characters of source material packed into
// one article prompt. Each document gets an equal share, so more
// documents mean shorter excerpts.
const totalExcerptBudget = 24000

// Error marks a topic whose article could not be written. Callers skip
// the topic rather than failing the whole run.
type Error struct {
	Topic string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("synthesis for topic %q failed: %v", e.Topic, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Synthesizer writes one grounded article per topic and turns it into a
// graph node with citations and an embedding.
type Synthesizer struct {
	aiClient ai.Client
	budget   int
	maxTries int
}

func New(aiClient ai.Client) *Synthesizer {
	return &Synthesizer{
		aiClient: aiClient,
		budget:   totalExcerptBudget,
		maxTries: 3,
	}
}

type articleOut struct {
	Article string `json:"article"`
}

// Synthesize writes the article for one topic from the given documents.
// relatedTopics lists the graph's other topics so the article can
// cross-reference them with [[wiki-link]] markers.
//
// With no documents at all the article is written from general knowledge,
// carries no citations, and the node is marked low confidence.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	graphTitle string,
	topic string,
	relatedTopics []string,
	docs []sources.Document,
) (common.Node, error) {
	var (
		prompt    string
		citations []common.Citation
	)

	related := "none"
	if len(relatedTopics) > 0 {
		related = strings.Join(relatedTopics, ", ")
	}

	if len(docs) == 0 {
		prompt = fmt.Sprintf(ai.ArticleNoSourcesPrompt, topic, graphTitle, related)
	} else {
		var excerpts string
		excerpts, citations = buildExcerpts(docs, s.budget)
		prompt = fmt.Sprintf(ai.ArticlePrompt, topic, graphTitle, related, excerpts)
	}

	out, err := util.RetryWithContext(ctx, s.maxTries, func(ctx context.Context) (articleOut, error) {
		var result articleOut
		err := s.aiClient.GenerateCompletionWithFormat(
			ctx,
			"article",
			"Markdown article about one topic",
			prompt,
			&result,
		)
		if err != nil {
			return articleOut{}, err
		}
		if strings.TrimSpace(result.Article) == "" {
			return articleOut{}, fmt.Errorf("empty article")
		}
		return result, nil
	})
	if err != nil {
		return common.Node{}, &Error{Topic: topic, Err: err}
	}

	article := strings.TrimSpace(out.Article)

	embedding, err := s.aiClient.GenerateEmbedding(ctx, []byte(article))
	if err != nil {
		return common.Node{}, &Error{Topic: topic, Err: err}
	}

	node := common.Node{
		ID:            util.Slug(topic),
		Name:          topic,
		Content:       article,
		Summary:       util.FirstParagraph(article),
		Citations:     citations,
		Embedding:     embedding,
		LowConfidence: len(docs) == 0,
	}

	logger.Debug("[Synthesize] article written",
		"topic", topic, "citations", len(citations), "low_confidence", node.LowConfidence)

	return node, nil
}

// buildExcerpts renders the documents as bracket-tagged excerpts and the
// matching citation list. Documents sharing a URL share one citation
// index, the character budget is split evenly across documents.
func buildExcerpts(docs []sources.Document, budget int) (string, []common.Citation) {
	perDoc := util.PerDocumentBudget(budget, len(docs))

	indexByURL := make(map[string]int)
	var citations []common.Citation

	var builder strings.Builder
	for _, doc := range docs {
		key := doc.URL
		if key == "" {
			key = doc.Title
		}

		index, ok := indexByURL[key]
		if !ok {
			index = len(citations) + 1
			indexByURL[key] = index
			citations = append(citations, common.Citation{
				Index:  index,
				Title:  doc.Title,
				URL:    doc.URL,
				Source: string(doc.Source),
			})
		}

		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		fmt.Fprintf(&builder, "[%d] %s (%s)\n%s",
			index, doc.Title, doc.Source, util.TruncateRunes(doc.Content, perDoc))
	}

	return builder.String(), citations
}
