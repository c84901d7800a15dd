package common

// Graph is the final artifact of a generation run: a set of articles as
// nodes plus the directional relationships discovered between them.
//
// A graph contains:
//   - Name: a display title derived from the original query
//   - Nodes: one synthesized article per planned topic
//   - Edges: directional relationships between nodes
type Graph struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents a single topic in the graph together with the article
// synthesized for it. Each node carries the citations of the source
// documents that grounded the article and an embedding of its content.
//
// LowConfidence marks nodes whose article was written without any
// retrieved source material.
type Node struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Content       string     `json:"content"`
	Summary       string     `json:"summary"`
	Citations     []Citation `json:"citations"`
	Embedding     []float32  `json:"embedding,omitempty"`
	LowConfidence bool       `json:"low_confidence,omitempty"`
}

// Citation links a numbered reference inside an article back to the
// source document it was drawn from.
type Citation struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Edge represents a directional relationship between two nodes. Weight
// scores the strength of the relationship in the range (0, 1].
type Edge struct {
	ID       string  `json:"id"`
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Label    string  `json:"label"`
	Weight   float64 `json:"weight"`
}
