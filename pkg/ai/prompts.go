package ai

const TopicPlanPrompt = `
# Task Context
You are a research planner that decomposes a user query into the subtopics of a knowledge graph. You will be given the query and a target number of subtopics.

# Background Data
- **User query:** "%s"
- **Subtopic count:** at most %d
- **Planning guidance:** %s

# Detailed Task Description & Rules
- Choose a short, descriptive name for the knowledge graph derived from the query.
- Decompose the query into distinct subtopics that together cover the subject.
- Each subtopic must be a concrete noun phrase suitable as a standalone search query.
- Do not repeat the query verbatim as a subtopic.
- Do not produce near-duplicate subtopics that differ only in wording.
- Return at most the requested number of subtopics, fewer is acceptable when the subject does not support more.

# Examples
Query: "solar energy"
Output:
{
  "knowledge_graph_name": "Solar Energy",
  "subtopics": [
    { "name": "Photovoltaic Cells", "reason": "core conversion technology" },
    { "name": "Solar Thermal Power", "reason": "alternative conversion pathway" },
    { "name": "Grid Integration of Solar", "reason": "deployment constraint" }
  ]
}

# Output Formatting
Return JSON with the following structure:
{
  "knowledge_graph_name": string,  // Short display title for the graph
  "subtopics": [
    {
      "name": string,              // Concrete, searchable subtopic name
      "reason": string             // One sentence on why this subtopic belongs in the graph
    }
  ]
}
Output must be valid JSON only (no commentary, no extra text).
`

// Per-mode planning guidance interpolated into TopicPlanPrompt.
const (
	TopicGuidanceExplorer = `Stay close to the query. Pick the most central, well-established subtopics a newcomer would need first.`

	TopicGuidanceDiscoverer = `Balance central subtopics with adjacent areas. Include the established core but reach into related fields the query touches.`

	TopicGuidancePioneer = `Favor breadth and novelty. Include emerging, contested, or cross-disciplinary subtopics alongside the core, even when they are speculative.`
)

const ArticlePrompt = `
# Task Context
You are a technical writer producing an encyclopedic article about a single topic, grounded strictly in the source excerpts provided below.

# Background Data
- **Topic:** "%s"
- **Overall subject:** "%s"
- **Related topics in this graph:** %s
- **Source excerpts:** each excerpt is tagged with a bracketed index like [1], [2]:

%s

# Detailed Task Description & Rules
- Write a coherent, well-structured article about the topic in markdown.
- Ground every factual claim in the excerpts and cite the supporting excerpt inline with its bracketed index, e.g. "...rose by 12%% [2].".
- Only cite indices that appear in the source excerpts.
- Do not invent facts that are not supported by an excerpt.
- When the article naturally touches one of the related topics, reference it once as [[Topic Name]] using its exact name.
- Open with a short introductory paragraph that summarizes the topic before any headings.
- Where excerpts disagree, state both positions with their citations.

# Output Formatting
Return JSON with the following structure:
{
  "article": string    // The full markdown article with inline [i] citations
}
Output must be valid JSON only (no commentary, no extra text).
`

const ArticleNoSourcesPrompt = `
# Task Context
You are a technical writer producing a short encyclopedic article about a single topic. No source material could be retrieved for this topic, so you must write from general knowledge alone.

# Background Data
- **Topic:** "%s"
- **Overall subject:** "%s"
- **Related topics in this graph:** %s

# Detailed Task Description & Rules
- Write a brief, factual overview of the topic in markdown.
- Do not include citations of any kind.
- Do not fabricate specific figures, dates, or quotations.
- When the article naturally touches one of the related topics, reference it once as [[Topic Name]] using its exact name.
- Open with a short introductory paragraph before any headings.

# Output Formatting
Return JSON with the following structure:
{
  "article": string    // The markdown article, without citations
}
Output must be valid JSON only (no commentary, no extra text).
`

const RelationshipPrompt = `
# Task Context
You are tasked with extracting the directional relationships between the topics of a knowledge graph. You will be given every topic together with a summary of its article.

# Background Data
%s

# Detailed Task Description & Rules
- Consider every ordered pair of topics and decide whether a meaningful relationship exists from the first to the second.
- For each relationship, extract:
  - **source:** the index of the source topic as listed above.
  - **target:** the index of the target topic as listed above.
  - **label:** a short verb phrase describing the relationship (e.g. "enables", "is a prerequisite of", "competes with").
  - **weight:** a numeric score in (0.0, 1.0] indicating the strength of the relationship (higher = stronger).
- A topic must never relate to itself.
- Only include relationships that are clearly supported by the summaries.
- If no relationships exist, return an empty array.

# Output Formatting
Return JSON with the following structure:
{
  "relationships": [
    {
      "source": number,
      "target": number,
      "label": string,
      "weight": number
    }
  ]
}
Output must be valid JSON only (no commentary, no extra text).
`
