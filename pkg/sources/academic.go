package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/meridian-kg/backend/internal/util"
)

const academicSearchURL = "https://api.semanticscholar.org/graph/v1/paper/search"

// AcademicConnector searches scholarly literature via the Semantic Scholar
// Graph API. Papers published in a journal venue are reported under
// KindJournal, everything else under KindAcademic.
type AcademicConnector struct {
	apiKey string

	httpClient *http.Client
}

// NewAcademicConnector creates an academic connector. The API key is
// optional, Semantic Scholar serves unauthenticated requests at a lower
// rate limit.
func NewAcademicConnector(apiKey string) *AcademicConnector {
	return &AcademicConnector{
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
}

func (c *AcademicConnector) Kind() Kind {
	return KindAcademic
}

type paperSearchResponse struct {
	Data []struct {
		PaperID  string `json:"paperId"`
		Title    string `json:"title"`
		Abstract string `json:"abstract"`
		Year     int    `json:"year"`
		Venue    string `json:"venue"`
		URL      string `json:"url"`
		Authors  []struct {
			Name string `json:"name"`
		} `json:"authors"`
		CitationCount int `json:"citationCount"`
		FieldsOfStudy []string `json:"fieldsOfStudy"`
		TLDR          *struct {
			Text string `json:"text"`
		} `json:"tldr"`
	} `json:"data"`
}

// journalVenue reports whether a venue string names a journal rather than
// a conference or preprint server.
func journalVenue(venue string) bool {
	v := strings.ToLower(venue)
	return strings.Contains(v, "journal") ||
		strings.Contains(v, "transactions") ||
		strings.Contains(v, "letters") ||
		strings.Contains(v, "review")
}

// Fetch searches papers about the topic. Each paper yields one summary
// document built from its title, abstract, and TLDR, plus content chunks
// when the abstract is long enough to split.
func (c *AcademicConnector) Fetch(ctx context.Context, topic string, maxResults int) ([]Document, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	query := url.Values{
		"query":  {topic},
		"limit":  {fmt.Sprint(maxResults)},
		"fields": {"title,abstract,year,venue,authors,citationCount,fieldsOfStudy,url,tldr"},
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["x-api-key"] = c.apiKey
	}

	var response paperSearchResponse
	err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return getJSON(ctx, c.httpClient, academicSearchURL+"?"+query.Encode(), headers, &response)
	})
	if err != nil {
		return nil, &FetchError{Source: KindAcademic, Err: err}
	}

	var out []Document
	for _, paper := range response.Data {
		kind := KindAcademic
		if journalVenue(paper.Venue) {
			kind = KindJournal
		}

		authors := make([]string, 0, len(paper.Authors))
		for _, a := range paper.Authors {
			authors = append(authors, a.Name)
		}

		base := Document{
			Source: kind,
			Title:  paper.Title,
			URL:    paper.URL,
			Author: strings.Join(authors, ", "),
			Metadata: map[string]any{
				"paper_id":        paper.PaperID,
				"year":            paper.Year,
				"venue":           paper.Venue,
				"citation_count":  paper.CitationCount,
				"fields_of_study": paper.FieldsOfStudy,
				"source_database": "semantic_scholar",
			},
		}
		if paper.Year > 0 {
			base.PublishedAt = fmt.Sprint(paper.Year)
		}

		var summaryParts []string
		summaryParts = append(summaryParts, "Title: "+paper.Title)
		if paper.Abstract != "" {
			summaryParts = append(summaryParts, "Abstract: "+paper.Abstract)
		}
		if paper.TLDR != nil && paper.TLDR.Text != "" {
			summaryParts = append(summaryParts, "TL;DR: "+paper.TLDR.Text)
		}

		summary := base
		summary.ChunkType = ChunkSummary
		summary.Content = strings.Join(summaryParts, "\n\n")
		out = append(out, summary)

		if len([]rune(paper.Abstract)) > defaultChunkSize {
			out = append(out, contentDocuments(base, paper.Abstract)...)
		}
	}
	return out, nil
}
