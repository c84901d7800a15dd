package sources

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

// stubTransport serves a canned JSON body and records the request.
type stubTransport struct {
	body string
	req  *http.Request
}

func (t *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.req = req
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(t.body)),
	}, nil
}

func TestAcademicFetch_RecordsCitationCount(t *testing.T) {
	transport := &stubTransport{body: `{
		"data": [{
			"paperId": "p1",
			"title": "Perovskite Solar Cells",
			"abstract": "A short abstract.",
			"year": 2021,
			"venue": "Journal of Materials",
			"url": "https://example.org/p1",
			"authors": [{"name": "A. Author"}],
			"citationCount": 42
		}]
	}`}

	connector := NewAcademicConnector("")
	connector.httpClient = &http.Client{Transport: transport}

	docs, err := connector.Fetch(context.Background(), "perovskite", 5)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("docs = %d, want 1", len(docs))
	}

	if got := docs[0].Metadata["citation_count"]; got != 42 {
		t.Fatalf("citation_count = %v, want 42", got)
	}
	if docs[0].Source != KindJournal {
		t.Fatalf("source = %s, want %s", docs[0].Source, KindJournal)
	}

	fields := transport.req.URL.Query().Get("fields")
	if !strings.Contains(fields, "citationCount") {
		t.Fatalf("fields %q does not request citationCount", fields)
	}
}
