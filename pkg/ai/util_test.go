package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type topic struct {
		Name   string `json:"name"`
		Reason string `json:"reason,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  topic
	}{
		{
			name:  "valid json object",
			input: `{"name":"Photosynthesis"}`,
			want:  topic{Name: "Photosynthesis"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{name: 'Photosynthesis'}`,
			want:  topic{Name: "Photosynthesis"},
		},
		{
			name:  "trailing comma",
			input: `{"name":"Photosynthesis",}`,
			want:  topic{Name: "Photosynthesis"},
		},
		{
			name:  "missing endbracket",
			input: `{"name":"Photosynthesis`,
			want:  topic{Name: "Photosynthesis"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{name: 'Photosynthesis'}"`,
			want:  topic{Name: "Photosynthesis"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"name\": \"Photosynthesis\"\n}\n",
			want:  topic{Name: "Photosynthesis"},
		},
		{
			name:  "duplicate leading brace no newlines",
			input: `{ { "name": "Photosynthesis" }`,
			want:  topic{Name: "Photosynthesis"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got topic
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Name != tc.want.Name || got.Reason != tc.want.Reason {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type topic struct {
		Name string `json:"name"`
	}

	input := `[{name:'A'},{name:'B',}]`
	var got []topic
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "B" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two topics A,B", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type topic struct {
		Name string `json:"name"`
	}

	var got topic
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_NestedPlan(t *testing.T) {
	type plan struct {
		KnowledgeGraphName string   `json:"knowledge_graph_name"`
		Subtopics          []string `json:"subtopics"`
	}

	tests := []struct {
		name  string
		input string
		want  plan
	}{
		{
			name:  "plain stringified",
			input: `"{ \"knowledge_graph_name\": \"Renewable Energy\", \"subtopics\": [ \"Solar Power\", \"Wind Power\" ] }"`,
			want:  plan{KnowledgeGraphName: "Renewable Energy", Subtopics: []string{"Solar Power", "Wind Power"}},
		},
		{
			name:  "stringified with newlines",
			input: `"{\n  \"knowledge_graph_name\": \"Renewable Energy\",\n  \"subtopics\": [\"Solar Power\", \"Wind Power\", \"Grid Storage (e.g., pumped hydro)\"]\n  }\n"`,
			want:  plan{KnowledgeGraphName: "Renewable Energy", Subtopics: []string{"Solar Power", "Wind Power", "Grid Storage (e.g., pumped hydro)"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got plan
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.KnowledgeGraphName != tc.want.KnowledgeGraphName {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
			if len(got.Subtopics) != len(tc.want.Subtopics) {
				t.Fatalf("UnmarshalFlexible() subtopics length got = %d, want %d", len(got.Subtopics), len(tc.want.Subtopics))
			}
			for i := range got.Subtopics {
				if got.Subtopics[i] != tc.want.Subtopics[i] {
					t.Fatalf("UnmarshalFlexible() subtopics[%d] = %q, want %q", i, got.Subtopics[i], tc.want.Subtopics[i])
				}
			}
		})
	}
}
