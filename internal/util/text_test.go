package util

import "testing"

func TestSanitizePostgresText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain utf8",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "contains null byte",
			input: "hel\x00lo",
			want:  "hello",
		},
		{
			name:  "contains invalid utf8",
			input: string([]byte{'a', 0xff, 'b'}),
			want:  "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePostgresText(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected sanitized value: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPerDocumentBudget(t *testing.T) {
	tests := []struct {
		name  string
		total int
		count int
		want  int
	}{
		{name: "even split", total: 1000, count: 4, want: 250},
		{name: "zero count", total: 1000, count: 0, want: 1000},
		{name: "zero budget", total: 0, count: 3, want: 0},
		{name: "rounds down", total: 10, count: 3, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PerDocumentBudget(tt.total, tt.count)
			if got != tt.want {
				t.Fatalf("unexpected budget: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{
			name:  "short text untouched",
			input: "hello",
			limit: 10,
			want:  "hello",
		},
		{
			name:  "breaks on whitespace",
			input: "alpha beta gamma",
			limit: 12,
			want:  "alpha beta",
		},
		{
			name:  "hard cut without whitespace",
			input: "abcdefghij",
			limit: 4,
			want:  "abcd",
		},
		{
			name:  "zero limit",
			input: "anything",
			limit: 0,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.limit)
			if got != tt.want {
				t.Fatalf("unexpected truncation: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple", input: "Quantum Computing", want: "quantum-computing"},
		{name: "punctuation collapses", input: "AI & Ethics!", want: "ai-ethics"},
		{name: "trailing noise", input: "History of Rome...", want: "history-of-rome"},
		{name: "unicode letters kept", input: "Schrödinger Equation", want: "schrödinger-equation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slug(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected slug: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstParagraph(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single paragraph",
			input: "only one block",
			want:  "only one block",
		},
		{
			name:  "multiple paragraphs",
			input: "first part\n\nsecond part",
			want:  "first part",
		},
		{
			name:  "leading whitespace stripped",
			input: "\n\n  lead text\n\nrest",
			want:  "lead text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstParagraph(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected paragraph: got %q, want %q", got, tt.want)
			}
		})
	}
}
