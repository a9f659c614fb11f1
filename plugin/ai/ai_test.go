package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTagLine(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "Plain list",
			raw:  "algebra, equations, factoring",
			want: []string{"algebra", "equations", "factoring"},
		},
		{
			name: "Hashes and quotes stripped",
			raw:  `#algebra, "equations"`,
			want: []string{"algebra", "equations"},
		},
		{
			name: "Mixed case and duplicates",
			raw:  "Algebra, algebra, ALGEBRA, geometry",
			want: []string{"algebra", "geometry"},
		},
		{
			name: "Capped at five",
			raw:  "a1, a2, a3, a4, a5, a6, a7",
			want: []string{"a1", "a2", "a3", "a4", "a5"},
		},
		{
			name: "Empty reply",
			raw:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTagLine(tt.raw))
		})
	}
}

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *Extraction
	}{
		{
			name: "Plain JSON",
			raw:  `{"content": "Solve x^2 = 4", "answer": "x = ±2", "subject": "math"}`,
			want: &Extraction{Content: "Solve x^2 = 4", Answer: "x = ±2", Subject: "math"},
		},
		{
			name: "Fenced JSON",
			raw:  "```json\n{\"content\": \"What is 2+2?\", \"answer\": \"4\", \"subject\": \"\"}\n```",
			want: &Extraction{Content: "What is 2+2?", Answer: "4"},
		},
		{
			name: "Malformed reply falls back to raw text",
			raw:  "Solve for x: x + 1 = 3",
			want: &Extraction{Content: "Solve for x: x + 1 = 3"},
		},
		{
			name: "JSON without content falls back",
			raw:  `{"answer": "4"}`,
			want: &Extraction{Content: `{"answer": "4"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseExtraction(tt.raw))
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	client, err := NewClient(Config{APIKey: "sk-test"})
	assert.NoError(t, err)
	assert.NotNil(t, client)
}
