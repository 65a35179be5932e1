package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelatedSearches(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []RelatedSearch
		wantErr bool
	}{
		{
			name:    "bare array",
			content: `[{"query": "go generics"}, {"query": "go iterators"}]`,
			want:    []RelatedSearch{{Query: "go generics"}, {Query: "go iterators"}},
		},
		{
			name:    "code fenced",
			content: "```json\n[{\"query\": \"go 1.25 release notes\"}]\n```",
			want:    []RelatedSearch{{Query: "go 1.25 release notes"}},
		},
		{
			name:    "prose around array",
			content: "Sure! Here you go:\n[{\"query\": \"a\"}]\nHope that helps.",
			want:    []RelatedSearch{{Query: "a"}},
		},
		{
			name:    "strings accepted and blanks dropped",
			content: `["plain", {"query": "  "}, {"query": "obj"}]`,
			want:    []RelatedSearch{{Query: "plain"}, {Query: "obj"}},
		},
		{
			name:    "empty array",
			content: `[]`,
			want:    []RelatedSearch{},
		},
		{name: "no array", content: "I cannot help with that.", wantErr: true},
		{name: "broken json", content: `[{"query": "a"`, wantErr: true},
		{name: "object without query", content: `[{"title": "a"}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRelatedSearches(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
