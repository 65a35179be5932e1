package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSONArray = errors.New("no JSON array in response")

// ParseRelatedSearches extracts a JSON array of {"query": "..."} objects from model output.
// Code fences and prose around the array are tolerated; bare strings are accepted as queries.
func ParseRelatedSearches(content string) ([]RelatedSearch, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, errNoJSONArray
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(content[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("decode related searches: %w", err)
	}

	related := make([]RelatedSearch, 0, len(items))
	for i, item := range items {
		var obj struct {
			Query *string `json:"query"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Query != nil {
			if q := strings.TrimSpace(*obj.Query); q != "" {
				related = append(related, RelatedSearch{Query: q})
			}
			continue
		}
		var bare string
		if err := json.Unmarshal(item, &bare); err == nil {
			if q := strings.TrimSpace(bare); q != "" {
				related = append(related, RelatedSearch{Query: q})
			}
			continue
		}
		return nil, fmt.Errorf("related search %d is not an object with a query field", i)
	}
	return related, nil
}
