package provider

import (
	"encoding/json"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtraString(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"present", `{"role":"assistant","content":"a","reasoning_content":"weigh [1] over [2]"}`, "weigh [1] over [2]"},
		{"missing", `{"role":"assistant","content":"a"}`, ""},
		{"null", `{"role":"assistant","content":"a","reasoning_content":null}`, ""},
		{"not a string", `{"role":"assistant","content":"a","reasoning_content":42}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg openai.ChatCompletionMessage
			require.NoError(t, json.Unmarshal([]byte(tt.message), &msg))
			assert.Equal(t, tt.want, extraString(msg.JSON.ExtraFields, "reasoning_content"))
		})
	}
}
