package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

var fixedNow = func() time.Time { return time.Date(2025, time.January, 30, 9, 0, 0, 0, time.UTC) }

type capturedRequest struct {
	Path                string        `json:"-"`
	Auth                string        `json:"-"`
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	Temperature         *float64      `json:"temperature"`
	MaxTokens           int           `json:"max_tokens"`
	MaxCompletionTokens int           `json:"max_completion_tokens"`
}

// isRelated reports whether the request is the related-searches follow-up.
func (r capturedRequest) isRelated() bool {
	return len(r.Messages) == 1 && strings.Contains(r.Messages[0].Content, "related search suggestions")
}

type chatServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []capturedRequest
}

func (s *chatServer) captured() []capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedRequest(nil), s.requests...)
}

// newChatServer fakes an OpenAI-compatible /chat/completions endpoint.
func newChatServer(t *testing.T, respond func(req capturedRequest) (int, string)) *chatServer {
	t.Helper()
	s := &chatServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req capturedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Path = r.URL.Path
		req.Auth = r.Header.Get("Authorization")
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		status, body := respond(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func chatBody(content, reasoning string) string {
	msg := map[string]any{"role": "assistant", "content": content}
	if reasoning != "" {
		msg["reasoning_content"] = reasoning
	}
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1738227600,
		"model":   "test-model",
		"choices": []map[string]any{{"index": 0, "finish_reason": "stop", "message": msg}},
	})
	return string(body)
}

func errorBody(message string) string {
	return fmt.Sprintf(`{"error":{"message":%q,"type":"invalid_request_error"}}`, message)
}
