package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/respjson"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string
	Messages    []chatMessage
	Temperature *float64
	MaxTokens   int
}

type chatReply struct {
	Content   string
	Reasoning string
}

// completer sends one chat completion. HTTP failures surface as *openai.Error.
type completer interface {
	complete(ctx context.Context, req chatRequest) (chatReply, error)
}

var errNoChoices = errors.New("no choices returned")

func statusCodeOf(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func system(content string) chatMessage { return chatMessage{Role: "system", Content: content} }
func user(content string) chatMessage   { return chatMessage{Role: "user", Content: content} }

func temperature(t float64) *float64 { return &t }

// sdkCompleter uses the official OpenAI SDK, optionally against a compatible base URL.
type sdkCompleter struct {
	client *openai.Client
	// completionTokens sends max_completion_tokens instead of the legacy max_tokens.
	completionTokens bool
}

func newSDKCompleter(apiKey, baseURL string, maxRetries int, completionTokens bool) *sdkCompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	cli := openai.NewClient(opts...)
	return &sdkCompleter{client: &cli, completionTokens: completionTokens}
}

func (c *sdkCompleter) complete(ctx context.Context, req chatRequest) (chatReply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: buildMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		if c.completionTokens {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
		} else {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return chatReply{}, err
	}
	if len(resp.Choices) == 0 {
		return chatReply{}, errNoChoices
	}
	msg := resp.Choices[0].Message
	return chatReply{Content: msg.Content, Reasoning: extraString(msg.JSON.ExtraFields, "reasoning_content")}, nil
}

// extraString decodes a non-standard string field the SDK kept as raw JSON,
// e.g. DeepSeek's reasoning_content.
func extraString(fields map[string]respjson.Field, key string) string {
	f, ok := fields[key]
	if !ok {
		return ""
	}
	raw := f.Raw()
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return ""
	}
	return s
}

func buildMessages(messages []chatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(m.Content),
					},
				},
			})
		default:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(m.Content),
					},
				},
			})
		}
	}
	return out
}
