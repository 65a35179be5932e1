package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deep-search/internal/pipeline"
	"deep-search/internal/provider"
	"deep-search/internal/search"
)

func sampleResult() pipeline.Result {
	return pipeline.Result{
		ID:           "run-1",
		Query:        "rust 2025",
		RefinedQuery: "Rust language news January 2025",
		Provider:     "deepseek",
		Answer:       "Rust 1.84 is out [1](https://blog.rust-lang.org/1.84).",
		Sources: []search.Result{
			{Title: "Rust 1.84 released", URL: "https://blog.rust-lang.org/1.84"},
		},
		RelatedSearches: []provider.RelatedSearch{{Query: "rust 2024 edition"}},
		Images:          []search.Image{},
		Degraded:        []string{},
	}
}

func execute(t *testing.T, run runFunc, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(run)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAskBuildsRequest(t *testing.T) {
	var got pipeline.Request
	run := func(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
		got = req
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return sampleResult(), nil
	}

	_, err := execute(t, run, "--provider", "DeepSeek", "--no-images", "rust", "2025")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Request{Query: "rust 2025", Provider: provider.DeepSeek, Session: cliSession, SkipImages: true}, got)
}

func TestAskTextOutput(t *testing.T) {
	out, err := execute(t, func(context.Context, pipeline.Request) (pipeline.Result, error) {
		return sampleResult(), nil
	}, "rust 2025")
	require.NoError(t, err)

	assert.Contains(t, out, "Searched for: Rust language news January 2025")
	assert.Contains(t, out, "Rust 1.84 is out [1](https://blog.rust-lang.org/1.84).")
	assert.Contains(t, out, " [1] Rust 1.84 released\n     https://blog.rust-lang.org/1.84")
	assert.Contains(t, out, " - rust 2024 edition")
	assert.NotContains(t, out, "degraded")
}

func TestAskJSONOutput(t *testing.T) {
	out, err := execute(t, func(context.Context, pipeline.Request) (pipeline.Result, error) {
		return sampleResult(), nil
	}, "--json", "rust")
	require.NoError(t, err)

	var res pipeline.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, sampleResult().Answer, res.Answer)
}

func TestAskErrors(t *testing.T) {
	boom := errors.New("Invalid Tavily API key. Please check your SEARCH_API_KEY.")
	failing := func(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
		msg := boom.Error()
		return pipeline.Result{Query: req.Query, Error: &msg}, boom
	}

	t.Run("run failure", func(t *testing.T) {
		out, err := execute(t, failing, "rust")
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, out)
	})

	t.Run("json still prints the failed result", func(t *testing.T) {
		out, err := execute(t, failing, "--json", "rust")
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, out, `"error": "Invalid Tavily API key. Please check your SEARCH_API_KEY."`)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := execute(t, failing, "--provider", "mistral", "rust")
		assert.ErrorIs(t, err, provider.ErrUnknownProvider)
	})

	t.Run("missing query", func(t *testing.T) {
		_, err := execute(t, failing)
		assert.Error(t, err)
	})
}
