package provider

import (
	"context"

	"github.com/stretchr/testify/mock"

	"deep-search/internal/search"
)

// MockAdapter is a mock implementation of Adapter using testify/mock.
type MockAdapter struct {
	mock.Mock
	ProviderName Name
}

func (m *MockAdapter) Name() Name {
	if m.ProviderName == "" {
		return OpenAI
	}
	return m.ProviderName
}

func (m *MockAdapter) Refine(ctx context.Context, query string) (RefinedQuery, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(RefinedQuery), args.Error(1)
}

func (m *MockAdapter) Summarize(ctx context.Context, query string, results []search.Result) (Summary, error) {
	args := m.Called(ctx, query, results)
	return args.Get(0).(Summary), args.Error(1)
}
