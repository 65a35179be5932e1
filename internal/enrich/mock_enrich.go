package enrich

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of Fetcher using testify/mock.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchImages(ctx context.Context, urls []string) []PageImages {
	args := m.Called(ctx, urls)
	return args.Get(0).([]PageImages)
}
