package search

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Search(ctx context.Context, query string) (Response, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(Response), args.Error(1)
}
