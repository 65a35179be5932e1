package inflight

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGuard is a mock implementation of Guard using testify/mock.
type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Acquire(ctx context.Context, session, key string) (Token, error) {
	args := m.Called(ctx, session, key)
	return args.Get(0).(Token), args.Error(1)
}

func (m *MockGuard) IsCurrent(ctx context.Context, tok Token) (bool, error) {
	args := m.Called(ctx, tok)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuard) Release(ctx context.Context, tok Token) error {
	args := m.Called(ctx, tok)
	return args.Error(0)
}

func (m *MockGuard) Close() error {
	args := m.Called()
	return args.Error(0)
}
