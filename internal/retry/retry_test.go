package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	down := errors.New("down")
	calls := 0
	err := Do(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return down
	})
	if !errors.Is(err, down) {
		t.Fatalf("expected last error 'down', got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, 5, time.Hour, func(context.Context) error {
			calls++
			cancel()
			return errors.New("down")
		})
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do kept waiting after the context was canceled")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoPassesContextToAttempts(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "run-1")
	var got any
	err := Do(ctx, 1, time.Millisecond, func(ctx context.Context) error {
		got = ctx.Value(key{})
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got != "run-1" {
		t.Errorf("expected attempt context to carry the caller's values, got %v", got)
	}
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), 0, time.Millisecond, func(context.Context) error {
		calls++
		return errors.New("down")
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}
