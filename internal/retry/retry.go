// Package retry builds the failsafe-go retry policies used for best-effort delivery.
package retry

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const (
	defaultBaseDelay = 100 * time.Millisecond
	maxDelayFactor   = 32
)

// Policy makes at most attempts calls, doubling the delay from base up to
// 32x base with 10% jitter. Once exhausted it returns the last failure.
func Policy(attempts int, base time.Duration) retrypolicy.RetryPolicy[any] {
	if attempts <= 0 {
		attempts = 1
	}
	if base <= 0 {
		base = defaultBaseDelay
	}
	return retrypolicy.NewBuilder[any]().
		WithMaxAttempts(attempts).
		WithBackoff(base, base*maxDelayFactor).
		WithJitterFactor(0.1).
		ReturnLastFailure().
		Build()
}

// Do runs fn under Policy(attempts, base). Waiting between attempts stops when ctx ends.
func Do(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	return failsafe.With(Policy(attempts, base)).
		WithContext(ctx).
		RunWithExecution(func(exec failsafe.Execution[any]) error {
			return fn(exec.Context())
		})
}
