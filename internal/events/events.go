// Package events publishes pipeline run outcomes for downstream consumers.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deep-search/internal/retry"
)

// Outcome is the terminal state of a run.
type Outcome string

const (
	OutcomeDone       Outcome = "done"
	OutcomeErrored    Outcome = "errored"
	OutcomeSuperseded Outcome = "superseded"
)

// Event describes one finished pipeline run.
type Event struct {
	RunID    uuid.UUID     `json:"run_id"`
	Query    string        `json:"query"`
	Provider string        `json:"provider"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Sources  int           `json:"sources"`
	Degraded []string      `json:"degraded,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	At       time.Time     `json:"at"`
}

// Subject is the NATS subject an event is published on.
func (e Event) Subject() string {
	return "deepsearch.runs." + string(e.Outcome)
}

// Publisher emits run events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// PublishWithRetry attempts to publish with retries and exponential backoff.
// Failures are logged and never returned; events must not affect a run's result.
func PublishWithRetry(ctx context.Context, log *slog.Logger, p Publisher, ev Event, attempts int, base time.Duration) {
	err := retry.Do(ctx, attempts, base, func(ctx context.Context) error {
		return p.Publish(ctx, ev)
	})
	if err != nil && log != nil {
		log.Warn("failed to publish run event", "run_id", ev.RunID, "outcome", ev.Outcome, "err", err)
	}
}
