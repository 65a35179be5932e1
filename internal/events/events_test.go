package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	bodies   [][]byte
	err      error
	drained  bool
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subj)
	c.bodies = append(c.bodies, data)
	return nil
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return nil
}

func TestNATSPublish(t *testing.T) {
	conn := &fakeConn{}
	p := newNATS(nil, conn)

	ev := Event{
		RunID:    uuid.New(),
		Query:    "go generics",
		Provider: "openai",
		Outcome:  OutcomeDone,
		Sources:  7,
		Duration: 1500 * time.Millisecond,
	}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "deepsearch.runs.done", conn.subjects[0])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(conn.bodies[0], &decoded))
	assert.Equal(t, ev.RunID.String(), decoded["run_id"])
	assert.Equal(t, "go generics", decoded["query"])
	assert.Equal(t, float64(7), decoded["sources"])
	assert.Equal(t, float64(1500*time.Millisecond), decoded["duration_ns"])
	assert.NotEmpty(t, decoded["at"])
	assert.NotContains(t, decoded, "error")

	require.NoError(t, p.Close())
	assert.True(t, conn.drained)
}

func TestNATSPublishValidation(t *testing.T) {
	p := newNATS(nil, &fakeConn{})
	assert.Error(t, p.Publish(context.Background(), Event{RunID: uuid.New()}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, Event{Outcome: OutcomeErrored}), context.Canceled)
}

func TestPublishWithRetry(t *testing.T) {
	ev := Event{RunID: uuid.New(), Outcome: OutcomeSuperseded}

	m := &MockPublisher{}
	m.On("Publish", mock.Anything, ev).Return(errors.New("nats: connection closed")).Once()
	m.On("Publish", mock.Anything, ev).Return(nil).Once()

	PublishWithRetry(context.Background(), nil, m, ev, 3, time.Millisecond)
	m.AssertExpectations(t)
	m.AssertNumberOfCalls(t, "Publish", 2)
}

func TestPublishWithRetryGivesUp(t *testing.T) {
	ev := Event{RunID: uuid.New(), Outcome: OutcomeErrored}

	m := &MockPublisher{}
	m.On("Publish", mock.Anything, ev).Return(errors.New("down"))

	PublishWithRetry(context.Background(), nil, m, ev, 3, time.Millisecond)
	m.AssertNumberOfCalls(t, "Publish", 3)
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher()
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
