package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a pipeline stage.
type State string

const (
	StateIdle        State = "idle"
	StateRefining    State = "refining"
	StateSearching   State = "searching"
	StateSummarizing State = "summarizing"
	StateEnriching   State = "enriching"
	StateAssembling  State = "assembling"
	StateDone        State = "done"
	StateErrored     State = "errored"
)

// Transition is reported to an Observer whenever a run changes stage.
// Enriching runs alongside Summarizing, so it is reported as a branch from Searching.
type Transition struct {
	RunID uuid.UUID
	From  State
	To    State
	At    time.Time
}

// Observer receives transitions. It is called synchronously and must not block.
type Observer func(Transition)

// Recorder receives pipeline measurements. *metrics.Metrics implements it.
type Recorder interface {
	IncRun(provider, outcome string)
	ObserveStage(stage string, d time.Duration)
	IncDegraded(stage string)
}

type nopRecorder struct{}

func (nopRecorder) IncRun(string, string)              {}
func (nopRecorder) ObserveStage(string, time.Duration) {}
func (nopRecorder) IncDegraded(string)                 {}

// tracker moves one run through its states and times each stage.
type tracker struct {
	mu       sync.Mutex
	runID    uuid.UUID
	state    State
	entered  time.Time
	observer Observer
	recorder Recorder
}

func newTracker(runID uuid.UUID, observer Observer, recorder Recorder) *tracker {
	return &tracker{
		runID:    runID,
		state:    StateIdle,
		entered:  time.Now(),
		observer: observer,
		recorder: recorder,
	}
}

func (t *tracker) enter(to State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	from := t.state
	if from != StateIdle {
		t.recorder.ObserveStage(string(from), now.Sub(t.entered))
	}
	t.state = to
	t.entered = now
	t.notify(Transition{RunID: t.runID, From: from, To: to, At: now})
}

// branch reports a concurrent stage without changing the main state.
// The returned func records the branch duration when the stage ends.
func (t *tracker) branch(from, to State) func() {
	start := time.Now()
	t.mu.Lock()
	t.notify(Transition{RunID: t.runID, From: from, To: to, At: start})
	t.mu.Unlock()
	return func() {
		t.recorder.ObserveStage(string(to), time.Since(start))
	}
}

func (t *tracker) current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *tracker) notify(tr Transition) {
	if t.observer != nil {
		t.observer(tr)
	}
}
