// Package flow tracks the state of one generation flow: a user submits an
// input, a request runs, and the latest submission's outcome is shown.
package flow

import (
	"context"
	"sdlcpilot/internal/logging"
	"sync"
)

// State is the observable state of a flow.
type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Succeeded or Failed.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

// Snapshot is a consistent view of a flow.
type Snapshot[T any] struct {
	State State
	// Seq is the submission the state belongs to; 0 before the first submit.
	Seq   uint64
	Value T      // set when Succeeded
	Err   string // set when Failed
	Cause error  // the error behind Err
}

// Option configures a Flow.
type Option[T any] func(*Flow[T])

// WithObserver registers fn to be called after every state change. Calls are
// serialized and never report a state older than one already reported.
func WithObserver[T any](fn func(Snapshot[T])) Option[T] {
	return func(f *Flow[T]) {
		f.observers = append(f.observers, fn)
	}
}

// WithName labels the flow in logs.
func WithName[T any](name string) Option[T] {
	return func(f *Flow[T]) {
		f.name = name
	}
}

// Flow is a generation flow state machine. Submissions are numbered; a
// result is committed only if its submission is still the latest one issued,
// so a slow superseded request can never overwrite a newer outcome.
// Superseded requests are not cancelled, their results are dropped on arrival.
type Flow[T any] struct {
	name      string
	observers []func(Snapshot[T])

	mu       sync.Mutex
	snap     Snapshot[T]
	issued   uint64
	version  uint64 // bumped on every state change
	settled  chan struct{}
	isClosed bool

	notifyMu     sync.Mutex
	lastNotified uint64

	inflight sync.WaitGroup
}

// New creates a flow in the Idle state.
func New[T any](opts ...Option[T]) *Flow[T] {
	f := &Flow[T]{
		name:     "flow",
		settled:  make(chan struct{}),
		isClosed: true,
	}
	close(f.settled)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit starts a new submission and returns its sequence number. validate
// runs synchronously; if it fails the flow moves straight to Failed and run is
// never called. Otherwise the flow enters Submitting and run executes on its
// own goroutine with ctx.
func (f *Flow[T]) Submit(ctx context.Context, validate func() error, run func(context.Context) (T, error)) uint64 {
	var invalid error
	if validate != nil {
		invalid = validate()
	}

	f.mu.Lock()
	f.issued++
	seq := f.issued
	f.releaseWaitersLocked()

	if invalid != nil {
		f.snap = Snapshot[T]{State: Failed, Seq: seq, Err: invalid.Error(), Cause: invalid}
		f.closeSettledLocked()
		snap, version := f.commitLocked()
		f.mu.Unlock()

		logging.FlowDebug("%s: submission %d rejected: %v", f.name, seq, invalid)
		f.notify(snap, version)
		return seq
	}

	f.snap = Snapshot[T]{State: Submitting, Seq: seq}
	snap, version := f.commitLocked()
	f.inflight.Add(1)
	f.mu.Unlock()

	logging.FlowDebug("%s: submission %d started", f.name, seq)
	f.notify(snap, version)

	go func() {
		defer f.inflight.Done()
		v, err := run(ctx)
		f.complete(seq, v, err)
	}()
	return seq
}

func (f *Flow[T]) complete(seq uint64, v T, err error) {
	f.mu.Lock()
	if seq != f.issued {
		latest := f.issued
		f.mu.Unlock()
		logging.FlowDebug("%s: discarding stale result of submission %d (latest %d)", f.name, seq, latest)
		return
	}

	if err != nil {
		f.snap = Snapshot[T]{State: Failed, Seq: seq, Err: err.Error(), Cause: err}
		logging.Flow("%s: submission %d failed: %v", f.name, seq, err)
	} else {
		f.snap = Snapshot[T]{State: Succeeded, Seq: seq, Value: v}
		logging.FlowDebug("%s: submission %d succeeded", f.name, seq)
	}
	f.closeSettledLocked()
	snap, version := f.commitLocked()
	f.mu.Unlock()

	f.notify(snap, version)
}

// Edit signals that the input changed. After a terminal state the flow
// returns to Idle and Edit reports true; otherwise nothing changes.
func (f *Flow[T]) Edit() bool {
	f.mu.Lock()
	if !f.snap.State.Terminal() {
		f.mu.Unlock()
		return false
	}
	f.snap = Snapshot[T]{State: Idle, Seq: f.snap.Seq}
	snap, version := f.commitLocked()
	f.mu.Unlock()

	f.notify(snap, version)
	return true
}

// Snapshot returns the current state.
func (f *Flow[T]) Snapshot() Snapshot[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

// Wait blocks until the latest submission settles (or none is running) and
// returns the resulting snapshot.
func (f *Flow[T]) Wait(ctx context.Context) (Snapshot[T], error) {
	for {
		f.mu.Lock()
		if f.snap.State != Submitting {
			snap := f.snap
			f.mu.Unlock()
			return snap, nil
		}
		ch := f.settled
		f.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return f.Snapshot(), ctx.Err()
		}
	}
}

// Drain blocks until every submission's run function has returned,
// including superseded ones whose results will be discarded.
func (f *Flow[T]) Drain() {
	f.inflight.Wait()
}

// releaseWaitersLocked wakes Wait callers parked on a superseded submission
// and arms a fresh channel for the new one.
func (f *Flow[T]) releaseWaitersLocked() {
	f.closeSettledLocked()
	f.settled = make(chan struct{})
	f.isClosed = false
}

func (f *Flow[T]) closeSettledLocked() {
	if !f.isClosed {
		close(f.settled)
		f.isClosed = true
	}
}

func (f *Flow[T]) commitLocked() (Snapshot[T], uint64) {
	f.version++
	return f.snap, f.version
}

func (f *Flow[T]) notify(snap Snapshot[T], version uint64) {
	if len(f.observers) == 0 {
		return
	}
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()
	if version <= f.lastNotified {
		return
	}
	f.lastNotified = version
	for _, fn := range f.observers {
		fn(snap)
	}
}
