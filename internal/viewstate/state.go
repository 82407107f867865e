// Package viewstate holds the per-screen state the UI renders.
//
// Each controller owns a State: a snapshot of {IsLoading, Data, Err} that
// observers can read or subscribe to. Actions run in the background under the
// controller's lifetime; Close cancels them and waits for them to finish.
package viewstate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rs/xid"
)

// Snapshot is what a screen renders at one point in time.
type Snapshot[T any] struct {
	IsLoading bool
	Data      T
	Err       error
}

// State is an observable Snapshot.
type State[T any] struct {
	mu   sync.Mutex
	snap Snapshot[T]
	gen  uint64
	subs map[xid.ID]func(Snapshot[T])
}

// NewState returns a State holding initial, not loading and without error.
func NewState[T any](initial T) *State[T] {
	return &State[T]{
		snap: Snapshot[T]{Data: initial},
		subs: make(map[xid.ID]func(Snapshot[T])),
	}
}

// Snapshot returns the current value.
func (s *State[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe calls fn with the current value and after every change.
// Callbacks run under the state lock and must not update the state.
func (s *State[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := xid.New()
	s.subs[id] = fn
	fn(s.snap)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Update applies fn to the snapshot atomically and notifies subscribers.
func (s *State[T]) Update(fn func(*Snapshot[T])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
	s.notifyLocked()
}

// begin marks a load as started: IsLoading is set and any previous error is
// cleared in the same update. The returned generation identifies the load.
func (s *State[T]) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.snap.IsLoading = true
	s.snap.Err = nil
	s.notifyLocked()
	return s.gen
}

// finish applies the result of load gen unless a newer load has started.
func (s *State[T]) finish(gen uint64, fn func(*Snapshot[T])) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.snap.IsLoading = false
	fn(&s.snap)
	s.notifyLocked()
	return true
}

// reset replaces the snapshot with data and abandons the load in flight, if
// any: its finish no longer matches the generation and is dropped.
func (s *State[T]) reset(data T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.snap = Snapshot[T]{Data: data}
	s.notifyLocked()
}

func (s *State[T]) notifyLocked() {
	for _, fn := range s.subs {
		fn(s.snap)
	}
}

// lifetime scopes a controller's background work.
type lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	logger *slog.Logger
}

func newLifetime(parent context.Context, logger *slog.Logger) *lifetime {
	ctx, cancel := context.WithCancel(parent)
	return &lifetime{ctx: ctx, cancel: cancel, logger: logger}
}

// launch runs fn in the background. It is a no-op once the controller is closed.
func (l *lifetime) launch(fn func(ctx context.Context)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx.Err() != nil {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn(l.ctx)
	}()
}

// bind derives a context from ctx that is also cancelled when the controller
// closes. Calls made with it are not waited for by Close.
func (l *lifetime) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(l.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Close cancels outstanding actions and waits for them to return.
func (l *lifetime) Close() {
	l.mu.Lock()
	l.cancel()
	l.mu.Unlock()
	l.wg.Wait()
}
