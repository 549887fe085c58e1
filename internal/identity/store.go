package identity

import (
	"context"
	"fmt"
	"sync"

	slogctx "github.com/veqryn/slog-context"
)

// Listener is called after every dispatch with the action and the state before and after it.
type Listener func(ctx context.Context, a Action, prev, next State)

// Store is the single authoritative identity of a client.
// Only the login, signup, logout and validation flows dispatch to it.
type Store struct {
	mu        sync.Mutex
	state     State
	epoch     uint64
	listeners map[int]Listener
	nextID    int
}

func NewStore() *Store {
	return &Store{
		state:     InitialState(),
		listeners: make(map[int]Listener),
	}
}

func (s *Store) Dispatch(ctx context.Context, a Action) State {
	s.mu.Lock()
	prev := s.state
	s.state = Reduce(prev, a)
	if bumpsEpoch(a) {
		s.epoch++
	}
	next := s.state.clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	slogctx.Debug(ctx, "Identity action dispatched", "action", fmt.Sprintf("%T", a), "status", next.Status)

	for _, l := range listeners {
		l(ctx, a, prev.clone(), next.clone())
	}

	return next
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.clone()
}

// Epoch changes on every login and logout.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.epoch
}

func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}
