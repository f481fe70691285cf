package session

import (
	"sync"

	"github.com/firewatch/fd-go/model"
)

// State is the session-scoped shared state written by the alerter goroutine
// and read by the presentation layer: an append-only alert history and a
// one-shot "alert just fired" signal.
type State struct {
	mu sync.RWMutex

	history []model.AlertEvent
	fired   bool
}

func NewState() *State {
	return &State{}
}

func (s *State) AppendAlert(event model.AlertEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, event)
}

// Alerts returns a copy of the alert history in append order.
func (s *State) Alerts() []model.AlertEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AlertEvent, len(s.history))
	copy(out, s.history)
	return out
}

func (s *State) AlertCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// MarkAlertFired raises the one-shot signal consumed by the presentation
// layer to trigger its audible cue.
func (s *State) MarkAlertFired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fired = true
}

// ConsumeAlertSignal reports whether an alert fired since the last call and
// clears the signal.
func (s *State) ConsumeAlertSignal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fired := s.fired
	s.fired = false
	return fired
}
