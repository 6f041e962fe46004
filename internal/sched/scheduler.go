// Package sched runs delayed one-shot callbacks keyed by an id. Scheduling
// under an id that already has a pending task replaces it, so a game can
// never have two engine replies in flight.
package sched

import (
	"sync"
	"time"
)

type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New() *Scheduler {
	return &Scheduler{pending: make(map[string]*time.Timer)}
}

// Schedule arranges fn to run after delay, replacing any pending task with
// the same id. fn runs on its own goroutine and must re-check the state it
// acts on.
func (s *Scheduler) Schedule(id string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[id]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.pending[id] == timer {
			delete(s.pending, id)
		}
		s.mu.Unlock()
		fn()
	})
	s.pending[id] = timer
}

// Cancel stops the pending task for id, if any. A task already firing is not
// interrupted.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[id]; ok {
		t.Stop()
		delete(s.pending, id)
	}
}

// CancelAll stops every pending task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}
