package detectionService

import (
	"HawkVision/internal/entity"
	"sync"
	"time"

	"golang.org/x/net/context"
)

type session struct {
	id string

	mu        sync.Mutex
	state     entity.ViewState
	previewID string
	cancel    context.CancelFunc
	lastSeen  time.Time
	closed    bool

	nextSub     int
	subscribers map[int]chan entity.ViewState
}

func newSession(id string) *session {
	return &session{
		id:          id,
		state:       entity.NewViewState(),
		subscribers: make(map[int]chan entity.ViewState),
	}
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) snapshot() entity.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// publishLocked hands the latest state to every subscriber. A subscriber
// that has not read the previous state only ever sees the newest one.
func (s *session) publishLocked() {
	snap := s.state.Clone()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (s *session) subscribe() (<-chan entity.ViewState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++

	ch := make(chan entity.ViewState, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	ch <- s.state.Clone()
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
}

// finish applies fn only if requestID is still the latest drop. It reports
// whether the result was kept.
func (s *session) finish(requestID uint64, fn func(*entity.ViewState)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state.RequestID != requestID {
		return false
	}

	fn(&s.state)
	s.publishLocked()
	return true
}

// teardown cancels in-flight work and returns the preview to release.
func (s *session) teardown() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}

	previewID := s.previewID
	s.previewID = ""
	return previewID
}

func (s *session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subscribers) > 0 {
		return 0
	}
	return now.Sub(s.lastSeen)
}
