// Package cooldown implements a keyed rate-limit store shared between the
// chat dispatcher and the background broadcasters. Entries are in-memory only
// and reset on restart.
package cooldown

import (
	"sync"
	"time"
)

// Store maps keys (usernames, or a fixed key for global limits) to the time
// of the last permitted action. An action is permitted only when the
// configured window has fully elapsed.
type Store struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time // test hook
}

func NewStore(window time.Duration) *Store {
	return &Store{
		window: window,
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Remaining returns how long until key may act again, or zero if it may act now.
func (s *Store) Remaining(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(key)
}

func (s *Store) remainingLocked(key string) time.Duration {
	last, ok := s.last[key]
	if !ok {
		return 0
	}
	if rem := s.window - s.now().Sub(last); rem > 0 {
		return rem
	}
	return 0
}

// Begin atomically checks the window for key and, when the action is
// permitted, records it as happening now. On rejection the stored timestamp
// is left untouched and the remaining wait is returned.
func (s *Store) Begin(key string) (ok bool, remaining time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rem := s.remainingLocked(key); rem > 0 {
		return false, rem
	}
	s.last[key] = s.now()
	return true, 0
}

// Touch records an action for key without checking the window. Used when the
// timestamp should mark completion (e.g. the moment a response was sent)
// rather than the start of the action.
func (s *Store) Touch(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[key] = s.now()
}

// Window reports the configured window.
func (s *Store) Window() time.Duration { return s.window }
