package usecase

import "sync"

// stateTracker backs the loading flag and last error of a client.
// loading stays true while any call is in flight; the error of the
// most recently finished call wins, and a success clears it.
type stateTracker struct {
	mu       sync.RWMutex
	inFlight int
	lastErr  string
}

func (s *stateTracker) begin() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

func (s *stateTracker) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
}

func (s *stateTracker) snapshot() (loading bool, lastErr string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0, s.lastErr
}
