package sink

import (
	"sync"
	"time"
)

// Stats tracks the requests of a session.
type Stats struct {
	mu        sync.Mutex
	sum       time.Duration
	requests  int64
	failed    int64
	bytes     int64
	discarded int64
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{}
}

// Update records a successful request of n bytes that took d.
func (s *Stats) Update(d time.Duration, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sum += d
	s.requests++
	s.bytes += n
}

// Fail records a failed request.
func (s *Stats) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

// Discard records n chunks dropped without being sent.
func (s *Stats) Discard(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded += int64(n)
}

// Average returns the average duration of successful requests.
func (s *Stats) Average() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.requests == 0 {
		return 0
	}
	return s.sum / time.Duration(s.requests)
}

// Requests returns the number of successful requests.
func (s *Stats) Requests() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Failed returns the number of failed requests.
func (s *Stats) Failed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Bytes returns the number of acknowledged bytes.
func (s *Stats) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// Discarded returns the number of chunks dropped without being sent.
func (s *Stats) Discarded() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}

// TotalDuration returns the sum of all successful request durations.
func (s *Stats) TotalDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sum
}
