package multipart

import (
	"sync"
	"time"
)

// Part is one fragment accepted by the remote.
type Part struct {
	Number   int
	Bytes    int
	Duration time.Duration
}

// Stats records the accepted parts of an upload. Fragments whose result was discarded by
// Cancel or that failed are not recorded.
type Stats struct {
	mu    sync.Mutex
	parts []Part
	bytes int64
	took  time.Duration
}

func newStats() *Stats {
	return &Stats{}
}

func (s *Stats) record(p Part) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parts = append(s.parts, p)
	s.bytes += int64(p.Bytes)
	s.took += p.Duration
}

// Parts returns the accepted parts in part number order.
func (s *Stats) Parts() []Part {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]Part, len(s.parts))
	copy(parts, s.parts)
	return parts
}

// FinishedCount returns the number of accepted parts.
func (s *Stats) FinishedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.parts)
}

// BytesUploaded returns the body bytes of the accepted parts.
func (s *Stats) BytesUploaded() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// TotalDuration is the time spent in accepted part requests.
func (s *Stats) TotalDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.took
}

// Average returns the mean request duration of accepted parts.
func (s *Stats) Average() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.parts) == 0 {
		return 0
	}
	return s.took / time.Duration(len(s.parts))
}

// Throughput returns accepted bytes per second of request time, 0 before the first part.
func (s *Stats) Throughput() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.took <= 0 {
		return 0
	}
	return float64(s.bytes) / s.took.Seconds()
}
