package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats aggregates the requests of a single trial.
type Stats struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Bytes    uint64

	// Latency of completed requests (microseconds)
	Latency *SafeHistogram

	errMu  sync.Mutex
	errors map[string]int
}

func NewStats() *Stats {
	return &Stats{
		Latency: NewSafeHistogram(),
		errors:  make(map[string]int),
	}
}

// Add records one settled request. Only successful requests feed the
// latency histogram; failures are tallied by signature.
func (s *Stats) Add(success bool, bytes int64, latency time.Duration, failure string) {
	atomic.AddUint64(&s.Requests, 1)
	if bytes > 0 {
		atomic.AddUint64(&s.Bytes, uint64(bytes))
	}
	if success {
		atomic.AddUint64(&s.Success, 1)
		s.Latency.RecordDuration(latency)
		return
	}

	atomic.AddUint64(&s.Fail, 1)
	if failure == "" {
		failure = "unknown"
	}
	s.errMu.Lock()
	s.errors[failure]++
	s.errMu.Unlock()
}

func (s *Stats) SuccessCount() uint64 {
	return atomic.LoadUint64(&s.Success)
}

func (s *Stats) FailCount() uint64 {
	return atomic.LoadUint64(&s.Fail)
}

func (s *Stats) ErrorRate() float64 {
	reqs := atomic.LoadUint64(&s.Requests)
	if reqs == 0 {
		return 0
	}
	fails := atomic.LoadUint64(&s.Fail)
	return (float64(fails) / float64(reqs)) * 100
}

func (s *Stats) GetP50() float64 {
	return s.Latency.QuantileMs(50)
}

func (s *Stats) GetP99() float64 {
	return s.Latency.QuantileMs(99)
}

// GetErrorCounts returns a copy of the failure tally.
func (s *Stats) GetErrorCounts() map[string]int {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	out := make(map[string]int, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}
