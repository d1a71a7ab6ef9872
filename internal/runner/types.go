package runner

import (
	"time"

	"poolprobe/internal/stats"
)

const (
	DefaultRequestCount = 1000
	DefaultJitter       = 30 * time.Millisecond
	DefaultTimeoutSec   = 30
)

type Config struct {
	URL        string
	Method     string
	Headers    map[string]string
	TimeoutSec int
	Insecure   bool

	// Requests issued per trial and the delay before each is dispatched
	RequestCount int
	Jitter       time.Duration

	// Upper bound on a whole trial; zero means none
	TrialTimeout time.Duration
}

// BatchResult is the measurement of one batch at a fixed connection cap.
type BatchResult struct {
	Level        int
	RequestCount int
	Elapsed      time.Duration
	Throughput   float64
	Stats        *stats.Stats
}
