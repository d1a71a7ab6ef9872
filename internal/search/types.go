package search

import (
	"context"
	"fmt"
	"time"
)

// Window is the range of candidate levels still considered to hold the peak.
// Both bounds are inclusive.
type Window struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Active reports whether the window still needs narrowing.
func (w Window) Active() bool {
	return w.Low < w.High
}

// Crossed reports whether the last move left the bounds inverted.
func (w Window) Crossed() bool {
	return w.Low > w.High
}

func (w Window) Width() int {
	return w.High - w.Low
}

func (w Window) Contains(level int) bool {
	return level >= w.Low && level <= w.High
}

// Midpoint returns floor((low+high)/2).
func (w Window) Midpoint() int {
	return (w.Low + w.High) / 2
}

// Probes returns the three levels sampled in one iteration.
func (w Window) Probes() Probes {
	mid := w.Midpoint()
	return Probes{
		Left:  (w.Low + mid) / 2,
		Mid:   mid,
		Right: (mid + w.High) / 2,
	}
}

func (w Window) String() string {
	return fmt.Sprintf("[%d, %d]", w.Low, w.High)
}

// Probes are the left-mid, mid and right-mid levels of a window.
type Probes struct {
	Left  int `json:"left"`
	Mid   int `json:"mid"`
	Right int `json:"right"`
}

// Samples holds the throughput measured at each probe.
type Samples struct {
	Left  float64 `json:"left"`
	Mid   float64 `json:"mid"`
	Right float64 `json:"right"`
}

// Record is the outcome of one trial. Level, Throughput and RequestCount are
// what the search works with; the rest is diagnostic.
type Record struct {
	Level        int           `json:"level"`
	Throughput   float64       `json:"rps"`
	RequestCount int           `json:"requests"`
	Success      uint64        `json:"success"`
	Fail         uint64        `json:"fail"`
	Elapsed      time.Duration `json:"elapsed"`
	P50Ms        float64       `json:"p50_ms"`
	P99Ms        float64       `json:"p99_ms"`
}

// Executor runs one trial at a level.
type Executor interface {
	Measure(ctx context.Context, level int) (Record, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, level int) (Record, error)

func (f ExecutorFunc) Measure(ctx context.Context, level int) (Record, error) {
	return f(ctx, level)
}

// Recorder receives search-level instrumentation.
type Recorder interface {
	ObserveCacheHit(level int)
	ObserveWindow(w Window)
}

type noopRecorder struct{}

func (noopRecorder) ObserveCacheHit(int)  {}
func (noopRecorder) ObserveWindow(Window) {}

// Iteration describes one completed narrowing step.
type Iteration struct {
	Index    int
	Window   Window
	Probes   Probes
	Samples  Samples
	Ordering Ordering
	Next     Window
	Trials   int
}

// UpdateChan carries iteration updates to a frontend.
type UpdateChan chan Iteration

// Result is what a search run reports once the window collapses.
type Result struct {
	Level      int
	Window     Window
	Final      Window
	Bounds     Window
	Iterations int
	Trials     []Record
	Best       Record
	Duration   time.Duration
}
