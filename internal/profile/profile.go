// Package profile brackets a trial with a CPU profile capture.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"runtime/pprof"
	"sync"
)

// Extension is appended to stored profile artifacts.
const Extension = ".pprof"

var ErrNotStarted = errors.New("profiler not started")

type Profiler interface {
	Start() error
	Stop() ([]byte, error)
}

// CPUProfiler captures a runtime/pprof CPU profile into memory. Only one CPU
// profile can run per process, so Start fails if another is active.
type CPUProfiler struct {
	mu      sync.Mutex
	buf     *bytes.Buffer
	running bool
}

func NewCPUProfiler() *CPUProfiler {
	return &CPUProfiler{}
}

func (p *CPUProfiler) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("profiler already running")
	}

	buf := &bytes.Buffer{}
	if err := pprof.StartCPUProfile(buf); err != nil {
		return fmt.Errorf("start cpu profile: %w", err)
	}
	p.buf = buf
	p.running = true
	return nil
}

func (p *CPUProfiler) Stop() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil, ErrNotStarted
	}

	pprof.StopCPUProfile()
	p.running = false
	data := p.buf.Bytes()
	p.buf = nil
	return data, nil
}

// Noop satisfies Profiler without capturing anything.
type Noop struct{}

func (Noop) Start() error          { return nil }
func (Noop) Stop() ([]byte, error) { return nil, nil }
