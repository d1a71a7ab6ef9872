package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolprobe/internal/runner"
	"poolprobe/internal/search"
	"poolprobe/internal/stats"
)

type fakeRunner struct {
	calls []int
	err   error
	log   *[]string
}

func (f *fakeRunner) RunBatch(_ context.Context, level int) (*runner.BatchResult, error) {
	f.calls = append(f.calls, level)
	if f.log != nil {
		*f.log = append(*f.log, "batch")
	}
	if f.err != nil {
		return nil, f.err
	}
	st := stats.NewStats()
	st.Add(true, 10, 5*time.Millisecond, "")
	st.Add(false, 0, 0, "HTTP 502")
	return &runner.BatchResult{
		Level:        level,
		RequestCount: 2,
		Elapsed:      time.Second,
		Throughput:   2,
		Stats:        st,
	}, nil
}

type fakeProfiler struct {
	startErr error
	stopErr  error
	log      *[]string
}

func (p *fakeProfiler) Start() error {
	*p.log = append(*p.log, "start")
	return p.startErr
}

func (p *fakeProfiler) Stop() ([]byte, error) {
	*p.log = append(*p.log, "stop")
	return []byte("cpu"), p.stopErr
}

type fakeSink struct {
	records  []search.Record
	profiles [][]byte
	err      error
}

func (s *fakeSink) WriteTrial(rec search.Record, prof []byte) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	s.profiles = append(s.profiles, prof)
	return nil
}

type fakeRecorder struct{ trials []search.Record }

func (r *fakeRecorder) ObserveTrial(rec search.Record) { r.trials = append(r.trials, rec) }

func TestExecutor_Measure(t *testing.T) {
	var log []string
	sink := &fakeSink{}
	rec := &fakeRecorder{}
	trials := make(TrialChan, 1)
	e := &Executor{
		Runner:   &fakeRunner{log: &log},
		Profiler: &fakeProfiler{log: &log},
		Sink:     sink,
		Recorder: rec,
		Trials:   trials,
	}

	got, err := e.Measure(context.Background(), 8)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "batch", "stop"}, log)
	assert.Equal(t, 8, got.Level)
	assert.Equal(t, 2.0, got.Throughput)
	assert.Equal(t, 2, got.RequestCount)
	assert.Equal(t, uint64(1), got.Success)
	assert.Equal(t, uint64(1), got.Fail)
	assert.Equal(t, []search.Record{got}, sink.records)
	assert.Equal(t, []byte("cpu"), sink.profiles[0])
	assert.Equal(t, []search.Record{got}, rec.trials)
	assert.Equal(t, got, <-trials)
}

func TestExecutor_ProfilerStartFailureIsFatal(t *testing.T) {
	var log []string
	r := &fakeRunner{}
	sink := &fakeSink{}
	e := &Executor{Runner: r, Profiler: &fakeProfiler{log: &log, startErr: errors.New("busy")}, Sink: sink}

	_, err := e.Measure(context.Background(), 3)
	require.Error(t, err)
	assert.Empty(t, r.calls)
	assert.Empty(t, sink.records)
}

func TestExecutor_ProfilerStopFailureIsFatal(t *testing.T) {
	var log []string
	sink := &fakeSink{}
	e := &Executor{Runner: &fakeRunner{}, Profiler: &fakeProfiler{log: &log, stopErr: errors.New("lost")}, Sink: sink}

	_, err := e.Measure(context.Background(), 3)
	require.Error(t, err)
	assert.Empty(t, sink.records)
}

func TestExecutor_BatchFailureStopsProfiler(t *testing.T) {
	var log []string
	e := &Executor{Runner: &fakeRunner{err: runner.ErrDegenerateTrial}, Profiler: &fakeProfiler{log: &log}}

	_, err := e.Measure(context.Background(), 3)
	assert.ErrorIs(t, err, runner.ErrDegenerateTrial)
	assert.Equal(t, []string{"start", "stop"}, log)
}

func TestExecutor_SinkFailureIsFatal(t *testing.T) {
	sink := &fakeSink{err: errors.New("disk full")}
	e := &Executor{Runner: &fakeRunner{}, Sink: sink}

	_, err := e.Measure(context.Background(), 3)
	assert.ErrorContains(t, err, "disk full")
}

func TestExecutor_DrivesSearch(t *testing.T) {
	sink := &fakeSink{}
	e := &Executor{Runner: &fakeRunner{}, Sink: sink}

	res, err := search.NewController(e, search.WithBounds(1, 8), search.WithCooldown(0)).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, sink.records, len(res.Trials))
	for i, rec := range res.Trials {
		assert.Equal(t, rec.Level, sink.records[i].Level)
	}
}
