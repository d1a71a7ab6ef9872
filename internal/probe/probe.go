// Package probe runs a single trial: it brackets an HTTP batch with the
// profiler and hands the resulting record to the report sink.
package probe

import (
	"context"
	"fmt"
	"log/slog"

	"poolprobe/internal/logger"
	"poolprobe/internal/profile"
	"poolprobe/internal/runner"
	"poolprobe/internal/search"
)

// BatchRunner issues one batch of requests at a connection cap.
type BatchRunner interface {
	RunBatch(ctx context.Context, level int) (*runner.BatchResult, error)
}

// Sink persists trial records and their profiles.
type Sink interface {
	WriteTrial(rec search.Record, prof []byte) error
}

type Recorder interface {
	ObserveTrial(rec search.Record)
}

// TrialChan carries finished trials to a frontend.
type TrialChan chan search.Record

type Executor struct {
	Runner   BatchRunner
	Profiler profile.Profiler
	Sink     Sink
	Recorder Recorder
	Logger   *slog.Logger
	Trials   TrialChan
}

var _ search.Executor = (*Executor)(nil)

// Measure runs one trial at level. Profiler and sink failures abort the trial.
func (e *Executor) Measure(ctx context.Context, level int) (search.Record, error) {
	log := e.baseLogger().With("sockets", level)
	log.Info("trial started")

	prof := e.Profiler
	if prof == nil {
		prof = profile.Noop{}
	}
	if err := prof.Start(); err != nil {
		return search.Record{}, fmt.Errorf("profiler start: %w", err)
	}

	batch, err := e.Runner.RunBatch(ctx, level)
	data, stopErr := prof.Stop()
	if err != nil {
		return search.Record{}, err
	}
	if stopErr != nil {
		return search.Record{}, fmt.Errorf("profiler stop: %w", stopErr)
	}

	rec := search.Record{
		Level:        level,
		Throughput:   batch.Throughput,
		RequestCount: batch.RequestCount,
		Elapsed:      batch.Elapsed,
	}
	if st := batch.Stats; st != nil {
		rec.Success = st.SuccessCount()
		rec.Fail = st.FailCount()
		rec.P50Ms = st.GetP50()
		rec.P99Ms = st.GetP99()
		for sig, n := range st.GetErrorCounts() {
			log.Warn("requests failed", "error", sig, "count", n)
		}
	}

	if e.Sink != nil {
		if err := e.Sink.WriteTrial(rec, data); err != nil {
			return search.Record{}, fmt.Errorf("report: %w", err)
		}
	}
	if e.Recorder != nil {
		e.Recorder.ObserveTrial(rec)
	}
	if e.Trials != nil {
		select {
		case e.Trials <- rec:
		default:
		}
	}

	log.Info("trial finished",
		"rps", rec.Throughput,
		"elapsed", rec.Elapsed.String(),
		"success", rec.Success,
		"fail", rec.Fail,
		"p99_ms", rec.P99Ms,
	)
	return rec, nil
}

func (e *Executor) baseLogger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logger.Discard()
}
