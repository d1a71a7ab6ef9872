package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"poolprobe/internal/banner"
	"poolprobe/internal/cli"
	"poolprobe/internal/logger"
	"poolprobe/internal/metrics"
	"poolprobe/internal/probe"
	"poolprobe/internal/profile"
	"poolprobe/internal/report"
	"poolprobe/internal/runner"
	"poolprobe/internal/search"
	"poolprobe/internal/storage"
	"poolprobe/internal/tui"
)

const logFileName = "search.log"

// runSearch performs exactly one search and leaves its report on disk.
func runSearch(ctx context.Context, s Settings, out io.Writer) (*search.Result, error) {
	runID := uuid.New().String()
	target := s.URL()

	rep, err := report.Create(s.OutDir, report.Meta{
		RunID:         runID,
		Host:          s.Host,
		Port:          s.Port,
		Path:          s.Path,
		URL:           target,
		TotalRequests: s.Requests,
		Low:           s.Low,
		High:          s.High,
		Date:          time.Now(),
	})
	if err != nil {
		return nil, err
	}
	defer rep.Close()

	log, closeLog, err := newLogger(s, rep.Dir)
	if err != nil {
		return nil, err
	}
	defer closeLog()
	log = log.With("run", runID)

	m := metrics.New()
	if s.MetricsAddr != "" {
		errc := make(chan error, 1)
		srv, err := m.Serve(s.MetricsAddr, errc)
		if err != nil {
			return nil, err
		}
		defer srv.Close()
		go func() {
			for err := range errc {
				log.Error("metrics server failed", "error", err)
			}
		}()
		log.Info("serving metrics", "addr", srv.Addr)
	}

	var prof profile.Profiler = profile.NewCPUProfiler()
	if s.NoProfile {
		prof = profile.Noop{}
	}

	r := runner.NewRunner(runner.Config{
		URL:          target,
		Method:       s.Method,
		Headers:      s.Headers,
		TimeoutSec:   s.TimeoutSec,
		Insecure:     s.Insecure,
		RequestCount: s.Requests,
		Jitter:       s.Jitter,
		TrialTimeout: s.TrialTimeout,
	})

	updates := make(search.UpdateChan, 100)
	trials := make(probe.TrialChan, 100)
	exec := &probe.Executor{
		Runner:   r,
		Profiler: prof,
		Sink:     rep,
		Recorder: m,
		Logger:   log,
		Trials:   trials,
	}
	ctrl := search.NewController(exec,
		search.WithBounds(s.Low, s.High),
		search.WithCooldown(s.Cooldown),
		search.WithUpdates(updates),
		search.WithRecorder(m),
		search.WithLogger(log),
	)

	var res *search.Result
	if s.TUI {
		res, err = tui.Run(ctx, search.Window{Low: s.Low, High: s.High}, ctrl.Run, updates, trials)
		if err == nil {
			cli.PrintSummary(out, res)
		}
	} else {
		fmt.Fprintln(out, banner.GetString())
		res, err = cli.Run(ctx, out, cli.Header{
			URL:       target,
			Requests:  s.Requests,
			Low:       s.Low,
			High:      s.High,
			Jitter:    s.Jitter,
			Cooldown:  s.Cooldown,
			ReportDir: rep.Dir,
		}, ctrl.Run, updates, trials)
	}
	if err != nil {
		return nil, err
	}

	if err := rep.WriteSummary(res); err != nil {
		return nil, err
	}
	if !s.NoHistory {
		if err := saveHistory(s, storage.NewHistoryItem(runID, target, s.Requests, res, rep.Dir)); err != nil {
			// the report on disk is already complete
			log.Warn("failed to store run history", "error", err)
		}
	}

	fmt.Fprintf(out, "✅ Report saved to %s\n", rep.Dir)
	return res, nil
}

// newLogger writes to stderr, or into the report directory while the TUI owns
// the terminal.
func newLogger(s Settings, reportDir string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if s.TUI {
		f, err := os.Create(filepath.Join(reportDir, logFileName))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	if s.LogFormat == "json" {
		return logger.New(s.LogLevel, w), closeFn, nil
	}
	return logger.NewText(s.LogLevel, w), closeFn, nil
}

func historyPath(s Settings) (string, error) {
	if s.HistoryDB != "" {
		return s.HistoryDB, nil
	}
	return storage.DefaultPath()
}

func saveHistory(s Settings, item storage.HistoryItem) error {
	path, err := historyPath(s)
	if err != nil {
		return err
	}
	store, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(item)
}
