package runner

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"poolprobe/internal/stats"
)

// ErrDegenerateTrial means a batch produced no usable throughput.
var ErrDegenerateTrial = errors.New("degenerate trial")

type Runner struct {
	Cfg Config

	inflight int64
	now      func() time.Time
}

func NewRunner(cfg Config) *Runner {
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.RequestCount <= 0 {
		cfg.RequestCount = DefaultRequestCount
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = DefaultTimeoutSec
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return &Runner{Cfg: cfg, now: time.Now}
}

// newClient builds a client whose pool never holds more than level
// connections to the target. HTTP/2 is disabled: it would multiplex every
// request over a single connection and the cap would stop bounding
// concurrency.
func (r *Runner) newClient(level int) (*http.Client, *http.Transport) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ForceAttemptHTTP2 = false
	t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	t.MaxIdleConns = level
	t.MaxConnsPerHost = level
	t.MaxIdleConnsPerHost = level
	if r.Cfg.Insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{
		Timeout:   time.Duration(r.Cfg.TimeoutSec) * time.Second,
		Transport: t,
	}
	return client, t
}

// RunBatch issues RequestCount requests through a pool capped at level
// connections and waits for all of them to settle. Individual request
// failures do not abort the batch.
func (r *Runner) RunBatch(ctx context.Context, level int) (*BatchResult, error) {
	if level < 1 {
		return nil, fmt.Errorf("connection cap must be positive, got %d", level)
	}
	if r.Cfg.TrialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Cfg.TrialTimeout)
		defer cancel()
	}

	client, transport := r.newClient(level)
	defer transport.CloseIdleConnections()

	st := stats.NewStats()
	g, gctx := errgroup.WithContext(ctx)

	// Request failures are recorded in st. Only an interrupted dispatch is a
	// group error, and it stops the requests still waiting on their jitter.
	start := r.now()
	for i := 0; i < r.Cfg.RequestCount; i++ {
		g.Go(func() error {
			if !sleepJitter(gctx, r.Cfg.Jitter) {
				st.Add(false, 0, 0, gctx.Err().Error())
				return gctx.Err()
			}
			r.executeRequest(gctx, client, st)
			return nil
		})
	}
	err := g.Wait()
	elapsed := r.now().Sub(start)

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("batch at %d connections interrupted: %w", level, err)
	}
	if elapsed <= 0 {
		return nil, fmt.Errorf("%w: zero elapsed time at %d connections", ErrDegenerateTrial, level)
	}
	if st.SuccessCount() == 0 {
		return nil, fmt.Errorf("%w: all %d requests failed at %d connections", ErrDegenerateTrial, r.Cfg.RequestCount, level)
	}

	return &BatchResult{
		Level:        level,
		RequestCount: r.Cfg.RequestCount,
		Elapsed:      elapsed,
		Throughput:   float64(r.Cfg.RequestCount) / elapsed.Seconds(),
		Stats:        st,
	}, nil
}

func (r *Runner) executeRequest(ctx context.Context, client *http.Client, st *stats.Stats) {
	atomic.AddInt64(&r.inflight, 1)
	defer atomic.AddInt64(&r.inflight, -1)

	req, err := http.NewRequestWithContext(ctx, r.Cfg.Method, r.Cfg.URL, nil)
	if err != nil {
		st.Add(false, 0, 0, err.Error())
		return
	}
	req.Header.Set("X-Request-ID", uuid.New().String())
	for k, v := range r.Cfg.Headers {
		req.Header.Set(k, v)
	}

	begin := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		st.Add(false, 0, time.Since(begin), failureSignature(err))
		return
	}
	n, _ := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	latency := time.Since(begin)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		st.Add(true, n, latency, "")
		return
	}
	st.Add(false, n, latency, fmt.Sprintf("HTTP %d", resp.StatusCode))
}

func (r *Runner) GetInflight() int64 {
	return atomic.LoadInt64(&r.inflight)
}

func sleepJitter(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func failureSignature(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return err.Error()
}
