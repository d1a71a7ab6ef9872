package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type concurrencyServer struct {
	*httptest.Server
	inflight int64
	peak     int64
	hits     int64
	http2    int64
}

func (s *concurrencyServer) handler(delay time.Duration, status func(n int64) int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&s.hits, 1)
		if r.ProtoMajor == 2 {
			atomic.AddInt64(&s.http2, 1)
		}
		cur := atomic.AddInt64(&s.inflight, 1)
		defer atomic.AddInt64(&s.inflight, -1)
		for {
			peak := atomic.LoadInt64(&s.peak)
			if cur <= peak || atomic.CompareAndSwapInt64(&s.peak, peak, cur) {
				break
			}
		}
		time.Sleep(delay)
		w.WriteHeader(status(n))
		w.Write([]byte(`{"pong":true}`))
	})
}

func newConcurrencyServer(t *testing.T, delay time.Duration, status func(n int64) int) *concurrencyServer {
	s := &concurrencyServer{}
	s.Server = httptest.NewServer(s.handler(delay, status))
	t.Cleanup(s.Close)
	return s
}

// newTLSConcurrencyServer offers HTTP/2 over TLS.
func newTLSConcurrencyServer(t *testing.T, delay time.Duration, status func(n int64) int) *concurrencyServer {
	s := &concurrencyServer{}
	s.Server = httptest.NewUnstartedServer(s.handler(delay, status))
	s.EnableHTTP2 = true
	s.StartTLS()
	t.Cleanup(s.Close)
	return s
}

func ok(int64) int { return http.StatusOK }

func TestRunBatch_CapsConnections(t *testing.T) {
	srv := newConcurrencyServer(t, 20*time.Millisecond, ok)
	r := NewRunner(Config{URL: srv.URL + "/ping.json", RequestCount: 30, TimeoutSec: 5})

	res, err := r.RunBatch(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Level)
	assert.Equal(t, 30, res.RequestCount)
	assert.Equal(t, uint64(30), res.Stats.SuccessCount())
	assert.Equal(t, int64(30), atomic.LoadInt64(&srv.hits))
	assert.LessOrEqual(t, atomic.LoadInt64(&srv.peak), int64(3))
	assert.Greater(t, res.Throughput, 0.0)
	assert.InDelta(t, float64(30)/res.Elapsed.Seconds(), res.Throughput, 1e-9)
	assert.Zero(t, r.GetInflight())
}

func TestRunBatch_CapsConnectionsOverTLS(t *testing.T) {
	srv := newTLSConcurrencyServer(t, 30*time.Millisecond, ok)
	r := NewRunner(Config{URL: srv.URL + "/ping.json", RequestCount: 20, TimeoutSec: 5, Insecure: true})

	res, err := r.RunBatch(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, uint64(20), res.Stats.SuccessCount())
	assert.Equal(t, int64(1), atomic.LoadInt64(&srv.peak))
	assert.Zero(t, atomic.LoadInt64(&srv.http2))
}

func TestRunBatch_ToleratesPartialFailures(t *testing.T) {
	srv := newConcurrencyServer(t, 0, func(n int64) int {
		if n%2 == 0 {
			return http.StatusServiceUnavailable
		}
		return http.StatusOK
	})
	r := NewRunner(Config{URL: srv.URL, RequestCount: 20, TimeoutSec: 5})

	res, err := r.RunBatch(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), res.Stats.SuccessCount())
	assert.Equal(t, uint64(10), res.Stats.FailCount())
	assert.Equal(t, 10, res.Stats.GetErrorCounts()["HTTP 503"])
	// throughput counts every issued request
	assert.InDelta(t, float64(20)/res.Elapsed.Seconds(), res.Throughput, 1e-9)
}

func TestRunBatch_AllFailedIsDegenerate(t *testing.T) {
	srv := newConcurrencyServer(t, 0, func(int64) int { return http.StatusInternalServerError })
	r := NewRunner(Config{URL: srv.URL, RequestCount: 5, TimeoutSec: 5})

	_, err := r.RunBatch(context.Background(), 2)
	assert.ErrorIs(t, err, ErrDegenerateTrial)
}

func TestRunBatch_ZeroElapsedIsDegenerate(t *testing.T) {
	srv := newConcurrencyServer(t, 0, ok)
	r := NewRunner(Config{URL: srv.URL, RequestCount: 5, TimeoutSec: 5})
	frozen := time.Now()
	r.now = func() time.Time { return frozen }

	_, err := r.RunBatch(context.Background(), 2)
	assert.ErrorIs(t, err, ErrDegenerateTrial)
}

func TestRunBatch_TrialTimeout(t *testing.T) {
	srv := newConcurrencyServer(t, 2*time.Second, ok)
	r := NewRunner(Config{URL: srv.URL, RequestCount: 4, TimeoutSec: 10, TrialTimeout: 50 * time.Millisecond})

	_, err := r.RunBatch(context.Background(), 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunBatch_CancelDuringJitter(t *testing.T) {
	srv := newConcurrencyServer(t, 0, ok)
	r := NewRunner(Config{URL: srv.URL, RequestCount: 8, TimeoutSec: 5, Jitter: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	begin := time.Now()
	_, err := r.RunBatch(ctx, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(begin), time.Second)
	assert.Zero(t, atomic.LoadInt64(&srv.hits))
}

func TestRunBatch_JitterDelaysDispatch(t *testing.T) {
	srv := newConcurrencyServer(t, 0, ok)
	r := NewRunner(Config{URL: srv.URL, RequestCount: 4, TimeoutSec: 5, Jitter: 40 * time.Millisecond})

	res, err := r.RunBatch(context.Background(), 4)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Elapsed, 40*time.Millisecond)
}

func TestRunBatch_RejectsNonPositiveLevel(t *testing.T) {
	r := NewRunner(Config{URL: "http://127.0.0.1:1"})
	_, err := r.RunBatch(context.Background(), 0)
	assert.Error(t, err)
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(Config{URL: "http://example.com"})
	assert.Equal(t, http.MethodGet, r.Cfg.Method)
	assert.Equal(t, DefaultRequestCount, r.Cfg.RequestCount)
	assert.Equal(t, DefaultTimeoutSec, r.Cfg.TimeoutSec)
}
