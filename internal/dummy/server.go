package dummy

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"
)

type ServerConfig struct {
	Port int
	// Concurrency beyond which /ping.json slows down quadratically
	Knee int
	// Service time of /ping.json below the knee
	BaseLatency time.Duration
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Knee <= 0 {
		c.Knee = 64
	}
	if c.BaseLatency <= 0 {
		c.BaseLatency = 20 * time.Millisecond
	}
	return c
}

// Handler serves the dummy endpoints. /ping.json has a throughput peak near
// cfg.Knee concurrent requests.
func Handler(cfg ServerConfig) http.Handler {
	cfg = cfg.withDefaults()
	mux := http.NewServeMux()
	var inflight int64

	mux.HandleFunc("/ping.json", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&inflight, 1)
		defer atomic.AddInt64(&inflight, -1)

		time.Sleep(serviceTime(cfg, n))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"pong":true}`))
	})

	// Fast Endpoint (10-50ms)
	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		jitter := time.Duration(rand.Intn(40)+10) * time.Millisecond
		time.Sleep(jitter)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Fast response"))
	})

	// Error Endpoint (Random failures)
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		rnd := rand.Float32()
		if rnd < 0.2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("500 Internal Server Error"))
		} else if rnd < 0.4 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("429 Too Many Requests"))
		} else {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		}
	})

	return mux
}

func serviceTime(cfg ServerConfig, inflight int64) time.Duration {
	if inflight <= int64(cfg.Knee) {
		return cfg.BaseLatency
	}
	ratio := float64(inflight) / float64(cfg.Knee)
	return time.Duration(float64(cfg.BaseLatency) * ratio * ratio)
}

// Start runs the dummy server in the background.
func Start(cfg ServerConfig) *http.Server {
	cfg = cfg.withDefaults()
	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("👻 Dummy Server running on http://localhost%s\n", addr)
	fmt.Printf("   Endpoints: /ping.json (knee at %d), /fast, /error\n", cfg.Knee)

	server := &http.Server{
		Addr:              addr,
		Handler:           Handler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server failed: %v\n", err)
		}
	}()
	return server
}
