package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"poolprobe/internal/logger"
)

const (
	DefaultLow      = 1
	DefaultHigh     = 1000
	DefaultCooldown = 5 * time.Second
)

// ErrInvalidBounds is returned when the caller-supplied bounds are unusable.
var ErrInvalidBounds = errors.New("invalid search bounds")

// Controller runs one three-point interval search. A controller and its cache
// belong to a single run; create a new one for every search.
type Controller struct {
	exec     Executor
	bounds   Window
	cooldown time.Duration
	updates  UpdateChan
	recorder Recorder
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Controller)

// WithBounds sets the inclusive range of candidate levels.
func WithBounds(low, high int) Option {
	return func(c *Controller) {
		c.bounds = Window{Low: low, High: high}
	}
}

// WithCooldown sets the pause between iterations.
func WithCooldown(d time.Duration) Option {
	return func(c *Controller) {
		c.cooldown = d
	}
}

// WithUpdates streams every iteration to ch. Sends never block.
func WithUpdates(ch UpdateChan) Option {
	return func(c *Controller) {
		c.updates = ch
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewController(exec Executor, opts ...Option) *Controller {
	c := &Controller{
		exec:     exec,
		bounds:   Window{Low: DefaultLow, High: DefaultHigh},
		cooldown: DefaultCooldown,
		recorder: noopRecorder{},
		logger:   logger.Discard(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run searches the configured bounds until the window collapses and reports
// the chosen level. Any trial error ends the run.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	if c.exec == nil {
		return nil, errors.New("search: nil executor")
	}
	if c.bounds.Low < 1 || c.bounds.Low > c.bounds.High {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBounds, c.bounds)
	}

	start := time.Now()
	cache := NewCache(c.exec, c.recorder)
	window := c.bounds
	entered := window
	iterations := 0

	c.recorder.ObserveWindow(window)
	c.logger.Info("search started", "low", window.Low, "high", window.High)

	for window.Active() {
		entered = window
		probes := window.Probes()

		samples, err := c.sample(ctx, cache, probes)
		if err != nil {
			return nil, err
		}

		next, ordering := Narrow(window, probes, samples)
		iterations++

		c.logger.Info("iteration complete",
			"iteration", iterations,
			"window", window.String(),
			"left", probes.Left, "mid", probes.Mid, "right", probes.Right,
			"ordering", ordering.String(),
			"next", next.String(),
		)
		c.recorder.ObserveWindow(next)
		c.publish(Iteration{
			Index:    iterations,
			Window:   window,
			Probes:   probes,
			Samples:  samples,
			Ordering: ordering,
			Next:     next,
			Trials:   cache.Len(),
		})

		window = next
		if window.Active() && c.cooldown > 0 {
			if err := c.sleep(ctx, c.cooldown); err != nil {
				return nil, err
			}
		}
	}

	res := c.finish(window, entered, iterations, cache)
	res.Duration = time.Since(start)
	c.logger.Info("search finished",
		"sockets", res.Level,
		"window", res.Window.String(),
		"iterations", res.Iterations,
		"trials", len(res.Trials),
	)
	return res, nil
}

// sample measures left, right and mid in that order.
func (c *Controller) sample(ctx context.Context, cache *Cache, p Probes) (Samples, error) {
	var s Samples
	left, err := cache.GetOrMeasure(ctx, p.Left)
	if err != nil {
		return s, err
	}
	right, err := cache.GetOrMeasure(ctx, p.Right)
	if err != nil {
		return s, err
	}
	mid, err := cache.GetOrMeasure(ctx, p.Mid)
	if err != nil {
		return s, err
	}
	s.Left, s.Mid, s.Right = left.Throughput, mid.Throughput, right.Throughput
	return s, nil
}

// finish picks the answer. A singleton window is the answer itself; a crossed
// window falls back to the window that entered the last iteration.
func (c *Controller) finish(final, entered Window, iterations int, cache *Cache) *Result {
	answer := final
	if final.Crossed() {
		answer = entered
	}

	res := &Result{
		Level:      answer.Midpoint(),
		Window:     answer,
		Final:      final,
		Bounds:     c.bounds,
		Iterations: iterations,
		Trials:     cache.Records(),
	}
	for i, rec := range res.Trials {
		if i == 0 || rec.Throughput > res.Best.Throughput {
			res.Best = rec
		}
	}
	return res
}

func (c *Controller) publish(it Iteration) {
	if c.updates == nil {
		return
	}
	select {
	case c.updates <- it:
	default:
		// Frontend is behind; drop
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
