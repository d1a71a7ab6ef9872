package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"poolprobe/internal/probe"
	"poolprobe/internal/search"
	"poolprobe/internal/tui/styles"
)

// Header is what the run banner shows before the first trial.
type Header struct {
	URL       string
	Requests  int
	Low       int
	High      int
	Jitter    time.Duration
	Cooldown  time.Duration
	ReportDir string
}

// SearchFunc runs the search to completion.
type SearchFunc func(ctx context.Context) (*search.Result, error)

type outcome struct {
	res *search.Result
	err error
}

// Run drives a headless search, printing one line per trial and per
// iteration, then a summary.
func Run(ctx context.Context, out io.Writer, h Header, run SearchFunc, updates search.UpdateChan, trials probe.TrialChan) (*search.Result, error) {
	printHeader(out, h)

	done := make(chan outcome, 1)
	go func() {
		res, err := run(ctx)
		done <- outcome{res, err}
	}()

	for {
		select {
		case rec := <-trials:
			printTrial(out, rec)
		case it := <-updates:
			printIteration(out, it, h)
		case o := <-done:
			drain(out, h, updates, trials)
			if o.err != nil {
				fmt.Fprintf(out, "\n%s %v\n", styles.Error.Render("❌ Search failed:"), o.err)
				return nil, o.err
			}
			PrintSummary(out, o.res)
			return o.res, nil
		}
	}
}

func drain(out io.Writer, h Header, updates search.UpdateChan, trials probe.TrialChan) {
	for {
		select {
		case rec := <-trials:
			printTrial(out, rec)
		case it := <-updates:
			printIteration(out, it, h)
		default:
			return
		}
	}
}

func printHeader(out io.Writer, h Header) {
	fmt.Fprintf(out, "\n🚀 STARTING POOL SIZE SEARCH\n")
	fmt.Fprintf(out, "======================================================================\n")
	fmt.Fprintf(out, "Target URL : %s\n", h.URL)
	fmt.Fprintf(out, "Requests   : %d per trial\n", h.Requests)
	fmt.Fprintf(out, "Bounds     : [%d, %d] sockets\n", h.Low, h.High)
	fmt.Fprintf(out, "Jitter     : %s   Cooldown: %s\n", h.Jitter, h.Cooldown)
	if h.ReportDir != "" {
		fmt.Fprintf(out, "Report     : %s\n", h.ReportDir)
	}
	fmt.Fprintf(out, "======================================================================\n\n")
}

func printTrial(out io.Writer, rec search.Record) {
	fail := ""
	if rec.Fail > 0 {
		fail = styles.Warn.Render(fmt.Sprintf("  fail: %d", rec.Fail))
	}
	fmt.Fprintf(out, "   sockets=%-5d %s  p99: %.1fms  in %s%s\n",
		rec.Level,
		styles.Value.Render(fmt.Sprintf("%10.2f rps", rec.Throughput)),
		rec.P99Ms,
		rec.Elapsed.Round(time.Millisecond),
		fail,
	)
}

func printIteration(out io.Writer, it search.Iteration, h Header) {
	total := h.High - h.Low
	pct := 1.0
	if total > 0 && it.Next.Active() {
		pct = 1 - float64(it.Next.Width())/float64(total)
	}
	fmt.Fprintf(out, "%s #%d %s %s → %s (%s)\n\n",
		progressBar(pct, 20),
		it.Index,
		styles.Active.Render(it.Window.String()),
		it.Ordering,
		it.Next,
		it.Ordering.Move(),
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func PrintSummary(out io.Writer, res *search.Result) {
	fmt.Fprintf(out, "\n📊 SEARCH RESULTS\n")
	fmt.Fprintf(out, "======================================================================\n")
	fmt.Fprintf(out, "Chosen Sockets : %s\n", styles.Success.Render(fmt.Sprintf("%d", res.Level)))
	fmt.Fprintf(out, "Final Window   : %s\n", res.Window)
	fmt.Fprintf(out, "Iterations     : %d\n", res.Iterations)
	fmt.Fprintf(out, "Trials         : %d\n", len(res.Trials))
	fmt.Fprintf(out, "Duration       : %s\n", res.Duration.Round(time.Second))
	if len(res.Trials) > 0 {
		fmt.Fprintf(out, "Best Measured  : %d sockets @ %.2f rps\n", res.Best.Level, res.Best.Throughput)

		sorted := make([]search.Record, len(res.Trials))
		copy(sorted, res.Trials)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

		fmt.Fprintf(out, "\n📈 THROUGHPUT BY SOCKETS\n")
		for _, rec := range sorted {
			fmt.Fprintf(out, "   %5d : %10.2f rps\n", rec.Level, rec.Throughput)
		}
	}
	fmt.Fprintf(out, "======================================================================\n")
}
