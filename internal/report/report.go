package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"poolprobe/internal/profile"
	"poolprobe/internal/search"
)

const (
	ConfigFileName  = "report-config.json"
	DatasetFileName = "dataset.csv"
	SummaryFileName = "summary.json"
)

var datasetHeader = []string{"sockets", "rps", "requests"}

// Meta describes the run a report folder belongs to.
type Meta struct {
	RunID         string    `json:"runId"`
	Host          string    `json:"host"`
	Port          int       `json:"port"`
	Path          string    `json:"path"`
	URL           string    `json:"url"`
	TotalRequests int       `json:"totalRequests"`
	Low           int       `json:"low"`
	High          int       `json:"high"`
	Date          time.Time `json:"date"`
}

// Report is the on-disk sink of one search run. Dataset rows are appended in
// the order trials complete and never rewritten.
type Report struct {
	Dir string

	mu      sync.Mutex
	dataset *os.File
	w       *csv.Writer
	rows    int
}

// Create makes <baseDir>/<unixMillis>-<host> and seeds its config and dataset
// files.
func Create(baseDir string, meta Meta) (*Report, error) {
	if meta.Date.IsZero() {
		meta.Date = time.Now()
	}
	dir := filepath.Join(baseDir, FolderName(meta.Date, meta.Host))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write report config: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, DatasetFileName), os.O_CREATE|os.O_WRONLY|os.O_EXCL|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}

	r := &Report{Dir: dir, dataset: f, w: csv.NewWriter(f)}
	if err := r.writeRow(datasetHeader); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func FolderName(t time.Time, host string) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), host)
}

// ProfileName is sockets=<level>-rps=<floor(rps)> plus the profile extension.
func ProfileName(level int, rps float64) string {
	return fmt.Sprintf("sockets=%d-rps=%d%s", level, int64(math.Floor(rps)), profile.Extension)
}

// WriteTrial appends the trial to the dataset and stores its profile, if any.
func (r *Report) WriteTrial(rec search.Record, prof []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeRow([]string{
		strconv.Itoa(rec.Level),
		strconv.FormatFloat(rec.Throughput, 'f', -1, 64),
		strconv.Itoa(rec.RequestCount),
	}); err != nil {
		return err
	}
	r.rows++

	if prof == nil {
		return nil
	}
	path := filepath.Join(r.Dir, ProfileName(rec.Level, rec.Throughput))
	if err := os.WriteFile(path, prof, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

func (r *Report) writeRow(row []string) error {
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("failed to append dataset row: %w", err)
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("failed to flush dataset: %w", err)
	}
	return nil
}

// Rows returns how many trial rows were appended.
func (r *Report) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

type summary struct {
	Level      int             `json:"level"`
	Window     search.Window   `json:"window"`
	Final      search.Window   `json:"final"`
	Iterations int             `json:"iterations"`
	Best       search.Record   `json:"best"`
	Trials     []search.Record `json:"trials"`
	DurationMs int64           `json:"durationMs"`
}

// WriteSummary records the chosen level once the search ends.
func (r *Report) WriteSummary(res *search.Result) error {
	data, err := json.MarshalIndent(summary{
		Level:      res.Level,
		Window:     res.Window,
		Final:      res.Final,
		Iterations: res.Iterations,
		Best:       res.Best,
		Trials:     res.Trials,
		DurationMs: res.Duration.Milliseconds(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.Dir, SummaryFileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (r *Report) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dataset == nil {
		return nil
	}
	err := r.dataset.Close()
	r.dataset = nil
	return err
}
