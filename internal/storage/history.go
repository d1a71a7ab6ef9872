package storage

import (
	"time"

	"poolprobe/internal/search"
)

// HistoryItem is the stored summary of one finished search run.
type HistoryItem struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	URL        string          `json:"url"`
	Requests   int             `json:"requests"`
	Bounds     search.Window   `json:"bounds"`
	Level      int             `json:"level"`
	Window     search.Window   `json:"window"`
	Iterations int             `json:"iterations"`
	Best       search.Record   `json:"best"`
	Trials     []search.Record `json:"trials"`
	ReportDir  string          `json:"report_dir"`
}

// NewHistoryItem summarizes a search result.
func NewHistoryItem(id, url string, requests int, res *search.Result, reportDir string) HistoryItem {
	return HistoryItem{
		ID:         id,
		Timestamp:  time.Now(),
		URL:        url,
		Requests:   requests,
		Bounds:     res.Bounds,
		Level:      res.Level,
		Window:     res.Window,
		Iterations: res.Iterations,
		Best:       res.Best,
		Trials:     res.Trials,
		ReportDir:  reportDir,
	}
}
