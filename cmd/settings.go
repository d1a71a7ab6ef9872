package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"poolprobe/internal/search"
)

const (
	DefaultHost       = "betinia.com"
	DefaultPort       = 443
	DefaultPath       = "/ping.json"
	DefaultReportsDir = "./profilers-reports"
)

// Settings is the resolved configuration of one search run.
type Settings struct {
	Host     string
	Port     int
	Path     string
	Scheme   string
	Method   string
	Headers  map[string]string
	Insecure bool

	Requests     int
	Low          int
	High         int
	Jitter       time.Duration
	Cooldown     time.Duration
	TimeoutSec   int
	TrialTimeout time.Duration

	OutDir      string
	NoProfile   bool
	NoHistory   bool
	HistoryDB   string
	TUI         bool
	MetricsAddr string
	LogLevel    string
	LogFormat   string
}

func loadSettings() (Settings, error) {
	s := Settings{
		Host:         viper.GetString("host"),
		Port:         viper.GetInt("port"),
		Path:         viper.GetString("path"),
		Scheme:       viper.GetString("scheme"),
		Method:       viper.GetString("method"),
		Headers:      parseHeaders(viper.GetStringSlice("header")),
		Insecure:     viper.GetBool("insecure"),
		Requests:     viper.GetInt("requests"),
		Low:          viper.GetInt("low"),
		High:         viper.GetInt("high"),
		Jitter:       viper.GetDuration("jitter"),
		Cooldown:     viper.GetDuration("cooldown"),
		TimeoutSec:   viper.GetInt("timeout"),
		TrialTimeout: viper.GetDuration("trial-timeout"),
		OutDir:       viper.GetString("out"),
		NoProfile:    viper.GetBool("no-profile"),
		NoHistory:    viper.GetBool("no-history"),
		HistoryDB:    viper.GetString("history-db"),
		TUI:          viper.GetBool("tui"),
		MetricsAddr:  viper.GetString("metrics-addr"),
		LogLevel:     viper.GetString("log-level"),
		LogFormat:    viper.GetString("log-format"),
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	if s.Host == "" {
		return fmt.Errorf("host is required")
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	if s.Scheme != "http" && s.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", s.Scheme)
	}
	if s.Requests < 1 {
		return fmt.Errorf("requests per trial must be positive, got %d", s.Requests)
	}
	if s.Low < 1 || s.Low > s.High {
		return fmt.Errorf("%w: [%d, %d]", search.ErrInvalidBounds, s.Low, s.High)
	}
	if s.Jitter < 0 || s.Cooldown < 0 || s.TrialTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// URL joins the target parts, leaving out the port when it is the scheme's
// default.
func (s Settings) URL() string {
	host := s.Host
	if !(s.Scheme == "https" && s.Port == 443) && !(s.Scheme == "http" && s.Port == 80) {
		host = s.Host + ":" + strconv.Itoa(s.Port)
	}
	path := s.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{Scheme: s.Scheme, Host: host}
	return u.String() + path
}

func parseHeaders(raw []string) map[string]string {
	headers := make(map[string]string)
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return headers
}
