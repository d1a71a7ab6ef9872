package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"poolprobe/internal/search"
)

func defaultSettings() Settings {
	return Settings{
		Host:     DefaultHost,
		Port:     DefaultPort,
		Path:     DefaultPath,
		Scheme:   "https",
		Requests: 1000,
		Low:      1,
		High:     1000,
		Jitter:   30 * time.Millisecond,
		Cooldown: 5 * time.Second,
	}
}

func TestSettings_URL(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Settings)
		want string
	}{
		{"default https port omitted", func(*Settings) {}, "https://betinia.com/ping.json"},
		{"custom port", func(s *Settings) { s.Port = 8443 }, "https://betinia.com:8443/ping.json"},
		{"plain http", func(s *Settings) { s.Scheme = "http"; s.Port = 80 }, "http://betinia.com/ping.json"},
		{"path without slash", func(s *Settings) { s.Path = "health" }, "https://betinia.com/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			tt.mod(&s)
			assert.Equal(t, tt.want, s.URL())
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mod     func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"missing host", func(s *Settings) { s.Host = "" }, true},
		{"bad port", func(s *Settings) { s.Port = 0 }, true},
		{"bad scheme", func(s *Settings) { s.Scheme = "ftp" }, true},
		{"no requests", func(s *Settings) { s.Requests = 0 }, true},
		{"inverted bounds", func(s *Settings) { s.Low = 10; s.High = 5 }, true},
		{"singleton bounds", func(s *Settings) { s.Low = 5; s.High = 5 }, false},
		{"negative cooldown", func(s *Settings) { s.Cooldown = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultSettings()
			tt.mod(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettings_ValidateBoundsError(t *testing.T) {
	s := defaultSettings()
	s.Low = 0
	assert.ErrorIs(t, s.Validate(), search.ErrInvalidBounds)
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders([]string{"Authorization: Bearer x", "bogus", " X-Env :  staging "})
	assert.Equal(t, map[string]string{"Authorization": "Bearer x", "X-Env": "staging"}, got)
}
