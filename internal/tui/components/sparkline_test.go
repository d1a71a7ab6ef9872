package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestSparkline_KeepsWindow(t *testing.T) {
	s := NewSparkline(3, "rps", lipgloss.NewStyle())
	for _, v := range []float64{1, 5, 2, 3} {
		s.Add(v)
	}

	assert.Equal(t, []float64{5, 2, 3}, s.Data)
	assert.Equal(t, 5.0, s.Max)
}

func TestSparkline_View(t *testing.T) {
	s := NewSparkline(4, "rps", lipgloss.NewStyle())
	s.Add(0)
	s.Add(8)

	lines := strings.Split(s.View(), "\n")
	assert.Equal(t, "rps", lines[0])
	assert.Contains(t, lines[1], "█")
}

func TestGlyph(t *testing.T) {
	assert.Equal(t, " ", glyph(0, 10))
	assert.Equal(t, "█", glyph(10, 10))
	assert.Equal(t, "▄", glyph(5, 10))
}
