package live

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"poolprobe/internal/search"
	"poolprobe/internal/tui/components"
	"poolprobe/internal/tui/styles"
)

// Model shows a running search: the current window, how far it has shrunk,
// and every trial so far.
type Model struct {
	Bounds    search.Window
	Window    search.Window
	Last      *search.Iteration
	Trials    []search.Record
	Progress  progress.Model
	RpsLine   components.Sparkline
	Table     table.Model
	StartTime time.Time

	Width  int
	Height int
}

func NewModel(bounds search.Window) Model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Sockets", Width: 8},
		{Title: "RPS", Width: 12},
		{Title: "P50 (ms)", Width: 10},
		{Title: "P99 (ms)", Width: 10},
		{Title: "Fail", Width: 6},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(8),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.ColorPrimary)
	t.SetStyles(s)

	return Model{
		Bounds:    bounds,
		Window:    bounds,
		Progress:  progress.New(progress.WithDefaultGradient()),
		RpsLine:   components.NewSparkline(40, "RPS per trial", styles.Active),
		Table:     t,
		StartTime: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Narrowed is the fraction of the initial range already discarded.
func (m Model) Narrowed() float64 {
	total := m.Bounds.Width()
	if total <= 0 || !m.Window.Active() {
		return 1
	}
	return 1 - float64(m.Window.Width())/float64(total)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case search.Record:
		m.Trials = append(m.Trials, msg)
		m.RpsLine.Add(msg.Throughput)
		m.Table.SetRows(append(m.Table.Rows(), table.Row{
			strconv.Itoa(len(m.Trials)),
			strconv.Itoa(msg.Level),
			fmt.Sprintf("%.2f", msg.Throughput),
			fmt.Sprintf("%.1f", msg.P50Ms),
			fmt.Sprintf("%.1f", msg.P99Ms),
			strconv.FormatUint(msg.Fail, 10),
		}))
		m.Table.GotoBottom()
		return m, nil

	case search.Iteration:
		m.Last = &msg
		m.Window = msg.Next
		return m, m.Progress.SetPercent(m.Narrowed())

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4
		half := (msg.Width / 2) - 4
		if half < 10 {
			half = 10
		}
		m.RpsLine.Width = half
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}

	col1 := fmt.Sprintf("WINDOW: %s\nBOUNDS: %s", m.Window, m.Bounds)
	col2 := fmt.Sprintf("TRIALS: %d\nELAPSED: %s", len(m.Trials), time.Since(m.StartTime).Round(time.Second))
	col3 := "ITER: -\nORDER: -"
	if m.Last != nil {
		col3 = fmt.Sprintf("ITER: %d\nORDER: %s", m.Last.Index, m.Last.Ordering)
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(styles.Active.Render(col1)),
		styles.Box.Render(col2),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")
	s.WriteString(styles.Box.Render(m.RpsLine.View()))
	s.WriteString("\n\n")
	s.WriteString(m.Table.View())
	s.WriteString("\n\n")
	s.WriteString(m.Progress.View())

	return s.String()
}
