package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"poolprobe/internal/banner"
	"poolprobe/internal/probe"
	"poolprobe/internal/search"
	"poolprobe/internal/tui/live"
	"poolprobe/internal/tui/styles"
)

// ErrAborted is returned when the user quits before the search finishes.
var ErrAborted = errors.New("search aborted")

type doneMsg struct {
	res *search.Result
	err error
}

type Model struct {
	Live    live.Model
	Updates search.UpdateChan
	Trials  probe.TrialChan

	run    func(ctx context.Context) (*search.Result, error)
	ctx    context.Context
	cancel context.CancelFunc

	Result   *search.Result
	Err      error
	Aborting bool
	Quitting bool
}

func NewModel(ctx context.Context, bounds search.Window, run func(ctx context.Context) (*search.Result, error), updates search.UpdateChan, trials probe.TrialChan) Model {
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		Live:    live.NewModel(bounds),
		Updates: updates,
		Trials:  trials,
		run:     run,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.startSearch(),
		waitForIteration(m.Updates),
		waitForTrial(m.Trials),
	)
}

func (m Model) startSearch() tea.Cmd {
	return func() tea.Msg {
		res, err := m.run(m.ctx)
		return doneMsg{res: res, err: err}
	}
}

func waitForIteration(sub search.UpdateChan) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func waitForTrial(sub probe.TrialChan) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			// quit once the cancelled search has returned
			m.cancel()
			m.Aborting = true
			return m, nil
		}

	case search.Iteration:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, tea.Batch(cmd, waitForIteration(m.Updates))

	case search.Record:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, tea.Batch(cmd, waitForTrial(m.Trials))

	case doneMsg:
		m.cancel()
		m.Quitting = true
		if m.Aborting {
			m.Err = ErrAborted
			return m, tea.Quit
		}
		m.Result = msg.res
		m.Err = msg.err
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.Live, cmd = m.Live.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	s := strings.Builder{}
	s.WriteString(banner.GetString())
	s.WriteString("\n")
	s.WriteString(m.Live.View())
	s.WriteString("\n\n")
	if m.Aborting {
		s.WriteString(styles.Subtle.Render("Aborting, waiting for the current trial to stop..."))
	} else {
		s.WriteString(styles.RenderKey("q", "abort"))
	}
	return s.String()
}

// searchTask lets Run outlive the program only as long as the search it
// started. A search the program never got to start is refused.
type searchTask struct {
	run  func(ctx context.Context) (*search.Result, error)
	done chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

func (t *searchTask) Run(ctx context.Context) (*search.Result, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrAborted
	}
	t.started = true
	t.mu.Unlock()

	defer close(t.done)
	return t.run(ctx)
}

// Wait blocks until a started search has returned.
func (t *searchTask) Wait() {
	t.mu.Lock()
	t.closed = true
	started := t.started
	t.mu.Unlock()
	if started {
		<-t.done
	}
}

// Run shows the live view until the search has returned, either on its own or
// after the user aborted it.
func Run(ctx context.Context, bounds search.Window, run func(ctx context.Context) (*search.Result, error), updates search.UpdateChan, trials probe.TrialChan) (*search.Result, error) {
	task := &searchTask{run: run, done: make(chan struct{})}
	model := NewModel(ctx, bounds, task.Run, updates, trials)

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	model.cancel()
	task.Wait()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	m := final.(Model)
	return m.Result, m.Err
}
