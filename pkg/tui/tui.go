// Package tui is a live terminal view of a running test: channel,
// frequency, state and counters, with q to stop the run.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/herlein/gocw/pkg/rftest"
)

// Messages
type (
	// EventMsg carries a controller event
	EventMsg rftest.Event
	// LineMsg carries a console line
	LineMsg string
	// DoneMsg ends the program with the result of the run
	DoneMsg struct{ Err error }

	tickMsg time.Time
)

// Info describes the run in the header
type Info struct {
	Backend string
	Device  string
	Mode    rftest.EmissionMode
	Power   int
	Dwell   time.Duration
}

// Model is the bubbletea model
type Model struct {
	info    Info
	cancel  func()
	poll    func() rftest.Status
	spinner spinner.Model

	status   rftest.Status
	started  time.Time
	now      time.Time
	lines    []string
	maxLines int

	quitting bool
	done     bool
	err      error
}

// New builds a model. cancel stops the run; poll, when non-nil, refreshes
// the counters every tick.
func New(info Info, cancel func(), poll func() rftest.Status) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	return Model{
		info:     info,
		cancel:   cancel,
		poll:     poll,
		spinner:  s,
		status:   rftest.Status{Mode: info.Mode},
		maxLines: 8,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			// wait for DoneMsg so the carrier is off before the screen goes
			return m, nil
		}

	case EventMsg:
		m.status = msg.Status
		m.now = msg.Time
		if msg.Kind == rftest.EventStarted {
			m.started = msg.Time
		}

	case LineMsg:
		m.addLine(strings.TrimRight(string(msg), "\n"))

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case tickMsg:
		m.now = time.Time(msg)
		if m.poll != nil {
			m.status = m.poll()
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) addLine(line string) {
	if line == "" {
		return
	}
	m.lines = append(m.lines, line)
	if len(m.lines) > m.maxLines {
		m.lines = m.lines[len(m.lines)-m.maxLines:]
	}
}

// Status returns the last known controller status
func (m Model) Status() rftest.Status {
	return m.status
}

// Err returns the run result once DoneMsg arrived
func (m Model) Err() error {
	return m.err
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m Model) elapsed() time.Duration {
	if m.started.IsZero() || m.now.Before(m.started) {
		return 0
	}
	return m.now.Sub(m.started).Truncate(time.Second)
}

func (m Model) View() string {
	if m.done {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("Stopped: %v", m.err)) + "\n"
		}
		return "Stopped.\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("GOCW - " + strings.ToUpper(m.info.Mode.String())))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("Backend: %s %s | Power: %.2f dBm | Dwell: %s | Press 'q' to stop",
		m.info.Backend, m.info.Device, rftest.PowerDBm(m.info.Power), m.info.Dwell)))
	s.WriteString("\n\n")

	state := m.status.State.String()
	if m.quitting {
		state = "STOPPING"
	}

	var body strings.Builder
	body.WriteString(fmt.Sprintf("%s %s %s\n", m.spinner.View(), labelStyle.Render("State:"), valueStyle.Render(state)))
	if rftest.ValidChannel(m.status.Channel) {
		body.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Channel:"),
			valueStyle.Render(rftest.ChannelLabel(m.status.Channel))))
	}
	body.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Hops:"), valueStyle.Render(fmt.Sprintf("%d", m.status.Hops)),
		labelStyle.Render("Elapsed:"), valueStyle.Render(m.elapsed().String())))
	if m.status.Mode == rftest.FrameFlood {
		body.WriteString(fmt.Sprintf("\n%s %s   %s %s",
			labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", m.status.FramesSent)),
			labelStyle.Render("Dropped:"), errorStyle.Render(fmt.Sprintf("%d", m.status.FramesDropped))))
	}
	s.WriteString(boxStyle.Render(body.String()))
	s.WriteString("\n")

	for _, line := range m.lines {
		s.WriteString(headerStyle.Render(line))
		s.WriteString("\n")
	}

	return s.String()
}

// Sender is the part of *tea.Program the bridge needs
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards controller events and console lines into a program. It
// implements rftest.Observer.
type Bridge struct {
	p Sender
}

func NewBridge(p Sender) *Bridge {
	return &Bridge{p: p}
}

func (b *Bridge) Observe(event rftest.Event) {
	b.p.Send(EventMsg(event))
}

// Line forwards one console line
func (b *Bridge) Line(line string) {
	b.p.Send(LineMsg(line))
}

// Done ends the program
func (b *Bridge) Done(err error) {
	b.p.Send(DoneMsg{Err: err})
}
