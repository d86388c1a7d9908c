// ABOUTME: Bubbletea model for the now-playing view
// ABOUTME: Polls queue status on a tick and forwards volume keys to the sink
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// refreshInterval is how often the model polls for a new Status
const refreshInterval = 200 * time.Millisecond

// Status is a snapshot of the player shown by the view
type Status struct {
	Title   string
	Index   int // 1-based position of the current track, 0 when none
	Total   int
	State   string
	Pending int

	SampleRate int
	Channels   int
	BitDepth   int
}

// Controls receives volume changes; output sinks with software gain satisfy it
type Controls interface {
	SetVolume(volume int)
	SetMuted(muted bool)
}

// DoneMsg tells the model playback ended
type DoneMsg struct {
	Err error
}

type tickMsg time.Time

// Model represents the TUI state
type Model struct {
	poll     func() Status
	controls Controls

	status Status
	volume int
	muted  bool
	done   bool
	err    error

	width  int
	height int
}

// NewModel creates a model polling status from poll. controls may be nil.
func NewModel(poll func() Status, controls Controls, volume int) Model {
	return Model{
		poll:     poll,
		controls: controls,
		volume:   volume,
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init polls once and starts the refresh tick
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(time.Now()) }
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if m.poll != nil {
			m.status = m.poll()
		}
		return m, tick()
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("┌─ Sendspin Queue ─────────────────────────────────────┐\n")

	if m.status.Index > 0 {
		fmt.Fprintf(&b, "│ Track %d/%d: %-40s │\n", m.status.Index, m.status.Total, truncate(m.status.Title, 40))
	} else {
		fmt.Fprintf(&b, "│ %-52s │\n", "Nothing queued")
	}
	fmt.Fprintf(&b, "│ State:   %-10s Pending: %-23d │\n", m.status.State, m.status.Pending)
	if m.status.SampleRate > 0 {
		format := fmt.Sprintf("%dHz %s %d-bit", m.status.SampleRate, channelName(m.status.Channels), m.status.BitDepth)
		fmt.Fprintf(&b, "│ Output:  %-43s │\n", format)
	}

	muteIcon := ""
	if m.muted {
		muteIcon = " muted"
	}
	volume := fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon)
	fmt.Fprintf(&b, "│ Volume:  %-43s │\n", volume)

	b.WriteString("├──────────────────────────────────────────────────────┤\n")
	if m.done {
		fmt.Fprintf(&b, "│ %-52s │\n", "Playback finished")
	}
	b.WriteString("│ ↑/↓:Volume  m:Mute  q:Quit                           │\n")
	b.WriteString("└──────────────────────────────────────────────────────┘\n")
	return b.String()
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "+":
		m.setVolume(m.volume + 5)
	case "down", "-":
		m.setVolume(m.volume - 5)
	case "m":
		m.muted = !m.muted
		if m.controls != nil {
			m.controls.SetMuted(m.muted)
		}
	}
	return m, nil
}

func (m *Model) setVolume(v int) {
	v = max(0, min(100, v))
	if v == m.volume {
		return
	}
	m.volume = v
	if m.controls != nil {
		m.controls.SetVolume(v)
	}
}

func renderBar(value, full, width int) string {
	filled := (value * width) / full
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}
