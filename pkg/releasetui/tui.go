// Package releasetui renders pipeline progress as an interactive
// terminal UI: a spinner per running stage, a progress bar, and one
// line per finished stage. Non-TTY runs should use plain logging
// instead.
package releasetui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drops-platform/dropship/pkg/pipeline"
)

var (
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("211"))
	doneStyle     = lipgloss.NewStyle().Margin(1, 2)
	errStyle      = lipgloss.NewStyle().Margin(1, 2)
	progressStyle = lipgloss.NewStyle().Margin(1, 2)
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	statusMarks = map[pipeline.Status]lipgloss.Style{
		pipeline.StatusSucceeded: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).SetString("✓"),
		pipeline.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).SetString("✗"),
		pipeline.StatusSkipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")).SetString("↷"),
	}
)

// teaMsgWriteLog carries one log line to print above the display.
type teaMsgWriteLog string

// statusMark returns the styled mark for a finished stage. Unexpected
// statuses render as success so the display stays usable.
func statusMark(status pipeline.Status) lipgloss.Style {
	if mark, ok := statusMarks[status]; ok {
		return mark
	}

	return statusMarks[pipeline.StatusSucceeded]
}

// teaQuit lets the last progress frame settle before quitting.
func teaQuit() tea.Cmd {
	return tea.Sequence(
		tea.Tick(500*time.Millisecond, func(_ time.Time) tea.Msg {
			return nil
		}),
		tea.Quit,
	)
}

func keyExits(msg tea.KeyMsg) bool {
	key := msg.String()

	return key == "ctrl+c" || key == "esc" || key == "q"
}

func writeLog(msg teaMsgWriteLog, width int) tea.Cmd {
	line := strings.Trim(string(msg), "\r\n")

	return tea.Println(lipgloss.NewStyle().Width(max(0, width-2)).Render(line))
}

func renderError(err error, width int) string {
	msg := strings.Trim(err.Error(), "\r\n")

	return errStyle.Width(max(0, width-2)).Render(msg + "\n")
}
