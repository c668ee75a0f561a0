package releasetui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drops-platform/dropship/pkg/pipeline"
)

// RunModel renders one pipeline run.
type RunModel struct {
	err             error
	startedStages   []string
	completedStages []string
	totalStages     int
	spinner         spinner.Model
	progress        progress.Model
	width           int
	height          int
	mu              sync.RWMutex
	done            bool
}

// NewRunModel creates a model with no stages yet; totals arrive via
// [pipeline.EventSetStageTotal].
func NewRunModel() *RunModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	s := spinner.New()
	s.Style = spinnerStyle

	return &RunModel{
		startedStages:   []string{},
		completedStages: []string{},
		spinner:         s,
		progress:        p,
		mu:              sync.RWMutex{},
	}
}

func (m *RunModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.progress.SetPercent(0))
}

//nolint:ireturn // Third-party.
func (m *RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		if keyExits(msg) {
			return m, tea.Quit
		}

	case teaMsgWriteLog:
		return m, writeLog(msg, m.width)

	case pipeline.EventSetStageTotal:
		m.mu.Lock()
		defer m.mu.Unlock()

		m.totalStages = int(msg)

	case pipeline.EventStageStarted:
		m.mu.Lock()
		defer m.mu.Unlock()

		m.startedStages = append(m.startedStages, string(msg))

	case pipeline.EventStageFinished:
		return m.updateFinished(msg)

	case pipeline.EventDone:
		m.mu.Lock()
		defer m.mu.Unlock()

		m.err = msg.Err
		m.done = true

		return m, teaQuit()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case progress.FrameMsg:
		newModel, cmd := m.progress.Update(msg)
		if newModel, ok := newModel.(progress.Model); ok {
			m.progress = newModel
		}

		return m, cmd
	}

	return m, nil
}

func (m *RunModel) updateFinished(msg pipeline.EventStageFinished) (tea.Model, tea.Cmd) {
	m.mu.Lock()
	defer m.mu.Unlock()

	icon := statusMark(msg.Status)

	m.completedStages = append(m.completedStages, msg.Stage)
	completedCount := len(m.completedStages)

	progressCmd := m.progress.SetPercent(float64(completedCount) / float64(m.totalStages))

	line := fmt.Sprintf("%s %s", icon, msg.Stage)
	if msg.Err != nil {
		line = fmt.Sprintf("%s %s: %v", icon, msg.Stage, msg.Err)
	}

	return m, tea.Batch(
		progressCmd,
		tea.Println(line),
	)
}

func (m *RunModel) View() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.done {
		if m.err != nil {
			return renderError(m.err, m.width)
		}

		return doneStyle.Render(fmt.Sprintf("Done! %d stages completed.\n", len(m.completedStages)))
	}

	completedCount := len(m.completedStages)

	w := lipgloss.Width(strconv.Itoa(m.totalStages))
	stageCount := fmt.Sprintf(" %*d/%*d", w, completedCount, w, m.totalStages)

	prog := m.progress.View()
	progRendered := progressStyle.Render(prog + stageCount)
	progCellsRemaining := max(0, m.width-lipgloss.Width(progRendered))
	gap := strings.Repeat(" ", progCellsRemaining)
	progOut := progRendered + gap + "\n"

	inProgressStages := differenceStringSlices(m.startedStages, m.completedStages)

	spinners := []string{}

	for _, stage := range inProgressStages {
		spin := m.spinner.View() + " "
		cellsAvail := max(0, m.width-lipgloss.Width(spin))

		stageName := runningStyle.Render(stage)
		info := lipgloss.NewStyle().MaxWidth(cellsAvail).Render("Running " + stageName)

		cellsRemaining := max(0, m.width-lipgloss.Width(spin+info))
		gap := strings.Repeat(" ", cellsRemaining)

		spinners = append(spinners, spin+info+gap)
	}

	return strings.Join(spinners, "\n") + "\n" + progOut
}

func differenceStringSlices(a, b []string) []string {
	difference := []string{}

	for _, x := range a {
		if !slices.Contains(b, x) {
			difference = append(difference, x)
		}
	}

	return difference
}
