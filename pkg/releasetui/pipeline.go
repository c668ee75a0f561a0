package releasetui

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drops-platform/dropship/pkg/log"
	"github.com/drops-platform/dropship/pkg/pipeline"
)

// PipelineRunner is the slice of [pipeline.Runner] the TUI drives.
type PipelineRunner interface {
	Run(ctx context.Context) (*pipeline.Summary, error)
	Subscribe(f func(any))
}

// PipelineTUI runs a pipeline while rendering its events. Log output
// is rerouted through the TUI so slog lines print above the progress
// display instead of corrupting it.
type PipelineTUI struct {
	runner PipelineRunner
	p      *tea.Program
	w      io.Writer
}

// NewPipelineTUI wires a TUI to runner, replacing the default slog
// handler with one that writes through the TUI at lvl.
func NewPipelineTUI(w io.Writer, lvl slog.Level, runner PipelineRunner) *PipelineTUI {
	c := &PipelineTUI{
		runner: runner,
		w:      w,
	}

	c.runner.Subscribe(c.broadcastEvent)

	slog.SetDefault(
		slog.New(log.CreateHandler(c, lvl, log.FormatText)),
	)

	return c
}

func (c *PipelineTUI) broadcastEvent(evt any) {
	if c.p != nil {
		c.p.Send(evt)
	}
}

func (c *PipelineTUI) Write(p []byte) (int, error) {
	c.broadcastEvent(teaMsgWriteLog(string(p)))

	return len(p), nil
}

// Run executes the pipeline under the TUI and returns its summary.
func (c *PipelineTUI) Run(ctx context.Context) (*pipeline.Summary, error) {
	c.p = tea.NewProgram(NewRunModel(), tea.WithOutput(c.w))

	type outcome struct {
		summary *pipeline.Summary
		err     error
	}

	outcomeCh := make(chan outcome, 1)

	go func() {
		summary, err := c.runner.Run(ctx)
		outcomeCh <- outcome{summary: summary, err: err}
	}()

	if _, err := c.p.Run(); err != nil {
		return nil, fmt.Errorf("failed to launch tui: %w", err)
	}

	res := <-outcomeCh

	return res.summary, res.err
}
