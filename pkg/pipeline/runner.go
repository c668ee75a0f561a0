// Package pipeline schedules a DAG of named stages over a bounded
// worker pool. Dependency edges are the only ordering guarantee; a
// failed stage marks all transitive dependents skipped, and there are
// no retries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrSkipDownstream can be returned from a stage to stop the pipeline
// cleanly: the stage counts as succeeded and every transitive dependent
// is marked skipped. The run as a whole still succeeds.
var ErrSkipDownstream = errors.New("skip downstream stages")

var (
	ErrDuplicateStage = errors.New("duplicate stage")
	ErrUnknownStage   = errors.New("unknown stage dependency")
	ErrStagesFailed   = errors.New("stages failed")
)

type node struct {
	stage      *Stage
	err        error
	dependents []*node
	duration   time.Duration
	status     atomic.Int32
	depCount   atomic.Int32
	skipOnce   sync.Once
}

// Runner owns a set of stages and executes them in dependency order.
type Runner struct {
	nodes   map[string]*node
	order   []string
	subs    []func(any)
	workers int
	mu      sync.Mutex
}

// NewRunner creates a Runner executing at most workers stages
// concurrently. workers < 1 means one worker per stage.
func NewRunner(workers int) *Runner {
	return &Runner{
		nodes:   map[string]*node{},
		workers: workers,
	}
}

// Add registers a stage. Stage IDs must be unique.
func (r *Runner) Add(stage *Stage) error {
	if _, ok := r.nodes[stage.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateStage, stage.ID)
	}

	r.nodes[stage.ID] = &node{stage: stage}
	r.order = append(r.order, stage.ID)

	return nil
}

// Subscribe registers a callback receiving pipeline events. Callbacks
// run on scheduler goroutines and must not block.
func (r *Runner) Subscribe(f func(any)) {
	r.subs = append(r.subs, f)
}

func (r *Runner) broadcastEvent(evt any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.subs {
		sub(evt)
	}
}

// Run executes all stages and returns a summary. The returned error is
// non-nil when any stage failed; its cause is the first failure.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.link(); err != nil {
		return nil, err
	}

	start := time.Now()

	r.broadcastEvent(EventSetStageTotal(len(r.order)))

	readyCh := make(chan *node, len(r.nodes))

	var wg sync.WaitGroup

	wg.Add(len(r.nodes))

	for _, id := range r.order {
		n := r.nodes[id]
		if n.depCount.Load() == 0 {
			readyCh <- n
		}
	}

	go func() {
		wg.Wait()
		close(readyCh)
	}()

	workers := r.workers
	if workers < 1 {
		workers = len(r.nodes)
	}

	g := &errgroup.Group{}

	for range workers {
		g.Go(func() error {
			r.worker(ctx, readyCh, &wg)

			return nil
		})
	}

	// Workers only record per-stage failures, so this cannot error.
	_ = g.Wait()

	summary := r.summarize(time.Since(start))

	err := r.runError(summary)
	r.broadcastEvent(EventDone{Err: err})

	return summary, err
}

// link resolves dependency edges and resets per-run state.
func (r *Runner) link() error {
	for _, id := range r.order {
		n := r.nodes[id]
		n.dependents = nil
		n.depCount.Store(0)
		n.status.Store(int32(StatusPending))
		n.err = nil
		n.duration = 0
		n.skipOnce = sync.Once{}
	}

	for _, id := range r.order {
		n := r.nodes[id]
		for _, need := range n.stage.Needs {
			dep, ok := r.nodes[need]
			if !ok {
				return fmt.Errorf("%w: stage %q needs %q", ErrUnknownStage, id, need)
			}

			dep.dependents = append(dep.dependents, n)
			n.depCount.Add(1)
		}
	}

	return nil
}

func (r *Runner) worker(ctx context.Context, readyCh chan *node, wg *sync.WaitGroup) {
	for n := range readyCh {
		if ctx.Err() != nil {
			n.skipOnce.Do(func() {
				r.finishStage(n, StatusSkipped, ctx.Err())
				wg.Done()
			})

			continue
		}

		r.runStage(ctx, n, readyCh, wg)
	}
}

func (r *Runner) runStage(ctx context.Context, n *node, readyCh chan *node, wg *sync.WaitGroup) {
	id := n.stage.ID

	n.status.Store(int32(StatusRunning))
	r.broadcastEvent(EventStageStarted(id))
	slog.Debug("stage started", slog.String("stage", id))

	start := time.Now()
	err := n.stage.Run(ctx)
	n.duration = time.Since(start)

	switch {
	case err == nil:
		r.finishStage(n, StatusSucceeded, nil)

		for _, dependent := range n.dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyCh <- dependent
			}
		}

	case errors.Is(err, ErrSkipDownstream):
		r.finishStage(n, StatusSucceeded, nil)
		r.skipDependents(n, wg)

	default:
		r.finishStage(n, StatusFailed, err)
		r.skipDependents(n, wg)
	}

	wg.Done()
}

func (r *Runner) finishStage(n *node, status Status, err error) {
	n.status.Store(int32(status))
	n.err = err

	slog.Debug("stage finished",
		slog.String("stage", n.stage.ID),
		slog.String("status", status.String()),
		slog.Any("err", err),
	)

	r.broadcastEvent(EventStageFinished{
		Stage:  n.stage.ID,
		Status: status,
		Err:    err,
	})
}

// skipDependents marks all transitive dependents of n skipped. Each
// node is only ever skipped once even when multiple upstreams fail.
func (r *Runner) skipDependents(n *node, wg *sync.WaitGroup) {
	for _, dependent := range n.dependents {
		dependent.skipOnce.Do(func() {
			r.finishStage(dependent, StatusSkipped, nil)
			wg.Done()
			r.skipDependents(dependent, wg)
		})
	}
}

func (r *Runner) summarize(duration time.Duration) *Summary {
	summary := &Summary{Duration: duration}

	for _, id := range r.order {
		n := r.nodes[id]
		summary.Results = append(summary.Results, StageResult{
			ID:       id,
			Status:   Status(n.status.Load()),
			Err:      n.err,
			Duration: n.duration,
		})
	}

	return summary
}

func (r *Runner) runError(summary *Summary) error {
	failed := summary.Failed()
	if len(failed) == 0 {
		return nil
	}

	ids := make([]string, 0, len(failed))
	for _, res := range failed {
		ids = append(ids, res.ID)
	}

	return fmt.Errorf("%w (%v): %w", ErrStagesFailed, ids, failed[0].Err)
}
