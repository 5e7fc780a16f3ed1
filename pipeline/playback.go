package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hedisam/flowgraph/element"
	"github.com/hedisam/flowgraph/monitoring"
)

// playbackController drives every live child through barrier-stepped
// playback transitions: no child is ever more than one step away from
// another at an observable boundary.
type playbackController struct {
	current element.State
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

func newPlaybackController(logger *zap.Logger, metrics *monitoring.Metrics) *playbackController {
	return &playbackController{
		current: element.Stopped,
		logger:  logger,
		metrics: metrics,
	}
}

func (pc *playbackController) state() element.State {
	return pc.current
}

// requestState decomposes the transition into single steps and applies
// each as a barrier over all children. A failed step halts the walk;
// the controller stays at the last fully-acknowledged state.
func (pc *playbackController) requestState(ctx context.Context, target element.State, children []*Child, onStep func(from, to element.State)) error {
	if !target.Valid() {
		return fmt.Errorf("pipeline: invalid target state %d", int32(target))
	}
	for pc.current != target {
		next := pc.current.StepToward(target)
		if err := pc.barrier(ctx, pc.current, next, children); err != nil {
			pc.metrics.ObserveStepFailure()
			return &StepError{From: pc.current, To: next, Err: err}
		}
		from := pc.current
		pc.current = next
		pc.metrics.ObserveStep(next.String())
		pc.logger.Debug("playback step complete",
			zap.Stringer("from", from),
			zap.Stringer("to", next),
		)
		if onStep != nil {
			onStep(from, next)
		}
	}
	return nil
}

// barrier issues one step to every child concurrently and waits for all
// acknowledgments. Children that acked a failed step keep their
// advanced state; that still satisfies the one-step invariant.
func (pc *playbackController) barrier(ctx context.Context, from, to element.State, children []*Child) error {
	if len(children) == 0 {
		return nil
	}
	var wg sync.WaitGroup
	errs := make([]error, len(children))
	for i, c := range children {
		wg.Add(1)
		go func(i int, c *Child) {
			defer wg.Done()
			if err := c.handle.Transition(ctx, from, to); err != nil {
				errs[i] = fmt.Errorf("%s: %w", c.name, err)
			}
		}(i, c)
	}
	wg.Wait()

	for i, c := range children {
		if errs[i] == nil {
			c.state = to
		}
	}
	return multierr.Combine(errs...)
}

// syncChild walks one late-joining child forward to the pipeline's
// current state, one step at a time, before it participates in any
// barrier.
func (pc *playbackController) syncChild(ctx context.Context, c *Child) error {
	for c.state != pc.current {
		next := c.state.StepToward(pc.current)
		if err := c.handle.Transition(ctx, c.state, next); err != nil {
			return &StepError{From: c.state, To: next, Err: fmt.Errorf("%s: %w", c.name, err)}
		}
		c.state = next
	}
	return nil
}
