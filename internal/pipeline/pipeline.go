package pipeline

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// RunnerStats are the counters of a Runner.
type RunnerStats struct {
	State    State `json:"-"`
	Chained  int64 `json:"chained"`
	Absorbed int64 `json:"absorbed"`
}

// Runner drives a single element: it brings the element up to PLAYING,
// chains input buffers into it, links its source pad to the sink, and
// tears everything down when the input ends, the context is cancelled or
// the element posts an error on the bus.
type Runner struct {
	log  *slog.Logger
	el   Element
	sink Sink
	bus  *Bus

	state    atomic.Int32
	chained  atomic.Int64
	absorbed atomic.Int64
}

// NewRunner creates a Runner pushing el's output into sink.
func NewRunner(el Element, sink Sink, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		log:  log.With("component", "runner", "element", el.Name()),
		el:   el,
		sink: sink,
		bus:  NewBus(),
	}
}

// Bus returns the bus the element posts errors to.
func (r *Runner) Bus() *Bus {
	return r.bus
}

// Stats returns a snapshot of the runner counters.
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		State:    State(r.state.Load()),
		Chained:  r.chained.Load(),
		Absorbed: r.absorbed.Load(),
	}
}

func (r *Runner) setState(target State) error {
	for _, c := range StateChanges(State(r.state.Load()), target) {
		if r.el.ChangeState(c) == StateChangeFailure {
			return errors.Errorf("pipeline: %s: state change %s failed", r.el.Name(), c)
		}
		r.state.Store(int32(c.To))
		r.log.Debug("state changed", "transition", c.String())
	}
	return nil
}

func (r *Runner) busError() error {
	if e, ok := r.bus.Pop(); ok {
		return e
	}
	return nil
}

// Run blocks until in is closed, ctx is cancelled or the element fails.
// Closing in sends end-of-stream through the element. Flow results other
// than ok and eos are absorbed; the element reports real failures on the
// bus and those end the run with the posted error.
func (r *Runner) Run(ctx context.Context, in <-chan *Buffer) (err error) {
	r.el.SetBus(r.bus)
	r.el.SrcPad().Link(r.sink)

	if err := r.setState(StatePlaying); err != nil {
		_ = r.setState(StateNull)
		return err
	}
	defer func() {
		if serr := r.setState(StateNull); serr != nil && err == nil {
			err = serr
		}
	}()

	r.el.SinkEvent(NewSegmentEvent(0))

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-r.bus.Notify():
			if err := r.busError(); err != nil {
				return err
			}

		case buf, ok := <-in:
			if !ok {
				r.log.Info("input closed, sending eos")
				r.el.SinkEvent(NewEOSEvent())
				return r.busError()
			}
			ret := r.el.Chain(buf)
			r.chained.Inc()
			if err := r.busError(); err != nil {
				return err
			}
			switch ret {
			case FlowOK:
			case FlowEOS:
				r.log.Info("downstream reached eos")
				return nil
			default:
				r.absorbed.Inc()
				r.log.Debug("flow result absorbed", "result", ret.String())
			}
		}
	}
}
