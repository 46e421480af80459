// Package dispatcher routes inbound feed events to the per-product
// Pipeline an Engine consumes from, and owns the NOT_STARTED →
// STARTED → STOP_SENDING → CLOSING_PIPE state machine that governs
// that routing.
package dispatcher

import (
	"sync"

	"orderbookd/internal/errs"
	"orderbookd/pkg/types"
)

// State is a Pipeline's lifecycle state.
type State int

const (
	NotStarted State = iota
	Started
	StopSending
	ClosingPipe
)

// Sentinel values an Engine's inbox can receive alongside *types.Event.
// Started precedes any event in a pipeline's FIFO order; ClosingPipe is
// always the terminal element.
type Sentinel int

const (
	StartedSentinel Sentinel = iota
	ClosingPipeSentinel
)

// Pipeline is one product's inbound queue plus its lifecycle state.
// The Dispatcher is its sole producer; the owning Engine is its sole
// consumer.
type Pipeline struct {
	mu    sync.Mutex
	state State
	inbox chan any // carries *types.Event or Sentinel
}

// NewPipeline returns a pipeline in NOT_STARTED state with the given
// inbox capacity (0 for unbounded-feeling but still backpressuring
// behaviour is not representable with Go channels, so callers pick a
// buffer sized to tolerate a burst without blocking the feed task).
func NewPipeline(capacity int) *Pipeline {
	return &Pipeline{
		state: NotStarted,
		inbox: make(chan any, capacity),
	}
}

// Inbox returns the channel the owning Engine consumes from.
func (p *Pipeline) Inbox() <-chan any {
	return p.inbox
}

// State reports the pipeline's current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// StopSending transitions STARTED → STOP_SENDING. Only the owning
// Engine calls this, after an unrecoverable startup rebuild failure.
func (p *Pipeline) StopSending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Started {
		p.state = StopSending
	}
}

// Close transitions the pipeline to CLOSING_PIPE and enqueues the
// terminal sentinel. Safe to call once; the caller (bootstrap/shutdown
// path) is expected to serialize calls per product.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.state = ClosingPipe
	p.mu.Unlock()
	p.inbox <- ClosingPipeSentinel
}

// Dispatcher routes events to the Pipeline registered for their
// product_id.
type Dispatcher struct {
	pipelines map[string]*Pipeline
	logger    logger
}

// logger is the minimal surface Dispatcher needs; satisfied by *slog.Logger.
type logger interface {
	Error(msg string, args ...any)
}

// New returns a Dispatcher routing to the given product→pipeline map.
func New(pipelines map[string]*Pipeline, log logger) *Dispatcher {
	return &Dispatcher{pipelines: pipelines, logger: log}
}

// Dispatch routes event to its product's pipeline, injecting the
// STARTED sentinel ahead of the first event the pipeline ever sees.
// Unknown products and backpressured/closing pipelines drop the event.
func (d *Dispatcher) Dispatch(event *types.Event) {
	p, ok := d.pipelines[event.ProductID]
	if !ok {
		d.logger.Error("dispatch: unknown product", "err", &errs.DispatchUnknownProduct{ProductID: event.ProductID})
		return
	}

	p.mu.Lock()
	state := p.state
	if state == NotStarted {
		p.state = Started
	}
	p.mu.Unlock()

	switch state {
	case NotStarted:
		p.inbox <- StartedSentinel
		p.inbox <- event
	case Started:
		p.inbox <- event
	case StopSending, ClosingPipe:
	}
}
