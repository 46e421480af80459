// Package engine implements the per-product actor that owns one Book,
// consumes its Pipeline's inbox, and drives the snapshot loader and L2
// formatter around it.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orderbookd/internal/book"
	"orderbookd/internal/dispatcher"
	"orderbookd/internal/errs"
	"orderbookd/internal/formatter"
	"orderbookd/internal/metrics"
	"orderbookd/internal/snapshot"
	"orderbookd/internal/validate"
	"orderbookd/pkg/types"
)

// Engine runs one product's consume loop to completion or until its
// pipeline delivers CLOSING_PIPE.
type Engine struct {
	productID      string
	book           *book.Book
	pipeline       *dispatcher.Pipeline
	loader         *snapshot.Loader
	formatter      *formatter.Formatter
	outbox         chan<- types.L2View
	errorThreshold int
	logger         *slog.Logger
	metrics        *metrics.Metrics // nil when metrics are disabled
}

// New returns an Engine for productID, wired to pipeline as its inbox
// and outbox as the sink for emitted L2 views. m may be nil, in which
// case no counters are recorded.
func New(productID string, pipeline *dispatcher.Pipeline, loader *snapshot.Loader, fmtr *formatter.Formatter, outbox chan<- types.L2View, errorThreshold int, logger *slog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		productID:      productID,
		book:           book.New(productID),
		pipeline:       pipeline,
		loader:         loader,
		formatter:      fmtr,
		outbox:         outbox,
		errorThreshold: errorThreshold,
		logger:         logger.With("component", "engine", "product_id", productID),
		metrics:        m,
	}
}

// Book exposes the owned book for read-only status inspection
// (internal/httpapi). The Engine is its sole writer.
func (e *Engine) Book() *book.Book { return e.book }

// Run blocks on the pipeline's inbox until STARTED arrives, performs
// the cold-start rebuild, then runs the consume loop. It returns nil on
// a clean CLOSING_PIPE exit, or an error if the cold-start rebuild
// exhausts its retry budget.
func (e *Engine) Run(ctx context.Context) error {
	item, ok := <-e.pipeline.Inbox()
	if !ok {
		return nil
	}
	if s, isSentinel := item.(dispatcher.Sentinel); !isSentinel || s != dispatcher.StartedSentinel {
		e.logger.Error("engine: expected STARTED sentinel first", "got", item)
	}

	attemptID := uuid.NewString()
	e.logger.Info("engine: cold-start rebuild", "attempt_id", attemptID)
	e.countRebuildAttempt()
	if err := e.loader.Rebuild(ctx, e.productID, e.book); err != nil {
		var unavailable *errs.SnapshotUnavailable
		if errors.As(err, &unavailable) {
			e.pipeline.StopSending()
			e.logger.Error("engine: cold-start snapshot unavailable, pipeline stopped", "attempt_id", attemptID, "err", err)
			return err
		}
		e.logger.Error("engine: cold-start rebuild failed", "attempt_id", attemptID, "err", err)
		return err
	}
	e.countRebuildSuccess()

	return e.consumeLoop(ctx)
}

func (e *Engine) consumeLoop(ctx context.Context) error {
	for {
		var item any
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-e.pipeline.Inbox():
			if !ok {
				return nil
			}
			item = v
		}

		if s, isSentinel := item.(dispatcher.Sentinel); isSentinel {
			if s == dispatcher.ClosingPipeSentinel {
				return nil
			}
			continue
		}

		event, ok := item.(*types.Event)
		if !ok {
			e.logger.Error("engine: inbox item is neither event nor sentinel", "item", item)
			continue
		}

		e.handle(event)

		if e.book.ErrorCount > e.errorThreshold {
			attemptID := uuid.NewString()
			e.countRebuildAttempt()
			if err := e.loader.Rebuild(ctx, e.productID, e.book); err != nil {
				e.logger.Warn("engine: threshold rebuild failed, will retry on next threshold trip", "attempt_id", attemptID, "err", err)
			} else {
				e.logger.Info("engine: threshold rebuild succeeded", "attempt_id", attemptID)
				e.countRebuildSuccess()
			}
			e.book.ErrorCount = 0
		}
	}
}

// handle runs one event through the sequence gate, validation, apply,
// and emit. Any fault is caught here, incrementing
// error_count with a log rather than propagating — a single bad event
// never stalls the pipeline.
func (e *Engine) handle(event *types.Event) {
	advance, ok := e.sequenceGate(event)
	if !ok {
		return
	}
	if !advance {
		return
	}

	if !validate.ShouldProcess(event) {
		return
	}
	if faults := validate.FormatErrors(event); len(faults) > 0 {
		strs := make([]string, len(faults))
		for i, f := range faults {
			strs[i] = string(f)
		}
		e.recordError(&errs.EventFormat{Event: *event, Faults: strs})
		return
	}

	if err := e.apply(event); err != nil {
		e.recordError(err)
		return
	}

	e.countProcessed()

	if e.formatter.ShouldOutput(event, e.book) && e.book.LastOutputSeq < e.book.CurrSeq {
		e.book.LastOutputSeq = e.book.CurrSeq
		e.outbox <- e.formatter.Format(e.book)
		e.countViewEmitted()
	}
}

// sequenceGate checks event.Sequence against the book's curr_seq.
// ok=false means the event was already fully handled (dropped as
// stale/duplicate, or failed as malformed) and handle must return
// without further processing. advance=false only ever accompanies
// ok=true in the drop-silently case.
func (e *Engine) sequenceGate(event *types.Event) (advance, ok bool) {
	if event.Sequence == nil {
		e.recordError(&errs.EventMalformed{Event: *event, Reason: "missing sequence"})
		return false, false
	}
	s := *event.Sequence
	c := e.book.CurrSeq

	if s <= c {
		return false, true
	}
	if s == c+1 {
		e.book.CurrSeq = s
		return true, true
	}

	e.logger.Warn("engine: sequence gap", "curr_seq", c, "event_seq", s)
	e.book.CurrSeq = s
	e.book.ErrorCount++
	e.countSequenceGap()
	return true, true
}

// apply routes event to the book mutation for its type.
func (e *Engine) apply(event *types.Event) error {
	switch types.EventType(event.Type) {
	case types.EventOpen:
		return e.applyOpen(event)
	case types.EventMatch:
		return e.applyMatch(event)
	case types.EventDone:
		return e.applyDone(event)
	default:
		return nil // "change" and any other type are unhandled
	}
}

func (e *Engine) applyOpen(event *types.Event) error {
	side := sideOf(event.Side)
	priceFloat, err := strconv.ParseFloat(event.Price, 64)
	if err != nil {
		return &errs.BookInconsistent{Event: *event, Reason: "open: non-numeric price"}
	}

	e.book.AddOrder(side, priceFloat, event.Price, types.Order{
		Price:   event.Price,
		Size:    event.ResolvedSize(),
		OrderID: event.ResolvedOrderID(),
	})
	return nil
}

func (e *Engine) applyMatch(event *types.Event) error {
	orderID := event.ResolvedOrderID()
	side, priceKey, ok := e.book.Locate(orderID)
	if !ok {
		return &errs.BookInconsistent{Event: *event, Reason: "match: maker order not on book"}
	}

	lvl := e.book.SideFor(side).Level(priceKey)
	if lvl == nil {
		return &errs.BookInconsistent{Event: *event, Reason: "match: level missing for indexed order"}
	}
	idx, found := lvl.Find(orderID)
	if !found {
		return &errs.BookInconsistent{Event: *event, Reason: "match: order missing from its level"}
	}

	resting, err := decimal.NewFromString(lvl.Orders[idx].Size)
	if err != nil {
		return &errs.BookInconsistent{Event: *event, Reason: "match: resting size not numeric"}
	}
	matchSize, err := decimal.NewFromString(event.Size)
	if err != nil {
		return &errs.BookInconsistent{Event: *event, Reason: "match: event size not numeric"}
	}

	remaining := resting.Sub(matchSize)
	if remaining.IsNegative() {
		e.logger.Warn("engine: match size exceeds resting size, clamping to 0", "order_id", orderID, "resting", resting, "match", matchSize)
		remaining = decimal.Zero
	}
	lvl.Orders[idx].Size = remaining.String()
	return nil
}

func (e *Engine) applyDone(event *types.Event) error {
	orderID := event.ResolvedOrderID()

	if types.DoneReason(event.Reason) == types.DoneFilled {
		priceKey, err := strconv.ParseFloat(event.Price, 64)
		if err != nil {
			return &errs.BookInconsistent{Event: *event, Reason: "done: non-numeric price"}
		}
		if e.book.SideFor(sideOf(event.Side)).Level(priceKey) == nil {
			// No level rests at this price at all: a filled done whose
			// side was never opened (or already fully cleared) is not
			// inconsistent.
			return nil
		}
	}

	if _, _, ok := e.book.Locate(orderID); !ok {
		return &errs.BookInconsistent{Event: *event, Reason: "done: order not on book"}
	}

	if !e.book.RemoveOrder(orderID) {
		return &errs.BookInconsistent{Event: *event, Reason: "done: order vanished before removal"}
	}
	return nil
}

func (e *Engine) recordError(err error) {
	e.book.ErrorCount++
	e.logger.Error("engine: event error", "err", err)
	e.countDropped(errorKind(err))
}

func errorKind(err error) string {
	switch err.(type) {
	case *errs.EventFormat:
		return "EVENT_FORMAT"
	case *errs.EventMalformed:
		return "EVENT_MALFORMED"
	case *errs.BookInconsistent:
		return "BOOK_INCONSISTENT"
	default:
		return "UNKNOWN"
	}
}

func (e *Engine) countProcessed() {
	if e.metrics != nil {
		e.metrics.EventsProcessed.WithLabelValues(e.productID).Inc()
	}
}

func (e *Engine) countDropped(kind string) {
	if e.metrics != nil {
		e.metrics.EventsDropped.WithLabelValues(e.productID, kind).Inc()
	}
}

func (e *Engine) countSequenceGap() {
	if e.metrics != nil {
		e.metrics.SequenceGaps.WithLabelValues(e.productID).Inc()
	}
}

func (e *Engine) countRebuildAttempt() {
	if e.metrics != nil {
		e.metrics.RebuildAttempts.WithLabelValues(e.productID).Inc()
	}
}

func (e *Engine) countRebuildSuccess() {
	if e.metrics != nil {
		e.metrics.RebuildSuccess.WithLabelValues(e.productID).Inc()
	}
}

func (e *Engine) countViewEmitted() {
	if e.metrics != nil {
		e.metrics.ViewsEmitted.WithLabelValues(e.productID).Inc()
	}
}

func sideOf(wire string) types.Side {
	if types.Side(wire) == types.SideSell {
		return types.SideSell
	}
	return types.SideBuy
}
