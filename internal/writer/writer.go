// Package writer runs a single task that drains the shared L2 outbox
// and serializes each view to its configured sink.
package writer

import (
	"encoding/json"
	"log/slog"

	"orderbookd/pkg/types"
)

// Sink accepts one serialized L2 view. Implementations must not block
// indefinitely — a slow sink backpressures the whole outbox.
type Sink interface {
	Write(productID string, payload []byte) error
	Close() error
}

// Writer drains outbox and hands each view to sink until outbox
// closes.
type Writer struct {
	outbox <-chan types.L2View
	sink   Sink
	logger *slog.Logger
}

// New returns a Writer draining outbox into sink.
func New(outbox <-chan types.L2View, sink Sink, logger *slog.Logger) *Writer {
	return &Writer{outbox: outbox, sink: sink, logger: logger.With("component", "writer")}
}

// Run drains the outbox until it closes. A marshal or sink failure on
// one view is logged and skipped — the writer task, like the engine,
// degrades rather than dies.
func (w *Writer) Run() {
	for view := range w.outbox {
		payload, err := json.Marshal(view)
		if err != nil {
			w.logger.Error("writer: marshal failed", "product_id", view.ProductID, "err", err)
			continue
		}
		if err := w.sink.Write(view.ProductID, payload); err != nil {
			w.logger.Error("writer: sink write failed", "product_id", view.ProductID, "err", err)
		}
	}
	if err := w.sink.Close(); err != nil {
		w.logger.Warn("writer: sink close failed", "err", err)
	}
}

// StdoutSink writes each view as a line of JSON to stdout, via an
// injected io.Writer so tests don't need to capture the real stdout.
type StdoutSink struct {
	out writeFlusher
}

type writeFlusher interface {
	Write(p []byte) (int, error)
}

// NewStdoutSink returns a Sink writing newline-delimited JSON to out.
func NewStdoutSink(out writeFlusher) *StdoutSink {
	return &StdoutSink{out: out}
}

func (s *StdoutSink) Write(_ string, payload []byte) error {
	_, err := s.out.Write(append(payload, '\n'))
	return err
}

func (s *StdoutSink) Close() error { return nil }
