package writer

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"orderbookd/pkg/types"
)

type recordingSink struct {
	writes [][]byte
	closed bool
}

func (s *recordingSink) Write(_ string, payload []byte) error {
	s.writes = append(s.writes, payload)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestWriterDrainsOutboxToSink(t *testing.T) {
	t.Parallel()

	outbox := make(chan types.L2View, 2)
	sink := &recordingSink{}
	w := New(outbox, sink, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	outbox <- types.L2View{ProductID: "BTC-USD", Sequence: 1}
	outbox <- types.L2View{ProductID: "ETH-USD", Sequence: 2}
	close(outbox)

	w.Run()

	if len(sink.writes) != 2 {
		t.Fatalf("want 2 writes, got %d", len(sink.writes))
	}
	if !sink.closed {
		t.Fatalf("sink should be closed once the outbox drains")
	}

	var view types.L2View
	if err := json.Unmarshal(sink.writes[0], &view); err != nil {
		t.Fatalf("write was not valid JSON: %v", err)
	}
	if view.ProductID != "BTC-USD" {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestStdoutSinkAppendsNewline(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewStdoutSink(&buf)
	if err := sink.Write("BTC-USD", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.String() != "{\"a\":1}\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
