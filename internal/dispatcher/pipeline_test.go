package dispatcher

import (
	"testing"

	"orderbookd/pkg/types"
)

type testLogger struct{ errors []string }

func (l *testLogger) Error(msg string, args ...any) { l.errors = append(l.errors, msg) }

func TestDispatchFirstEventInjectsStartedSentinel(t *testing.T) {
	t.Parallel()

	p := NewPipeline(4)
	d := New(map[string]*Pipeline{"BTC-USD": p}, &testLogger{})

	d.Dispatch(&types.Event{ProductID: "BTC-USD", Type: "open"})

	first := <-p.Inbox()
	if s, ok := first.(Sentinel); !ok || s != StartedSentinel {
		t.Fatalf("expected STARTED sentinel first, got %#v", first)
	}
	second := <-p.Inbox()
	if _, ok := second.(*types.Event); !ok {
		t.Fatalf("expected event second, got %#v", second)
	}
	if p.State() != Started {
		t.Fatalf("pipeline should be STARTED after first dispatch")
	}
}

func TestDispatchSubsequentEventsNoSentinel(t *testing.T) {
	t.Parallel()

	p := NewPipeline(4)
	d := New(map[string]*Pipeline{"BTC-USD": p}, &testLogger{})

	d.Dispatch(&types.Event{ProductID: "BTC-USD", Type: "open"})
	<-p.Inbox()
	<-p.Inbox()

	d.Dispatch(&types.Event{ProductID: "BTC-USD", Type: "match"})
	item := <-p.Inbox()
	if _, ok := item.(*types.Event); !ok {
		t.Fatalf("expected a plain event with no sentinel, got %#v", item)
	}
}

func TestDispatchUnknownProductLogsAndDrops(t *testing.T) {
	t.Parallel()

	log := &testLogger{}
	d := New(map[string]*Pipeline{}, log)

	d.Dispatch(&types.Event{ProductID: "GHOST-USD"})

	if len(log.errors) != 1 {
		t.Fatalf("expected one error logged, got %d", len(log.errors))
	}
}

func TestDispatchDropsWhenStopSendingOrClosing(t *testing.T) {
	t.Parallel()

	p := NewPipeline(4)
	d := New(map[string]*Pipeline{"BTC-USD": p}, &testLogger{})

	d.Dispatch(&types.Event{ProductID: "BTC-USD"})
	<-p.Inbox()
	<-p.Inbox()

	p.StopSending()
	d.Dispatch(&types.Event{ProductID: "BTC-USD"})

	select {
	case item := <-p.Inbox():
		t.Fatalf("expected no item delivered while STOP_SENDING, got %#v", item)
	default:
	}
}

func TestPipelineCloseEnqueuesClosingSentinel(t *testing.T) {
	t.Parallel()

	p := NewPipeline(1)
	p.Close()
	item := <-p.Inbox()
	if s, ok := item.(Sentinel); !ok || s != ClosingPipeSentinel {
		t.Fatalf("expected CLOSING_PIPE sentinel, got %#v", item)
	}
	if p.State() != ClosingPipe {
		t.Fatalf("expected CLOSING_PIPE state")
	}
}
