// Package errs defines the error taxonomy shared by the order-book
// engine's components. Each kind wraps the event or context that
// triggered it so callers can log structured detail without
// re-deriving it from a plain error string.
package errs

import (
	"fmt"

	"orderbookd/pkg/types"
)

// EventFormat is raised when the validator finds format faults on
// an otherwise-eligible event.
type EventFormat struct {
	Event  types.Event
	Faults []string
}

func (e *EventFormat) Error() string {
	return fmt.Sprintf("event format faults %v for order_id=%s", e.Faults, e.Event.ResolvedOrderID())
}

// EventMalformed is raised when an event is missing a usable sequence
// number.
type EventMalformed struct {
	Event  types.Event
	Reason string
}

func (e *EventMalformed) Error() string {
	return fmt.Sprintf("malformed event (%s): product=%s type=%s", e.Reason, e.Event.ProductID, e.Event.Type)
}

// BookInconsistent is raised when an event's preconditions expect an
// order on the book that cannot be located.
type BookInconsistent struct {
	Event  types.Event
	Reason string
}

func (e *BookInconsistent) Error() string {
	return fmt.Sprintf("book inconsistent (%s): order_id=%s", e.Reason, e.Event.ResolvedOrderID())
}

// SnapshotStale is raised when a fetched snapshot's sequence does not
// strictly exceed the book's prior snapshot sequence.
type SnapshotStale struct {
	ProductID   string
	PriorSeq    int64
	OfferedSeq  int64
}

func (e *SnapshotStale) Error() string {
	return fmt.Sprintf("stale snapshot for %s: offered seq %d <= prior seq %d", e.ProductID, e.OfferedSeq, e.PriorSeq)
}

// SnapshotUnavailable is raised when the snapshot HTTP collaborator
// exhausts its retry budget.
type SnapshotUnavailable struct {
	ProductID string
	Attempts  int
	Cause     error
}

func (e *SnapshotUnavailable) Error() string {
	return fmt.Sprintf("snapshot unavailable for %s after %d attempts: %v", e.ProductID, e.Attempts, e.Cause)
}

func (e *SnapshotUnavailable) Unwrap() error { return e.Cause }

// DispatchUnknownProduct is raised when the dispatcher receives
// an event for a product it has no pipeline for.
type DispatchUnknownProduct struct {
	ProductID string
}

func (e *DispatchUnknownProduct) Error() string {
	return fmt.Sprintf("dispatch: unknown product %q", e.ProductID)
}

// SocketError is raised by the feed collaborator on an unrecoverable
// transport failure; it is terminal for the feed task.
type SocketError struct {
	Cause error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("socket error: %v", e.Cause)
}

func (e *SocketError) Unwrap() error { return e.Cause }
