// Package validate classifies inbound feed events as processable or
// ignorable, and enumerates format faults on the events that are
// eligible.
package validate

import (
	"strconv"

	"orderbookd/pkg/types"
)

// ErrorKind names one format fault a validated event can carry.
type ErrorKind string

const (
	SideInvalid    ErrorKind = "SIDE_INVALID"
	PriceNotNumeric ErrorKind = "PRICE_NOT_NUMERIC"
	NegativePrice  ErrorKind = "NEGATIVE_PRICE"
	SizeNotNumeric ErrorKind = "SIZE_NOT_NUMERIC"
	NegativeSize   ErrorKind = "NEGATIVE_SIZE"
	NoReason       ErrorKind = "NO_REASON"
)

// ShouldProcess reports whether event is eligible for further handling.
// An event is ignored, with no error, when its type is absent, the
// type is "received", or the type is "done" with no price (a
// market-order done carries no resting price and never touched the
// book).
func ShouldProcess(e *types.Event) bool {
	if e.Type == "" {
		return false
	}
	if types.EventType(e.Type) == types.EventReceived {
		return false
	}
	if types.EventType(e.Type) == types.EventDone && e.Price == "" {
		return false
	}
	return true
}

// FormatErrors enumerates every format fault on e. An empty result
// means the event is well-formed and ready for the Engine to apply.
// Callers must only invoke FormatErrors on events ShouldProcess has
// already accepted.
func FormatErrors(e *types.Event) []ErrorKind {
	var errs []ErrorKind

	switch types.Side(e.Side) {
	case types.SideBuy, types.SideSell:
	default:
		errs = append(errs, SideInvalid)
	}

	if price, err := strconv.ParseFloat(e.Price, 64); err != nil {
		errs = append(errs, PriceNotNumeric)
	} else if price < 0 {
		errs = append(errs, NegativePrice)
	}

	if size, err := strconv.ParseFloat(e.ResolvedSize(), 64); err != nil {
		errs = append(errs, SizeNotNumeric)
	} else if size < 0 {
		errs = append(errs, NegativeSize)
	}

	if types.EventType(e.Type) == types.EventDone && e.Reason == "" {
		errs = append(errs, NoReason)
	}

	return errs
}
