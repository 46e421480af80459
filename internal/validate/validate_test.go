package validate

import (
	"testing"

	"orderbookd/pkg/types"
)

func ptr(i int64) *int64 { return &i }

func TestShouldProcessIgnoresCases(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		e    types.Event
		want bool
	}{
		{"no type", types.Event{}, false},
		{"received", types.Event{Type: "received"}, false},
		{"done no price", types.Event{Type: "done"}, false},
		{"done with price", types.Event{Type: "done", Price: "100"}, true},
		{"open", types.Event{Type: "open", Price: "100"}, true},
		{"match", types.Event{Type: "match", Price: "100"}, true},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := ShouldProcess(&c.e); got != c.want {
				t.Fatalf("ShouldProcess(%+v) = %v, want %v", c.e, got, c.want)
			}
		})
	}
}

func TestFormatErrorsWellFormedEvent(t *testing.T) {
	t.Parallel()

	e := types.Event{Type: "open", Side: "buy", Price: "100.50", Size: "2"}
	if errs := FormatErrors(&e); len(errs) != 0 {
		t.Fatalf("expected no format errors, got %v", errs)
	}
}

func TestFormatErrorsSideInvalid(t *testing.T) {
	t.Parallel()

	e := types.Event{Type: "open", Side: "bid", Price: "1", Size: "1"}
	errs := FormatErrors(&e)
	if !contains(errs, SideInvalid) {
		t.Fatalf("expected SIDE_INVALID, got %v", errs)
	}
}

func TestFormatErrorsPriceFaults(t *testing.T) {
	t.Parallel()

	notNumeric := types.Event{Type: "open", Side: "buy", Price: "abc", Size: "1"}
	if errs := FormatErrors(&notNumeric); !contains(errs, PriceNotNumeric) {
		t.Fatalf("expected PRICE_NOT_NUMERIC, got %v", errs)
	}

	negative := types.Event{Type: "open", Side: "buy", Price: "-1", Size: "1"}
	if errs := FormatErrors(&negative); !contains(errs, NegativePrice) {
		t.Fatalf("expected NEGATIVE_PRICE, got %v", errs)
	}
}

func TestFormatErrorsSizeFaultsPreferRemainingSize(t *testing.T) {
	t.Parallel()

	e := types.Event{Type: "match", Side: "sell", Price: "1", Size: "5", RemainingSize: "-1"}
	errs := FormatErrors(&e)
	if !contains(errs, NegativeSize) {
		t.Fatalf("expected NEGATIVE_SIZE from remaining_size, got %v", errs)
	}
}

func TestFormatErrorsNoReasonOnDone(t *testing.T) {
	t.Parallel()

	e := types.Event{Type: "done", Side: "buy", Price: "1", Size: "1"}
	errs := FormatErrors(&e)
	if !contains(errs, NoReason) {
		t.Fatalf("expected NO_REASON on done event with empty reason, got %v", errs)
	}
}

func TestFormatErrorsDoneWithReasonIsClean(t *testing.T) {
	t.Parallel()

	e := types.Event{Type: "done", Side: "buy", Price: "1", Size: "1", Reason: "filled"}
	if errs := FormatErrors(&e); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func contains(errs []ErrorKind, k ErrorKind) bool {
	for _, e := range errs {
		if e == k {
			return true
		}
	}
	return false
}
