// Package formatter implements the should_output threshold test and
// the depth-limited view emitted to the outbox.
package formatter

import (
	"log/slog"
	"strconv"

	"orderbookd/internal/book"
	"orderbookd/pkg/types"
)

// Formatter answers should_output and builds L2View snapshots for one
// book, against a fixed output depth N.
type Formatter struct {
	n      int
	logger *slog.Logger
}

// New returns a Formatter truncating to n levels per side.
func New(n int, logger *slog.Logger) *Formatter {
	return &Formatter{n: n, logger: logger.With("component", "formatter")}
}

// ShouldOutput reports whether event could have moved the visible
// top-N window on its side. A non-numeric price, an unrecognized side,
// or an out-of-range boundary index is treated as "no" and logged; the
// length check ahead of the index probe means the out-of-range case
// cannot occur for N >= 0.
func (f *Formatter) ShouldOutput(event *types.Event, b *book.Book) bool {
	price, err := strconv.ParseFloat(event.Price, 64)
	if err != nil {
		f.logger.Error("should_output: non-numeric price", "price", event.Price)
		return false
	}

	switch types.Side(event.Side) {
	case types.SideSell:
		asks := b.Asks.Ascending()
		if len(asks) < f.n+1 {
			return true
		}
		return price < asks[f.n].PriceKey
	case types.SideBuy:
		bids := b.Bids.Ascending()
		if len(bids) < f.n+1 {
			return true
		}
		idx := len(bids) - f.n - 1
		if idx < 0 || idx >= len(bids) {
			f.logger.Error("should_output: boundary index out of range", "idx", idx, "len", len(bids))
			return false
		}
		return price > bids[idx].PriceKey
	default:
		f.logger.Error("should_output: unrecognized side", "side", event.Side)
		return false
	}
}

// Format flattens the top-N levels per side into an L2View. Bids are
// emitted highest price first, asks lowest price first; a level with
// k resting orders contributes k triples.
func (f *Formatter) Format(b *book.Book) types.L2View {
	view := types.L2View{
		ProductID: b.ProductID,
		Sequence:  b.CurrSeq,
	}

	bidLevels := b.Bids.Descending()
	if len(bidLevels) > f.n {
		bidLevels = bidLevels[:f.n]
	}
	for _, lvl := range bidLevels {
		for _, o := range lvl.Orders {
			view.Bids = append(view.Bids, [3]string{lvl.Price, o.Size, o.OrderID})
		}
	}

	askLevels := b.Asks.Ascending()
	if len(askLevels) > f.n {
		askLevels = askLevels[:f.n]
	}
	for _, lvl := range askLevels {
		for _, o := range lvl.Orders {
			view.Asks = append(view.Asks, [3]string{lvl.Price, o.Size, o.OrderID})
		}
	}

	return view
}
