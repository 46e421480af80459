package book

import (
	"sync"

	"orderbookd/pkg/types"
)

// Book is the in-memory two-sided order book for a single product:
// two Sides keyed by price, plus the sequencing and health bookkeeping
// the owning Engine drives. RWMutex lets the HTTP status endpoint read
// CurrSeq/ErrorCount concurrently with the owning engine goroutine's
// writes, rather than funnelling status reads through the engine's
// channel.
type Book struct {
	mu sync.RWMutex

	ProductID string

	Bids Side
	Asks Side

	// orderIndex maps an order_id to the side and price-key it rests
	// at, so done/match events can locate the level by order_id alone
	// in O(1) instead of scanning both sides.
	orderIndex map[string]orderLocation

	CurrSeq       int64
	SnapshotSeq   int64
	LastOutputSeq int64
	ErrorCount    int

	// Built is false until the book has been populated by a snapshot;
	// the engine refuses to process events against an unbuilt book.
	Built bool
}

type orderLocation struct {
	side     types.Side
	priceKey float64
}

// New returns an empty, unbuilt book for productID. curr_seq starts at
// 0; snapshot_seq and last_output_seq start at -1 so a first-ever
// snapshot or output carrying sequence 0 is never mistaken for stale
// or already-emitted.
func New(productID string) *Book {
	return &Book{
		ProductID:     productID,
		orderIndex:    make(map[string]orderLocation),
		SnapshotSeq:   -1,
		LastOutputSeq: -1,
	}
}

// SideFor returns the Side (Bids or Asks) corresponding to s.
func (b *Book) SideFor(s types.Side) *Side {
	if s == types.SideBuy {
		return &b.Bids
	}
	return &b.Asks
}

// Reset clears both sides, the order index, and Built — used by the
// Snapshot Loader before repopulating from a fresh snapshot.
func (b *Book) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Bids.Clear()
	b.Asks.Clear()
	b.orderIndex = make(map[string]orderLocation)
	b.Built = false
}

// AddOrder inserts a resting order into the book and records its
// location in the index. Overwrites any prior index entry for the
// same order_id — callers are expected to have already dropped
// duplicate opens.
func (b *Book) AddOrder(side types.Side, priceKey float64, price string, order types.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lvl := b.SideFor(side).LevelOrCreate(priceKey, price)
	lvl.Append(order)
	b.orderIndex[order.OrderID] = orderLocation{side: side, priceKey: priceKey}
}

// Locate returns the side and price-key an order rests at, or ok=false
// if the order is not on the book (a BookInconsistent trigger upstream).
func (b *Book) Locate(orderID string) (side types.Side, priceKey float64, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	loc, ok := b.orderIndex[orderID]
	return loc.side, loc.priceKey, ok
}

// RemoveOrder deletes an order from its level, removing the level if
// it becomes empty, and drops the order from the index.
func (b *Book) RemoveOrder(orderID string) (ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	loc, exists := b.orderIndex[orderID]
	if !exists {
		return false
	}
	s := b.SideFor(loc.side)
	lvl := s.Level(loc.priceKey)
	if lvl == nil {
		delete(b.orderIndex, orderID)
		return false
	}
	if idx, found := lvl.Find(orderID); found {
		lvl.RemoveAt(idx)
	}
	s.DeleteIfEmpty(loc.priceKey)
	delete(b.orderIndex, orderID)
	return true
}

// Status is a point-in-time snapshot of health counters, safe to read
// concurrently with the owning engine goroutine.
type Status struct {
	ProductID     string
	CurrSeq       int64
	SnapshotSeq   int64
	LastOutputSeq int64
	ErrorCount    int
	Built         bool
	BidLevels     int
	AskLevels     int
}

// Snapshot returns a Status for read-only inspection (e.g. httpapi).
func (b *Book) Snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Status{
		ProductID:     b.ProductID,
		CurrSeq:       b.CurrSeq,
		SnapshotSeq:   b.SnapshotSeq,
		LastOutputSeq: b.LastOutputSeq,
		ErrorCount:    b.ErrorCount,
		Built:         b.Built,
		BidLevels:     b.Bids.Len(),
		AskLevels:     b.Asks.Len(),
	}
}
