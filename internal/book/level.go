// Package book implements the two-sided price-level order book: an
// ordered map of price → list-of-resting-orders supporting O(log n)
// level lookup, O(n) level insert, and in-order traversal.
package book

import "orderbookd/pkg/types"

// PriceLevel is an ordered sequence of orders resting at the same price,
// in arrival order. Insertion appends; deletion removes by order_id.
// A level is never left empty on the book — the owning Side deletes
// the key once the last order is removed.
type PriceLevel struct {
	PriceKey float64
	Price    string // original wire string, preserved for output
	Orders   []types.Order
}

// Append adds an order to the end of the level (arrival order).
func (l *PriceLevel) Append(o types.Order) {
	l.Orders = append(l.Orders, o)
}

// Find returns the order with the given ID and its index, or ok=false.
func (l *PriceLevel) Find(orderID string) (idx int, ok bool) {
	for i, o := range l.Orders {
		if o.OrderID == orderID {
			return i, true
		}
	}
	return -1, false
}

// RemoveAt removes the order at index i, preserving arrival order of the
// remaining orders.
func (l *PriceLevel) RemoveAt(i int) {
	l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
}

// Empty reports whether the level has no resting orders.
func (l *PriceLevel) Empty() bool {
	return len(l.Orders) == 0
}
