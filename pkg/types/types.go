// Package types defines the shared wire vocabulary for the order-book
// engine — inbound feed events, REST snapshot shapes, and the L2 view
// emitted downstream. It has no dependency on internal packages, so it
// can be imported by any layer.
package types

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// Side is the book side an order rests on, as carried on the wire.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// EventType enumerates the full-channel event types this engine cares about.
type EventType string

const (
	EventOpen     EventType = "open"
	EventMatch    EventType = "match"
	EventDone     EventType = "done"
	EventReceived EventType = "received"
	EventChange   EventType = "change"
)

// DoneReason is the reason field carried on a "done" event.
type DoneReason string

const (
	DoneCanceled DoneReason = "canceled"
	DoneFilled   DoneReason = "filled"
)

// ————————————————————————————————————————————————————————————————————————
// Inbound feed event
// ————————————————————————————————————————————————————————————————————————

// Event is the full-channel wire event. Fields are strings (and a
// pointer for Sequence) where the source may omit them — market-order
// done, received events, and so on — so the validator can distinguish
// "absent" from "zero value".
//
// Prices and sizes are carried as strings to preserve exchange precision;
// RemainingSize is preferred over Size for open-event sizing.
type Event struct {
	Type          string `json:"type"`
	Side          string `json:"side"`
	Price         string `json:"price"`
	Size          string `json:"size"`
	RemainingSize string `json:"remaining_size"`
	OrderID       string `json:"order_id"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
	Reason        string `json:"reason"`
	Sequence      *int64 `json:"sequence"`
	ProductID     string `json:"product_id"`
}

// ResolvedOrderID returns the order identity an event acts on: OrderID
// when present, falling back to MakerOrderID. Open/done events carry
// OrderID; match events carry only MakerOrderID.
func (e *Event) ResolvedOrderID() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.MakerOrderID
}

// ResolvedSize returns the size field used for open-event sizing and
// format validation: RemainingSize takes priority over Size. Never mix.
// Match arithmetic reads Size directly.
func (e *Event) ResolvedSize() string {
	if e.RemainingSize != "" {
		return e.RemainingSize
	}
	return e.Size
}

// ————————————————————————————————————————————————————————————————————————
// Order book
// ————————————————————————————————————————————————————————————————————————

// Order is a single resting order: a (price, size, order_id) triple.
// Price and Size stay strings on the wire; arithmetic against Size
// must go through decimal.Decimal, never float64.
type Order struct {
	Price   string
	Size    string
	OrderID string
}

// SnapshotOrder is the wire shape of one resting order inside a REST
// snapshot response: [price, size, order_id].
type SnapshotOrder [3]string

// SnapshotResponse is the REST response from
// GET <endpoint>/{product_id}/book?level=3.
type SnapshotResponse struct {
	Sequence int64           `json:"sequence"`
	Bids     []SnapshotOrder `json:"bids"`
	Asks     []SnapshotOrder `json:"asks"`
}

// ————————————————————————————————————————————————————————————————————————
// Output
// ————————————————————————————————————————————————————————————————————————

// L2View is the depth-limited, per-order-granular book view emitted to
// the outbox whenever a relevant event could move the visible top-N.
type L2View struct {
	ProductID string      `json:"product_id"`
	Sequence  int64       `json:"sequence"`
	Bids      [][3]string `json:"bids"`
	Asks      [][3]string `json:"asks"`
}

// ————————————————————————————————————————————————————————————————————————
// Subscription handshake (external collaborator wire shapes)
// ————————————————————————————————————————————————————————————————————————

// SubscribeChannel names one full-channel subscription.
type SubscribeChannel struct {
	Name       string   `json:"name"`
	ProductIDs []string `json:"product_ids"`
}

// SubscribeMsg is sent once on connect to subscribe to the full channel.
type SubscribeMsg struct {
	Type     string             `json:"type"`
	Channels []SubscribeChannel `json:"channels"`
}

// SubscribeReply is the expected echo reply to SubscribeMsg.
type SubscribeReply struct {
	Type     string             `json:"type"`
	Channels []SubscribeChannel `json:"channels"`
}
