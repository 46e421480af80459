package formatter

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"orderbookd/internal/book"
	"orderbookd/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func seedBook() *book.Book {
	b := book.New("BTC-USD")
	b.AddOrder(types.SideBuy, 12345.56, "12345.56", types.Order{OrderID: "o1", Price: "12345.56", Size: "50.35"})
	b.AddOrder(types.SideBuy, 12345.56, "12345.56", types.Order{OrderID: "o2", Price: "12345.56", Size: "100"})
	b.AddOrder(types.SideBuy, 14038.13, "14038.13", types.Order{OrderID: "o3", Price: "14038.13", Size: "0.0003"})
	b.AddOrder(types.SideSell, 15000, "15000", types.Order{OrderID: "o4", Price: "15000", Size: "30.24"})
	b.AddOrder(types.SideSell, 15000, "15000", types.Order{OrderID: "o5", Price: "15000", Size: "199.22"})
	b.AddOrder(types.SideSell, 16000, "16000", types.Order{OrderID: "o6", Price: "16000", Size: "2.5"})
	b.CurrSeq = 111
	return b
}

func TestFormatSeedScenarioDepth10(t *testing.T) {
	t.Parallel()

	b := seedBook()
	f := New(10, testLogger())
	view := f.Format(b)

	wantBids := [][3]string{
		{"14038.13", "0.0003", "o3"},
		{"12345.56", "50.35", "o1"},
		{"12345.56", "100", "o2"},
	}
	require.Equal(t, wantBids, view.Bids)

	wantAsks := [][3]string{
		{"15000", "30.24", "o4"},
		{"15000", "199.22", "o5"},
		{"16000", "2.5", "o6"},
	}
	require.Equal(t, wantAsks, view.Asks)
	require.EqualValues(t, 111, view.Sequence)
}

func TestShouldOutputWithinShallowWindowAlwaysTrue(t *testing.T) {
	t.Parallel()

	b := seedBook()
	f := New(10, testLogger())

	if !f.ShouldOutput(&types.Event{Side: "sell", Price: "20000"}, b) {
		t.Fatalf("window shallower than N must always output")
	}
}

func TestShouldOutputSellOutsideWindow(t *testing.T) {
	t.Parallel()

	b := book.New("BTC-USD")
	for i := 0; i < 3; i++ {
		price := float64(100 + i)
		b.AddOrder(types.SideSell, price, "p", types.Order{OrderID: "x", Price: "p", Size: "1"})
	}
	f := New(2, testLogger())

	if f.ShouldOutput(&types.Event{Side: "sell", Price: "103"}, b) {
		t.Fatalf("price beyond the displayed N+1 boundary must not output")
	}
	if !f.ShouldOutput(&types.Event{Side: "sell", Price: "101"}, b) {
		t.Fatalf("price within the displayed window must output")
	}
}

func TestShouldOutputBuyOutsideWindow(t *testing.T) {
	t.Parallel()

	b := book.New("BTC-USD")
	for i := 0; i < 3; i++ {
		price := float64(100 + i)
		b.AddOrder(types.SideBuy, price, "p", types.Order{OrderID: "x", Price: "p", Size: "1"})
	}
	f := New(1, testLogger())

	if f.ShouldOutput(&types.Event{Side: "buy", Price: "100"}, b) {
		t.Fatalf("lowest bid beyond a 1-deep window must not output")
	}
	if !f.ShouldOutput(&types.Event{Side: "buy", Price: "102"}, b) {
		t.Fatalf("highest bid within the window must output")
	}
}
