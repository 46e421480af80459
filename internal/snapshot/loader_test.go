package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderbookd/internal/book"
	"orderbookd/internal/config"
	"orderbookd/internal/errs"
	"orderbookd/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newLoader(t *testing.T, srv *httptest.Server) *Loader {
	t.Helper()
	cfg := config.HTTPConfig{SnapshotBaseURL: srv.URL, Timeout: time.Second, Attempts: 2}
	return New(cfg, NewRateLimiter(100, 100), testLogger())
}

func TestRebuildPopulatesBothSides(t *testing.T) {
	t.Parallel()

	resp := types.SnapshotResponse{
		Sequence: 111,
		Bids: []types.SnapshotOrder{
			{"12345.56", "50.35", "o1"},
			{"12345.56", "100", "o2"},
			{"14038.13", "0.0003", "o3"},
		},
		Asks: []types.SnapshotOrder{
			{"15000", "30.24", "o4"},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	l := newLoader(t, srv)
	b := book.New("BTC-USD")

	if err := l.Rebuild(context.Background(), "BTC-USD", b); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if !b.Built {
		t.Fatalf("book should be marked built")
	}
	if b.CurrSeq != 111 || b.SnapshotSeq != 111 {
		t.Fatalf("sequence not set from snapshot: %+v", b.Snapshot())
	}
	if b.Bids.Len() != 2 {
		t.Fatalf("want 2 bid levels, got %d", b.Bids.Len())
	}
	if b.Asks.Len() != 1 {
		t.Fatalf("want 1 ask level, got %d", b.Asks.Len())
	}
}

func TestRebuildStaleSequenceFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.SnapshotResponse{Sequence: 5})
	}))
	defer srv.Close()

	l := newLoader(t, srv)
	b := book.New("BTC-USD")
	b.SnapshotSeq = 10

	err := l.Rebuild(context.Background(), "BTC-USD", b)
	var stale *errs.SnapshotStale
	if err == nil {
		t.Fatalf("expected SnapshotStale error")
	}
	if !asStale(err, &stale) {
		t.Fatalf("expected *errs.SnapshotStale, got %T: %v", err, err)
	}
}

func asStale(err error, target **errs.SnapshotStale) bool {
	se, ok := err.(*errs.SnapshotStale)
	if !ok {
		return false
	}
	*target = se
	return true
}

func TestRebuildSkipsMalformedOrderTriples(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.SnapshotResponse{
			Sequence: 1,
			Bids: []types.SnapshotOrder{
				{"100", "1", "ok"},
				{"not-a-price", "1", "bad"},
			},
		})
	}))
	defer srv.Close()

	l := newLoader(t, srv)
	b := book.New("BTC-USD")

	if err := l.Rebuild(context.Background(), "BTC-USD", b); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if b.Bids.Len() != 1 {
		t.Fatalf("want 1 surviving bid level after skipping malformed row, got %d", b.Bids.Len())
	}
}

func TestRebuildUnavailableAfterRetries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := newLoader(t, srv)
	b := book.New("BTC-USD")

	err := l.Rebuild(context.Background(), "BTC-USD", b)
	if _, ok := err.(*errs.SnapshotUnavailable); !ok {
		t.Fatalf("expected *errs.SnapshotUnavailable, got %T: %v", err, err)
	}
}
