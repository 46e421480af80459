// Package snapshot fetches a REST depth snapshot for a product and
// atomically replaces an Engine's book contents with it.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"orderbookd/internal/book"
	"orderbookd/internal/config"
	"orderbookd/internal/errs"
	"orderbookd/pkg/types"
)

// Loader fetches and applies REST snapshots.
type Loader struct {
	http   *resty.Client
	rl     *RateLimiter
	logger *slog.Logger
}

// New builds a Loader against cfg.HTTP, rate-limited by rl.
func New(cfg config.HTTPConfig, rl *RateLimiter, logger *slog.Logger) *Loader {
	httpClient := resty.New().
		SetBaseURL(cfg.SnapshotBaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Attempts - 1).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})

	return &Loader{
		http:   httpClient,
		rl:     rl,
		logger: logger.With("component", "snapshot"),
	}
}

// fetch retrieves the raw snapshot for productID, retrying per the
// configured attempt budget before raising SnapshotUnavailable.
func (l *Loader) fetch(ctx context.Context, productID string) (*types.SnapshotResponse, error) {
	if err := l.rl.Wait(ctx); err != nil {
		return nil, &errs.SnapshotUnavailable{ProductID: productID, Cause: err}
	}

	var result types.SnapshotResponse
	resp, err := l.http.R().
		SetContext(ctx).
		SetQueryParam("level", "3").
		SetResult(&result).
		Get(fmt.Sprintf("/%s/book", productID))
	if err != nil {
		return nil, &errs.SnapshotUnavailable{ProductID: productID, Attempts: l.http.RetryCount + 1, Cause: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &errs.SnapshotUnavailable{
			ProductID: productID,
			Attempts:  l.http.RetryCount + 1,
			Cause:     fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()),
		}
	}
	return &result, nil
}

// Rebuild fetches a fresh snapshot, rejects it if stale relative to
// b's last snapshot, and atomically replaces b's contents.
func (l *Loader) Rebuild(ctx context.Context, productID string, b *book.Book) error {
	resp, err := l.fetch(ctx, productID)
	if err != nil {
		return err
	}

	if resp.Sequence <= b.SnapshotSeq {
		return &errs.SnapshotStale{ProductID: productID, PriorSeq: b.SnapshotSeq, OfferedSeq: resp.Sequence}
	}

	b.Reset()
	l.applySide(productID, types.SideBuy, resp.Bids, b)
	l.applySide(productID, types.SideSell, resp.Asks, b)

	b.CurrSeq = resp.Sequence
	b.SnapshotSeq = resp.Sequence
	b.Built = true

	if len(resp.Bids) == 0 {
		l.logger.Warn("snapshot has empty bid side", "product_id", productID)
	}
	if len(resp.Asks) == 0 {
		l.logger.Warn("snapshot has empty ask side", "product_id", productID)
	}

	return nil
}

// applySide loads one side of a snapshot into b. Orders that are not
// well-formed [price, size, order_id] triples are skipped with a WARN
// rather than failing the whole rebuild.
func (l *Loader) applySide(productID string, side types.Side, orders []types.SnapshotOrder, b *book.Book) {
	for _, o := range orders {
		priceKey, err := strconv.ParseFloat(o[0], 64)
		if err != nil || o[0] == "" || o[2] == "" {
			l.logger.Warn("snapshot: skipping malformed order triple", "product_id", productID, "triple", o)
			continue
		}
		b.AddOrder(side, priceKey, o[0], types.Order{Price: o[0], Size: o[1], OrderID: o[2]})
	}
}
