// Package feed maintains a websocket subscription to the exchange's
// full channel, with auto-reconnect and the subscribe handshake,
// dispatching every parsed event inline to a Dispatcher.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"orderbookd/internal/dispatcher"
	"orderbookd/internal/errs"
	"orderbookd/pkg/types"
)

const (
	pingInterval     = 30 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// Feed owns one websocket connection to the full channel, re-dialing
// and re-subscribing on disconnect.
type Feed struct {
	url        string
	productIDs []string
	dispatcher *dispatcher.Dispatcher

	connMu sync.Mutex
	conn   *websocket.Conn

	logger *slog.Logger
}

// New returns a Feed subscribing to productIDs on connect, handing
// every parsed event to d.
func New(url string, productIDs []string, d *dispatcher.Dispatcher, logger *slog.Logger) *Feed {
	return &Feed{
		url:        url,
		productIDs: productIDs,
		dispatcher: d,
		logger:     logger.With("component", "feed"),
	}
}

// Run connects and maintains the connection with exponential backoff
// (1s → 30s) until ctx is cancelled. A SOCKET_ERROR from connectAndRead
// is terminal only in the sense that it triggers reconnect; Run itself
// only returns when ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("feed: disconnected, reconnecting", "err", &errs.SocketError{Cause: err}, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// Close closes the current connection, if any.
func (f *Feed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	if err := f.subscribe(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := f.awaitSubscriptionEcho(conn); err != nil {
		return fmt.Errorf("subscription handshake: %w", err)
	}

	f.logger.Info("feed: connected and subscribed", "products", f.productIDs)

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		f.handleMessage(raw)
	}
}

func (f *Feed) subscribe() error {
	msg := types.SubscribeMsg{
		Type: "subscribe",
		Channels: []types.SubscribeChannel{
			{Name: "full", ProductIDs: f.productIDs},
		},
	}
	return f.writeJSON(msg)
}

// awaitSubscriptionEcho reads a single reply frame and accepts it only
// if its type is "subscriptions"; the echoed channel list is not
// compared with the one sent. A type == error reply, any other type, or
// no reply before the read deadline raises a socket failure and the
// caller reconnects.
func (f *Feed) awaitSubscriptionEcho(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(writeTimeout))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read subscription reply: %w", err)
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("unmarshal subscription reply: %w", err)
	}
	switch envelope.Type {
	case "subscriptions":
		return nil
	case "error":
		return fmt.Errorf("exchange rejected subscription: %s", string(raw))
	default:
		return fmt.Errorf("unexpected reply type %q to subscribe", envelope.Type)
	}
}

// handleMessage parses one full-channel frame and dispatches it.
// Event types this engine does not model (e.g. "change") still
// dispatch — the Engine's apply() treats them as a no-op — because
// they still carry sequence numbers the sequence gate must observe.
func (f *Feed) handleMessage(raw []byte) {
	var event types.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		f.logger.Debug("feed: ignoring non-conforming frame", "data", string(raw))
		return
	}
	if event.ProductID == "" {
		return
	}
	f.dispatcher.Dispatch(&event)
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Warn("feed: ping failed", "err", err)
				return
			}
		}
	}
}

func (f *Feed) writeJSON(v any) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *Feed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}
