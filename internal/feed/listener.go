// internal/feed/listener.go
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler processes one detected swap signature. Invoked fire-and-forget
// from the receive loop; it must be safe to call concurrently and must
// tolerate duplicate signatures.
type Handler func(ctx context.Context, signature string)

// Listener maintains a persistent log subscription for the target wallet
// and dispatches each detected swap to the handler. Any failure in any
// state drops back to DISCONNECTED and reconnects after a fixed
// cool-down, forever.
type Listener struct {
	url    string
	target string

	handler Handler
	seen    *SeenCache
	logger  *zap.Logger
	dialer  *websocket.Dialer

	state     atomic.Int32
	requestID atomic.Uint64

	handshakeTimeout time.Duration
	pingInterval     time.Duration
	pongTimeout      time.Duration
	reconnectDelay   time.Duration
}

// NewListener creates a listener for the target wallet's activity.
func NewListener(wsURL, target string, seen *SeenCache, handler Handler, logger *zap.Logger) *Listener {
	return &Listener{
		url:              wsURL,
		target:           target,
		handler:          handler,
		seen:             seen,
		logger:           logger.Named("feed"),
		dialer:           websocket.DefaultDialer,
		handshakeTimeout: 10 * time.Second,
		pingInterval:     15 * time.Second,
		pongTimeout:      10 * time.Second,
		reconnectDelay:   3 * time.Second,
	}
}

// State returns the listener's current lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

func (l *Listener) setState(s State) {
	l.state.Store(int32(s))
}

// Run drives the connect/subscribe/stream loop until the context is
// cancelled. The process is expected to run indefinitely, so retries are
// unbounded.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			l.setState(StateDisconnected)
			return err
		}

		if err := l.runOnce(ctx); err != nil && ctx.Err() == nil {
			l.logger.Error("❌ Connection lost, reconnecting",
				zap.Error(err),
				zap.Duration("cooldown", l.reconnectDelay))
		}
		l.setState(StateDisconnected)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.reconnectDelay):
		}
	}
}

// runOnce performs one full connection lifecycle: dial, subscribe,
// stream until the connection drops.
func (l *Listener) runOnce(ctx context.Context) error {
	l.setState(StateConnecting)
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	// The connection has no context awareness of its own; force the
	// read loop to fail on cancellation.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	l.setState(StateSubscribing)
	if err := l.subscribe(conn); err != nil {
		return err
	}
	l.setState(StateSubscribed)
	l.logger.Info("👀 Subscription confirmed", zap.String("target", l.target))

	return l.stream(ctx, conn)
}

// subscribe sends the logsSubscribe request and waits for the matching
// acknowledgment. A timeout or a malformed ack aborts the connection.
func (l *Listener) subscribe(conn *websocket.Conn) error {
	id := l.requestID.Add(1)
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{l.target}},
			map[string]interface{}{"commitment": "processed"},
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send subscribe request: %w", err)
	}

	deadline := time.Now().Add(l.handshakeTimeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("failed to arm handshake deadline: %w", err)
	}

	// Notifications may interleave before the ack; skip them, but only
	// an ack for our request id completes the handshake.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("handshake failed: %w", err)
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return fmt.Errorf("malformed handshake frame: %w", err)
		}
		if frame.ID == nil {
			continue
		}
		if *frame.ID != id {
			return fmt.Errorf("ack id mismatch: got %d, want %d", *frame.ID, id)
		}
		if frame.Error != nil {
			return fmt.Errorf("subscription rejected: %s (code %d)", frame.Error.Message, frame.Error.Code)
		}
		if len(frame.Result) == 0 {
			return fmt.Errorf("malformed ack: missing subscription id")
		}
		return nil
	}
}

// stream receives notifications until the connection drops. Handlers are
// dispatched fire-and-forget; receiving never blocks on them.
func (l *Listener) stream(ctx context.Context, conn *websocket.Conn) error {
	l.setState(StateStreaming)

	// Providers silently drop idle connections, so keep the keepalive
	// aggressive: ping every pingInterval, expect a pong within
	// pongTimeout.
	readWait := l.pingInterval + l.pongTimeout
	if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		return fmt.Errorf("failed to arm read deadline: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(l.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-ticker.C:
				deadline := time.Now().Add(l.pongTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("receive failed: %w", err)
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			l.logger.Warn("Dropping malformed frame", zap.Error(err))
			continue
		}
		if frame.Method != "logsNotification" || frame.Params == nil {
			continue
		}

		value := frame.Params.Result.Value
		if value.Signature == "" {
			continue
		}
		if value.failed() {
			l.logger.Debug("Skipping failed transaction", zap.String("signature", value.Signature))
			continue
		}
		if !hasSwapLog(value.Logs) {
			continue
		}
		l.Dispatch(ctx, value.Signature)
	}
}

// Dispatch hands a signature to the handler unless it was already seen.
// Shared with the polling fallback so both paths dedup consistently.
func (l *Listener) Dispatch(ctx context.Context, signature string) {
	if l.seen.Observe(signature) {
		return
	}
	l.logger.Info("🔍 Swap detected", zap.String("signature", signature))
	go l.handler(ctx, signature)
}

// hasSwapLog reports whether any program log line indicates a swap.
func hasSwapLog(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, "Swap") {
			return true
		}
	}
	return false
}
