package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	openairealtime "github.com/haivivi/voiceagent/pkg/openai-realtime"
)

// ConnectText establishes a text-only session over WebSocket. There is no
// audio path; use SendUserText to talk. Handlers and the single-session
// rule are the same as for Connect.
func (c *Client) ConnectText(ctx context.Context) error {
	s, err := c.begin(true)
	if err != nil {
		return err
	}
	c.handlers.connecting()
	slog.Info("connecting text session", "session", s.id, "model", c.model)

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return c.fail(s, fmt.Errorf("get token: %w", err))
	}
	conn, err := c.api.DialWebSocket(ctx, tok.Value, c.model)
	if err != nil {
		return c.fail(s, fmt.Errorf("dial: %w", err))
	}
	ch := newWSChannel(conn)
	if !c.attach(s, func() { s.channel = ch }) {
		ch.Close()
		return errTornDown
	}
	c.watchChannel(s, ch)
	ch.start()
	go c.configure(s)

	if !c.attach(s, func() { s.connected = true }) {
		return errTornDown
	}
	slog.Info("connected", "session", s.id)
	c.handlers.connected()
	return nil
}

// wsChannel adapts a WebSocket connection to ControlChannel.
type wsChannel struct {
	conn *openairealtime.WebSocketConn

	mu      sync.Mutex
	open    bool
	onMsg   func([]byte)
	onClose func()
	onError func(error)
}

func newWSChannel(conn *openairealtime.WebSocketConn) *wsChannel {
	return &wsChannel{conn: conn, open: true}
}

// start begins reading. Callbacks must be registered first.
func (w *wsChannel) start() {
	go func() {
		for {
			data, err := w.conn.Read()
			if err != nil {
				w.mu.Lock()
				wasOpen := w.open
				w.open = false
				onError, onClose := w.onError, w.onClose
				w.mu.Unlock()
				if wasOpen && onError != nil && !errors.Is(err, io.EOF) {
					onError(err)
				}
				if onClose != nil {
					onClose()
				}
				return
			}
			w.mu.Lock()
			fn := w.onMsg
			w.mu.Unlock()
			if fn != nil {
				fn(data)
			}
		}
	}()
}

func (w *wsChannel) Send(text string) error {
	if !w.IsOpen() {
		return errChannelClosed
	}
	return w.conn.Send([]byte(text))
}

func (w *wsChannel) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// OnOpen runs fn at once; the connection is open when the channel exists.
func (w *wsChannel) OnOpen(fn func()) { fn() }

func (w *wsChannel) OnMessage(fn func([]byte)) {
	w.mu.Lock()
	w.onMsg = fn
	w.mu.Unlock()
}

func (w *wsChannel) OnClose(fn func()) {
	w.mu.Lock()
	w.onClose = fn
	w.mu.Unlock()
}

func (w *wsChannel) OnError(fn func(error)) {
	w.mu.Lock()
	w.onError = fn
	w.mu.Unlock()
}

func (w *wsChannel) Close() error {
	w.mu.Lock()
	w.open = false
	w.mu.Unlock()
	return w.conn.Close()
}
