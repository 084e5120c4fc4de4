package openairealtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketConn carries the control protocol over a WebSocket. It has no media
// path and is used for text-only sessions.
type WebSocketConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialWebSocket connects to the realtime WebSocket endpoint for model,
// authenticated with secret (an API key or an ephemeral client secret).
func (c *Client) DialWebSocket(ctx context.Context, secret, model string) (*WebSocketConn, error) {
	if model == "" {
		model = ModelGPTRealtime
	}
	u := c.config.wsURL + "?model=" + url.QueryEscape(model)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+secret)
	c.setAccountHeaders(headers)

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.httpClient.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, u, headers)
	if err != nil {
		if resp != nil {
			return nil, &Error{
				Code:       "connection_failed",
				Message:    fmt.Sprintf("failed to connect: %v", err),
				HTTPStatus: resp.StatusCode,
			}
		}
		return nil, fmt.Errorf("openai-realtime: failed to connect: %w", err)
	}
	return &WebSocketConn{conn: conn}, nil
}

// Send writes one text message.
func (w *WebSocketConn) Send(data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Read blocks until the next message arrives or the connection fails. A
// normal close by the server is reported as io.EOF.
func (w *WebSocketConn) Read() ([]byte, error) {
	for {
		typ, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		if typ == websocket.TextMessage {
			return data, nil
		}
	}
}

// Close closes the connection. It is safe to call more than once.
func (w *WebSocketConn) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.writeMu.Lock()
		_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		w.writeMu.Unlock()
		err = w.conn.Close()
	})
	return err
}

// NewEventID generates a client event ID.
func NewEventID() string {
	return "evt_" + uuid.New().String()[:12]
}
