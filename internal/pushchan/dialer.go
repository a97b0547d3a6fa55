package pushchan

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

// Conn is the minimal connection surface the subscription loop needs.
type Conn interface {
	// ReadMessage blocks until the next frame or a connection error.
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Dialer opens a push connection to an endpoint.
type Dialer interface {
	DialContext(ctx context.Context, endpoint string) (Conn, error)
}

// WebsocketDialer dials the backend over gorilla/websocket, presenting the
// Job API token.
type WebsocketDialer struct {
	token string
}

func NewWebsocketDialer(token string) *WebsocketDialer {
	return &WebsocketDialer{token: token}
}

func (d *WebsocketDialer) DialContext(ctx context.Context, endpoint string) (Conn, error) {
	header := http.Header{}
	if d.token != "" {
		header.Set("Authorization", "Bearer "+d.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &websocketConn{conn: conn}, nil
}

type websocketConn struct {
	conn *websocket.Conn
}

func (c *websocketConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *websocketConn) WriteJSON(v any) error {
	return c.conn.WriteJSON(v)
}

func (c *websocketConn) Close() error {
	return c.conn.Close()
}

// isNormalClose reports whether the peer shut the connection down cleanly.
// A clean close ends the subscription without reconnecting.
func isNormalClose(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure ||
			closeErr.Code == websocket.CloseGoingAway
	}
	return false
}
