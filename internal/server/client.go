// ABOUTME: WebSocket client for the level feed
// ABOUTME: Dials a feed, checks the greeting and reads level messages
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrUnexpectedMessage is returned when the feed sends something other than
// what the client is waiting for.
var ErrUnexpectedMessage = errors.New("unexpected feed message")

const helloTimeout = 5 * time.Second

// Client reads levels from a running feed.
type Client struct {
	conn  *websocket.Conn
	hello HelloMessage

	closeOnce sync.Once
}

// Dial connects to the feed at addr (host:port) and waits for its greeting.
func Dial(ctx context.Context, addr string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: Path}
	slog.Debug("connecting to level feed", "url", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &Client{conn: conn}
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	if err := conn.ReadJSON(&c.hello); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to read hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	if c.hello.Type != "hello" {
		c.Close()
		return nil, fmt.Errorf("%w: expected hello, got %q", ErrUnexpectedMessage, c.hello.Type)
	}
	return c, nil
}

// Hello returns the feed's greeting.
func (c *Client) Hello() HelloMessage { return c.hello }

// Next blocks until the next levels message arrives or the connection ends.
func (c *Client) Next() (*LevelsMessage, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var msg LevelsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse levels: %w", err)
	}
	if msg.Type != "levels" {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedMessage, msg.Type)
	}
	return &msg, nil
}

// Close ends the connection.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}
