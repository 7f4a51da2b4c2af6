package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Handler processes the payload of one named event.
//
// Handlers run sequentially on the channel's single reader loop and must
// not block; a handler that suspends (crypto, REST, devices) re-checks
// its own relevance afterwards, because state may have moved on.
type Handler func(data json.RawMessage)

// Conn is the minimal connection surface the channel needs. It is the
// subset of *websocket.Conn the channel touches, so tests can substitute
// an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens a Conn to the given URL.
type Dialer func(ctx context.Context, url string) (Conn, error)

// envelope is the wire frame carried over the WebSocket.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Channel is the shared bidirectional event transport.
//
// One Channel is created per client and injected into each component at
// construction (connect, register, disconnect lifecycle); components
// never reach for a global connection.
type Channel struct {
	url    string
	dialer Dialer

	mu       sync.RWMutex
	conn     Conn
	handlers map[string][]Handler
	closed   bool

	// writeMu serializes writes; gorilla/websocket allows one writer.
	writeMu sync.Mutex
}

// NewChannel creates a channel that will dial url over WebSocket.
func NewChannel(url string) *Channel {
	return &Channel{
		url:      url,
		dialer:   websocketDialer,
		handlers: make(map[string][]Handler),
	}
}

// NewChannelWithDialer creates a channel with a custom dialer, used by
// tests to inject an in-memory connection.
func NewChannelWithDialer(url string, dialer Dialer) *Channel {
	ch := NewChannel(url)
	ch.dialer = dialer
	return ch
}

func websocketDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// On subscribes a handler to a named event. Multiple handlers may
// subscribe to the same event; they run in registration order.
func (c *Channel) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// Connect dials the server and starts the reader loop.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	conn, err := c.dialer(ctx, c.url)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Connect",
		"url":      c.url,
	}).Info("Event channel connected")

	go c.readLoop(conn)
	return nil
}

// Register announces this client's identity on the channel. It must be
// called after Connect and before any other emit is expected to route.
func (c *Channel) Register(identity Identity) error {
	return c.Emit(EventRegister, identity)
}

// Emit sends one named event. Delivery is at most once: a failed or
// disconnected emit is reported to the caller and never retried here.
func (c *Channel) Emit(event string, v interface{}) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	var data json.RawMessage
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event, err)
		}
		data = b
	}

	c.writeMu.Lock()
	err := conn.WriteJSON(envelope{Event: event, Data: data})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Emit",
		"event":    event,
	}).Debug("Event emitted")
	return nil
}

// Close tears down the connection. A closed channel cannot reconnect.
func (c *Channel) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// IsConnected reports whether the channel currently holds a live
// connection.
func (c *Channel) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// readLoop reads frames until the connection fails, dispatching each to
// its subscribed handlers in order.
func (c *Channel) readLoop(conn Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			closed := c.closed
			c.mu.Unlock()

			if !closed {
				logrus.WithFields(logrus.Fields{
					"function": "readLoop",
					"error":    err,
				}).Warn("Event channel disconnected")
			}
			return
		}
		c.dispatch(raw)
	}
}

// dispatch routes one wire frame. Malformed frames and events with no
// subscriber are dropped; the remote side owns any retry logic.
func (c *Channel) dispatch(raw []byte) {
	var frame envelope
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
		logrus.WithFields(logrus.Fields{
			"function": "dispatch",
			"error":    err,
		}).Warn("Dropping malformed event frame")
		return
	}

	c.mu.RLock()
	handlers := make([]Handler, len(c.handlers[frame.Event]))
	copy(handlers, c.handlers[frame.Event])
	c.mu.RUnlock()

	if len(handlers) == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "dispatch",
			"event":    frame.Event,
		}).Debug("Dropping event with no subscriber")
		return
	}

	for _, h := range handlers {
		h(frame.Data)
	}
}
