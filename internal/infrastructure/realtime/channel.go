package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/you/ratelink/domain"
)

// envelope is the wire format of every channel message
type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChannelImpl implements domain.RealtimeChannel over a websocket. One
// instance exists process-wide; the session service opens and closes it in
// lockstep with authentication state. Handlers run on the read pump
// goroutine and must not block; anything that may call back into Disconnect
// has to hop to another goroutine first.
type ChannelImpl struct {
	url               string
	handshakeTimeout  time.Duration
	reconnectInterval time.Duration
	logger            *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	token    string
	handlers map[string]func(payload []byte)
	closing  bool
	opened   bool
}

// NewChannel creates the realtime channel client. A non-positive reconnect
// interval disables automatic redial after an unexpected drop.
func NewChannel(wsURL string, handshakeTimeout, reconnectInterval time.Duration, logger *zap.Logger) *ChannelImpl {
	return &ChannelImpl{
		url:               wsURL,
		handshakeTimeout:  handshakeTimeout,
		reconnectInterval: reconnectInterval,
		logger:            logger,
		handlers:          make(map[string]func(payload []byte)),
	}
}

// SetToken updates the credential used for the websocket handshake. If the
// channel was open before but is currently disconnected, a reconnect is
// triggered so the new token takes effect immediately.
func (c *ChannelImpl) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	redial := c.conn == nil && c.opened && !c.closing
	c.mu.Unlock()

	if redial {
		go func() {
			if err := c.Connect(context.Background()); err != nil {
				c.logger.Warn("reconnect after token change failed", zap.Error(err))
			}
		}()
	}
}

// Connect implements domain.RealtimeChannel. Connecting an already
// connected channel is a no-op, preserving the single-connection invariant.
func (c *ChannelImpl) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	token := c.token
	c.closing = false
	c.mu.Unlock()

	conn, err := c.dial(ctx, token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.conn != nil || c.closing {
		// lost the race against a concurrent Connect or Disconnect
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.opened = true
	c.mu.Unlock()

	go c.readPump(conn)
	c.logger.Info("realtime channel connected")
	return nil
}

func (c *ChannelImpl) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	return conn, err
}

// Disconnect implements domain.RealtimeChannel. Registered handlers stay in
// place; only On/Off manage subscriptions.
func (c *ChannelImpl) Disconnect() error {
	c.mu.Lock()
	c.closing = true
	c.opened = false
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	c.logger.Info("realtime channel disconnected")
	return err
}

// Connected implements domain.RealtimeChannel
func (c *ChannelImpl) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// On implements domain.RealtimeChannel. One handler per event; registering
// replaces the previous one.
func (c *ChannelImpl) On(event string, handler func(payload []byte)) {
	c.mu.Lock()
	c.handlers[event] = handler
	c.mu.Unlock()
}

// Off implements domain.RealtimeChannel
func (c *ChannelImpl) Off(event string) {
	c.mu.Lock()
	delete(c.handlers, event)
	c.mu.Unlock()
}

// readPump reads messages until the connection drops. An unexpected drop
// triggers redial at the configured interval until Disconnect is called.
func (c *ChannelImpl) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.handleDrop(conn) {
				return
			}
			c.mu.Lock()
			conn = c.conn
			c.mu.Unlock()
			continue
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("dropping malformed channel message", zap.Error(err))
			continue
		}

		c.mu.Lock()
		handler := c.handlers[msg.Event]
		c.mu.Unlock()

		if handler != nil {
			handler(msg.Payload)
		} else {
			c.logger.Debug("unhandled channel event", zap.String("event", msg.Event))
		}
	}
}

// handleDrop reacts to a read failure. It returns true when a new
// connection was established and the pump should continue.
func (c *ChannelImpl) handleDrop(dead *websocket.Conn) bool {
	dead.Close()

	c.mu.Lock()
	if c.closing || c.conn != dead {
		c.mu.Unlock()
		return false
	}
	c.conn = nil
	interval := c.reconnectInterval
	c.mu.Unlock()

	if interval <= 0 {
		c.logger.Warn("realtime channel dropped, reconnect disabled")
		return false
	}
	c.logger.Warn("realtime channel dropped, reconnecting", zap.Duration("interval", interval))

	for {
		time.Sleep(interval)

		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			return false
		}
		token := c.token
		c.mu.Unlock()

		conn, err := c.dial(context.Background(), token)
		if err != nil {
			c.logger.Warn("reconnect attempt failed", zap.Error(err))
			continue
		}

		c.mu.Lock()
		if c.closing {
			c.mu.Unlock()
			conn.Close()
			return false
		}
		c.conn = conn
		c.mu.Unlock()
		c.logger.Info("realtime channel reconnected")
		return true
	}
}

// Compile-time interface compliance verification
var _ domain.RealtimeChannel = (*ChannelImpl)(nil)
