package notifications

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"showcase/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Inbound frames are only pongs and close frames.
	maxMessageSize = 1024

	sendBuffer = 64
)

// resyncNotice tells a client it missed events and should refetch its
// projects rather than trust the stream.
var resyncNotice = []byte(`{"type":"resync","reason":"backpressure"}`)

// Registry is the part of Hub a Client needs.
type Registry interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one notification socket owned by a user. The send queue is
// never closed; done signals the write pump to say goodbye and stop.
type Client struct {
	UserID uint

	hub       Registry
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	resyncPending atomic.Bool
}

func newClient(hub Registry, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// Close stops the client. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// TrySend queues message without blocking. On overflow the message is
// dropped and, once per backlog, the oldest queued event is replaced by a
// resync notice.
func (c *Client) TrySend(message []byte) {
	if c.closed() {
		observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "closed").Inc()
		return
	}
	select {
	case c.send <- message:
		return
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
	if !c.resyncPending.CompareAndSwap(false, true) {
		return
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- resyncNotice:
	default:
		c.resyncPending.Store(false)
	}
}

// ReadPump consumes control frames until the peer goes away, then
// unregisters the client. Application payloads from the peer are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("notification socket read failed",
					slog.Uint64("user_id", uint64(c.UserID)),
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump is the only writer on the connection. It delivers queued events,
// pings on an interval and sends a going-away frame once the client closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if bytes.Equal(message, resyncNotice) {
				c.resyncPending.Store(false)
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "notifications closed"))
			return
		}
	}
}
