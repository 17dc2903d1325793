package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/parcelworks/assessor-backend/internal/common/logger"
	"github.com/parcelworks/assessor-backend/internal/observability/metrics"
)

// Client is one live transport channel to one participant. Before a
// successful authenticate it is anonymous; afterwards it carries the user
// identity it was bound with. Identity fields are written exactly once, under
// the hub's pending lock, before authenticated flips to true.
type Client struct {
	hub  *Hub
	conn *gorillaWS.Conn
	log  *logger.Logger

	connectionID string

	send   chan []byte
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once

	authenticated atomic.Bool
	sessionID     string
	userID        int64
	userName      string
	userRole      string

	lastActivity atomic.Int64 // unix milli
}

func newClient(hub *Hub, conn *gorillaWS.Conn, connectionID string, log *logger.Logger) *Client {
	return &Client{
		hub:          hub,
		conn:         conn,
		log:          log,
		connectionID: connectionID,
		send:         make(chan []byte, hub.cfg.SendBufSize),
		done:         make(chan struct{}),
	}
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

// IsOpen reports whether the transport is still writable.
func (c *Client) IsOpen() bool {
	return !c.closed.Load()
}

// trySend enqueues a frame without blocking. A full buffer or a closed
// transport drops the frame; the connection's own close path handles removal.
func (c *Client) trySend(message []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		metrics.CollabBroadcastDrops.Inc()
		return false
	}
}

// close shuts the transport down once. Safe to call from any goroutine.
func (c *Client) close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) touch(now time.Time) {
	c.lastActivity.Store(now.UnixMilli())
}

func (c *Client) lastActivityTime() time.Time {
	return time.UnixMilli(c.lastActivity.Load())
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if gorillaWS.IsUnexpectedCloseError(err, gorillaWS.CloseGoingAway, gorillaWS.CloseNormalClosure, gorillaWS.CloseAbnormalClosure) {
				c.log.Warnf("websocket read error connection_id=%s user_id=%d: %v", c.connectionID, c.userID, err)
			}
			return
		}

		c.hub.HandleFrame(c, messageBytes)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			w, err := c.conn.NextWriter(gorillaWS.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.conn.WriteMessage(gorillaWS.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Flush frames queued just before the close, e.g. the error
			// notice that precedes an auth-timeout shutdown.
			for {
				select {
				case message := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
					w, err := c.conn.NextWriter(gorillaWS.TextMessage)
					if err != nil {
						return
					}
					w.Write(message)
					if err := w.Close(); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
					c.conn.WriteMessage(gorillaWS.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}
