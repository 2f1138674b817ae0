package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/httpapi/response"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/platform/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is one websocket connection.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	lastActionTime time.Time

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.cfg.SendBuffer),
	}
}

// Register adds the client to the hub.
func (c *Client) Register() {
	select {
	case c.hub.register <- c:
	case <-c.hub.done:
		c.closeSend()
	}
}

// trySend queues message without blocking. It reports false when the buffer is full.
func (c *Client) trySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) reply(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("Failed to serialize reply", "action", msg.Action, "error", err)
		return
	}
	if !c.trySend(payload) {
		c.hub.metrics.RecordWSError()
		c.hub.logger.Warn("Reply dropped, client send buffer full", "action", msg.Action)
		return
	}
	c.hub.metrics.RecordWSMessage(false)
}

// ReadPump pumps actions from the websocket connection to the game. ctx bounds
// every engine call made on behalf of this client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read failed", "error", err)
				c.hub.metrics.RecordWSError()
			}
			return
		}
		c.handleMessage(ctx, message)
	}
}

func (c *Client) handleMessage(ctx context.Context, raw []byte) {
	c.hub.metrics.RecordWSMessage(true)

	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		c.hub.logger.Warn("Failed to parse websocket action", "error", err)
		_, body := response.Body(response.ErrBadRequest)
		c.reply(Message{Type: MsgError, Error: &body})
		return
	}

	if interval := c.hub.cfg.MinActionInterval; interval > 0 && time.Since(c.lastActionTime) < interval {
		_, body := response.Body(response.ErrRateLimited)
		c.reply(Message{Type: MsgError, Action: action.Type, RequestID: action.RequestID, Error: &body})
		return
	}
	c.lastActionTime = time.Now()

	reply := c.hub.Dispatch(ctx, action)
	if reply.Type == MsgError {
		c.hub.logger.Debug("Action rejected", "action", action.Type, "code", reply.Error.Error)
	}
	c.reply(reply)
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the web client is served from a different dev origin
	},
}

// ServeWS upgrades the request and starts the client pumps. ctx is the server
// lifetime, not the request's: the request context ends once the handler
// returns.
func ServeWS(ctx context.Context, hub *Hub, w http.ResponseWriter, r *http.Request, log *logger.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Failed to upgrade websocket connection", "error", err)
		return
	}

	client := NewClient(hub, conn)
	client.Register()

	go client.WritePump()
	go client.ReadPump(ctx)
}
