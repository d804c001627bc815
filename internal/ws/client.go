package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
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

	// Send buffer size per client.
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client represents a WebSocket client connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	connID  string
	symbols map[string]bool
	logger  *zap.Logger
}

// clientCommand is what clients send to manage subscriptions.
type clientCommand struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	Symbol string `json:"symbol"`
}

type ackMessage struct {
	Event  string `json:"event"`
	ConnID string `json:"conn_id,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// HandleWS upgrades the connection and starts the client pumps.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		connID:  uuid.New().String(),
		symbols: make(map[string]bool),
		logger:  h.logger,
	}

	h.register <- client

	if ack, err := h.encoder.Encode(ackMessage{Event: "connected", ConnID: client.connID}); err == nil {
		client.send <- ack
	}

	go client.writePump()
	go client.readPump()
}

// readPump reads subscription commands from the peer.
// One goroutine per connection; all reads happen here.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.logger.Debug("invalid client command",
				zap.String("connID", c.connID),
				zap.Error(err),
			)
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd clientCommand) {
	symbol := strings.ToUpper(strings.TrimSpace(cmd.Symbol))
	if symbol == "" {
		return
	}

	switch cmd.Action {
	case "subscribe":
		c.hub.Subscribe(c, symbol)
		c.logger.Debug("client subscribed",
			zap.String("connID", c.connID),
			zap.String("symbol", symbol),
		)
		if ack, err := c.hub.encoder.Encode(ackMessage{Event: "subscribed", Symbol: symbol}); err == nil {
			select {
			case c.send <- ack:
			default:
			}
		}
	case "unsubscribe":
		c.hub.Unsubscribe(c, symbol)
		c.logger.Debug("client unsubscribed",
			zap.String("connID", c.connID),
			zap.String("symbol", symbol),
		)
	default:
		c.logger.Debug("unknown client action",
			zap.String("connID", c.connID),
			zap.String("action", cmd.Action),
		)
	}
}

// writePump writes hub payloads and pings to the peer.
// One goroutine per connection; all writes happen here.
func (c *Client) writePump() {
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
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
