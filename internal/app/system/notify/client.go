// internal/app/system/notify/client.go
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// JoinFunc reports whether userID may join the camp room for campID.
type JoinFunc func(ctx context.Context, userID, campID string) bool

// Client is one WebSocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	userID  string
	canJoin JoinFunc
}

type inbound struct {
	Type   string `json:"type"`
	CampID string `json:"campId"`
}

// Attach registers conn for userID and starts its pumps. It returns
// immediately; the connection is closed when the client or hub goes away.
func (h *Hub) Attach(conn *websocket.Conn, userID string, canJoin JoinFunc) {
	c := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		userID:  userID,
		canJoin: canJoin,
	}
	if !h.submit(op{kind: opRegister, client: c}) {
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.submit(op{kind: opUnregister, client: c})
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("notify: read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(eventError, "", map[string]string{"message": "invalid message"})
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Type {
	case "join-camp":
		if msg.CampID == "" {
			c.reply(eventError, "", map[string]string{"message": "campId required"})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ok := c.canJoin != nil && c.canJoin(ctx, c.userID, msg.CampID)
		cancel()
		if !ok {
			c.reply(eventError, CampRoom(msg.CampID), map[string]string{"message": "not allowed to join this camp"})
			return
		}
		c.hub.submit(op{kind: opJoin, client: c, room: CampRoom(msg.CampID)})
	case "leave-camp":
		c.hub.submit(op{kind: opLeave, client: c, room: CampRoom(msg.CampID)})
	default:
		c.reply(eventError, "", map[string]string{"message": "unknown message type"})
	}
}

// reply routes a message to this client through the hub so it never
// races with the hub closing c.send.
func (c *Client) reply(eventType, room string, data any) {
	c.hub.submit(op{kind: opDirect, client: c, payload: mustEvent(eventType, room, data)})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
