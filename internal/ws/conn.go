package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"waha-crm/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// client es una consola conectada. Solo writePump escribe en el socket.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan domain.Event
}

func newClient(hub *Hub, conn *websocket.Conn) *client {
	return &client{
		hub:  hub,
		conn: conn,
		send: make(chan domain.Event, sendBuffer),
	}
}

// enqueue entrega sin bloquear; una consola saturada pierde el evento.
func (c *client) enqueue(event domain.Event) {
	select {
	case c.send <- event:
	default:
		c.hub.logger.Warn("console send buffer full, dropping event",
			zap.String("type", event.Type),
		)
	}
}

// readPump consume el socket: heartbeats de aplicación y pongs de transporte.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws read error", zap.Error(err))
			}
			return
		}

		var event domain.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			c.hub.logger.Warn("ws malformed payload", zap.Error(err))
			continue
		}

		// El único mensaje esperado de la consola es el heartbeat.
		if event.Type == domain.EventPing {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
			c.enqueue(domain.NewEvent(domain.EventPong, nil))
		}
	}
}

// writePump serializa todas las escrituras del socket.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.hub.logger.Warn("ws write error", zap.Error(err))
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
