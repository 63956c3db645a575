package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/realtime-ai/streamview/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// client is one websocket connection. Writes happen only on writeLoop.
type client struct {
	id   string
	conn *websocket.Conn
	log  logger.Logger

	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newClient(ctx context.Context, id string, conn *websocket.Conn, log logger.Logger) *client {
	ctx, cancel := context.WithCancel(ctx)
	c := &client{
		id:     id,
		conn:   conn,
		log:    log.With("client_id", id),
		send:   make(chan []byte, sendBuffer),
		ctx:    ctx,
		cancel: cancel,
	}
	c.wg.Add(1)
	go c.writeLoop()
	return c
}

// enqueue drops the message when the client is not keeping up.
func (c *client) enqueue(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("failed to marshal message", "type", msg.Type, "error", err)
		return
	}
	select {
	case <-c.ctx.Done():
	case c.send <- data:
	default:
		metricDropped.Inc()
		c.log.Warn("send buffer full, dropping message", "type", msg.Type, "event", msg.Event)
	}
}

func (c *client) writeLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("write failed", "error", err)
				c.cancel()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

// readLoop blocks until the connection fails or the client is closed.
func (c *client) readLoop(handle func(ClientMessage)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", "error", err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(ServerMessage{Type: MessageError, Timestamp: time.Now(), Error: "invalid message: " + err.Error()})
			continue
		}
		handle(msg)
	}
}

func (c *client) close() {
	c.once.Do(func() {
		c.cancel()
		c.wg.Wait()
		_ = c.conn.Close()
	})
}
