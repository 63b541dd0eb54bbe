package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 32
)

// client is one websocket connection. Writes go through send so that only
// writeLoop touches the connection for writing.
type client struct {
	id     string
	conn   *websocket.Conn
	editor bool
	log    logrus.FieldLogger

	out    chan []byte
	done   chan struct{}
	once   sync.Once
	detach func()
}

func newClient(id string, conn *websocket.Conn, editor bool, log logrus.FieldLogger) *client {
	return &client{
		id:     id,
		conn:   conn,
		editor: editor,
		log:    log,
		out:    make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// SetCursor implements slidesync.Editor for editor clients.
func (c *client) SetCursor(_ context.Context, offset int) {
	c.sendMessage(Message{Type: TypeCursor, Offset: offset})
}

func (c *client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Error("encoding message")
		return
	}
	c.send(data)
}

// send queues data. A client whose queue is full is too slow to keep up
// and gets disconnected.
func (c *client) send(data []byte) {
	select {
	case <-c.done:
	case c.out <- data:
	default:
		c.log.Warn("send queue full, disconnecting")
		c.close()
	}
}

func (c *client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.detach != nil {
			c.detach()
		}
		_ = c.conn.Close()
	})
}
