package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one subscriber to a collection: a WebSocket connection, or an
// in-process listener when conn is nil.
type Client struct {
	hub        *Hub
	conn       *ws.Conn
	collection string
	send       chan []byte
}

func newClient(hub *Hub, conn *ws.Conn, collection string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		collection: collection,
		send:       make(chan []byte, sendBufferSize),
	}
}

// NewClient creates a Client tied to the given hub, connection and collection.
func NewClient(hub *Hub, conn *ws.Conn, collection string) *Client {
	return newClient(hub, conn, collection)
}

// Run registers the client and pumps messages until the connection closes.
// Each notification is passed through render before being written, so the
// caller can replace it with a fresh snapshot.
func (c *Client) Run(ctx context.Context, render func(ctx context.Context, notification []byte) ([]byte, error)) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx, cancel, render)
	c.readPump(ctx)
}

// readPump reads and discards all incoming messages. It returns on error
// (connection close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, _, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc, render func(context.Context, []byte) ([]byte, error)) {
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if render != nil {
				out, err := render(ctx, msg)
				if err != nil {
					c.hub.logger.Error("render notification", "collection", c.collection, "error", err)
					continue
				}
				msg = out
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Send queues a message directly to this client, bypassing the hub. Used
// for the initial snapshot.
func (c *Client) Send(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}
