// Package wsrpc carries JSON-RPC messages over a websocket connection.
package wsrpc

import (
	"context"

	cws "github.com/coder/websocket"
)

// Channel adapts a coder/websocket.Conn to the jrpc2 channel.Channel
// interface. One websocket message holds one JSON-RPC message.
type Channel struct {
	conn *cws.Conn
	ctx  context.Context
}

// New wraps conn. Reads and writes stop when ctx is cancelled.
func New(ctx context.Context, conn *cws.Conn) *Channel {
	return &Channel{conn: conn, ctx: ctx}
}

// Send writes one message as a text frame.
func (c *Channel) Send(data []byte) error {
	return c.conn.Write(c.ctx, cws.MessageText, data)
}

// Recv reads the next message.
func (c *Channel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	return data, err
}

// Close ends the connection with a normal closure status.
func (c *Channel) Close() error {
	return c.conn.Close(cws.StatusNormalClosure, "")
}
