package signaling

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // SDP plus headroom for broadcast chunks
)

// Client manages the WebSocket connection to the signaling server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan *Envelope
	chunks    chan []byte
	outgoing  chan any // *Envelope or []byte (binary chunk)
	done      chan struct{}
	closed    bool
}

// NewClient creates a new signaling client
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan *Envelope, 32),
		chunks:    make(chan []byte, 32),
		outgoing:  make(chan any, 32),
		done:      make(chan struct{}),
	}
}

// Connect establishes WebSocket connection to the server.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads frames from the WebSocket connection. Text frames are
// decoded envelopes; binary frames are rebroadcast chunks.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
		close(c.chunks)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.TextMessage:
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}
			c.incoming <- &env
		case websocket.BinaryMessage:
			c.chunks <- data
		}
	}
}

// writePump writes frames to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case out := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			var err error
			switch v := out.(type) {
			case *Envelope:
				err = c.conn.WriteJSON(v)
			case []byte:
				err = c.conn.WriteMessage(websocket.BinaryMessage, v)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Send queues an envelope for delivery to the server.
func (c *Client) Send(env *Envelope) {
	select {
	case c.outgoing <- env:
	case <-c.done:
	}
}

// SendChunk queues a binary broadcast chunk for delivery to the server.
func (c *Client) SendChunk(chunk []byte) {
	select {
	case c.outgoing <- chunk:
	case <-c.done:
	}
}

// Incoming returns the channel of decoded envelopes from the server.
func (c *Client) Incoming() <-chan *Envelope {
	return c.incoming
}

// Chunks returns the channel of binary rebroadcast chunks. Only populated
// on connections that sent watch-room.
func (c *Client) Chunks() <-chan []byte {
	return c.chunks
}

// Close closes the WebSocket connection and cleans up resources.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}
