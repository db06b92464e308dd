package relay

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Prince10z/vibb/internal/signaling"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Broadcast chunks are the
	// largest frames on the wire.
	maxMessageSize = 512 * 1024
)

// outbound is one queued frame for a client: either a JSON envelope or an
// opaque binary broadcast chunk.
type outbound struct {
	env   *signaling.Envelope
	chunk []byte
}

// Client is a wrapper for a single websocket connection (one participant
// or one rebroadcast listener).
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	addr string

	// Identity is the display label the participant joined with.
	Identity string

	// RoomID is the room the participant is a member of, set by the hub
	// on a successful join and only read from this client's read loop.
	RoomID string

	// watchRoom is the room this connection listens to for rebroadcast
	// chunks, if any. Guarded by the hub's watcher lock.
	watchRoom string

	// send is a buffered channel for all outbound frames. The hub writes
	// to this channel and writePump drains it to the socket. mu and closed
	// serialize enqueue against closeSend: fan-out runs on other clients'
	// read goroutines, so a frame can be in flight while this client
	// disconnects.
	mu     sync.Mutex
	closed bool
	send   chan outbound

	closeOnce sync.Once
}

// NewClient wraps an upgraded websocket connection.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		addr: conn.RemoteAddr().String(),
		send: make(chan outbound, 256),
	}
}

// enqueue hands a frame to the client's writer. Frames are dropped, not
// blocked on, when the client cannot keep up; a slow listener must never
// stall the relay. Frames for a disconnected client are discarded.
func (c *Client) enqueue(out outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- out:
	default:
		slog.Warn("dropping frame for slow client", "addr", c.addr, "room", c.RoomID)
	}
}

// closeSend closes the send channel so WritePump finishes its queue and
// exits. Frames enqueued afterwards are discarded instead of panicking.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) sendEnvelope(env *signaling.Envelope) {
	c.enqueue(outbound{env: env})
}

func (c *Client) sendChunk(chunk []byte) {
	c.enqueue(outbound{chunk: chunk})
}

// ReadPump pumps frames from the websocket connection into the hub.
//
// The application runs ReadPump in a per-connection goroutine. All reads
// happen here, so envelopes from one sender are handled in arrival order.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("read error", "addr", c.addr, "err", err)
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			var env signaling.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				slog.Warn("malformed envelope", "addr", c.addr, "err", err)
				continue
			}
			c.hub.HandleEnvelope(c, &env)
		case websocket.BinaryMessage:
			c.hub.HandleChunk(c, data)
		}
	}
}

// WritePump pumps frames from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection; all writes
// to the socket happen here.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case out, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			var err error
			if out.env != nil {
				err = c.conn.WriteJSON(out.env)
			} else {
				err = c.conn.WriteMessage(websocket.BinaryMessage, out.chunk)
			}
			if err != nil {
				slog.Debug("write error", "addr", c.addr, "err", err)
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
