package relay

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Prince10z/vibb/internal/signaling"
)

// Hub is the signaling relay. It owns the room registry and the set of
// rebroadcast listeners, translates inbound envelopes into registry calls,
// and fans outbound envelopes to the right connections.
//
// Hub methods are called from each client's read goroutine: traffic for one
// sender is handled in order, and rooms only serialize on their own mutex.
// The hub holds no state observable other than through delivered envelopes.
type Hub struct {
	registry *Registry

	wmu      sync.Mutex
	watchers map[string][]*Client
}

// NewHub creates a hub around the given registry.
func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry: registry,
		watchers: make(map[string][]*Client),
	}
}

// Registry exposes the hub's room registry, mainly for tests and stats.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// HandleEnvelope processes one inbound envelope from c.
func (h *Hub) HandleEnvelope(c *Client, env *signaling.Envelope) {
	switch env.Event {
	case signaling.EventJoinRoom:
		h.handleJoin(c, env)
	case signaling.EventWatchRoom:
		h.handleWatch(c, env)
	case signaling.EventChat:
		h.handleChat(c, env)
	default:
		if env.IsSignal() {
			h.handleSignal(c, env)
			return
		}
		slog.Warn("unknown event", "event", env.Event, "addr", c.addr)
	}
}

func (h *Hub) handleJoin(c *Client, env *signaling.Envelope) {
	if env.RoomID == "" {
		slog.Warn("join without room id", "addr", c.addr)
		return
	}
	if c.RoomID != "" {
		// A participant belongs to at most one room.
		slog.Warn("join from client already in a room", "addr", c.addr, "room", c.RoomID)
		return
	}

	prior, err := h.registry.Join(env.RoomID, c)
	if err != nil {
		// Capacity rejection goes to the joiner only; the existing pair
		// is never disturbed.
		slog.Info("room full", "room", env.RoomID, "identity", env.EmailID)
		c.sendEnvelope(&signaling.Envelope{
			Event:   signaling.EventRoomFull,
			RoomID:  env.RoomID,
			Message: fmt.Sprintf("Room %s is full.", env.RoomID),
		})
		return
	}

	c.Identity = env.EmailID
	c.RoomID = env.RoomID
	slog.Info("joined", "room", c.RoomID, "identity", c.Identity)

	c.sendEnvelope(&signaling.Envelope{
		Event:   signaling.EventJoinedRoom,
		RoomID:  c.RoomID,
		Message: fmt.Sprintf("You have joined room %s.", c.RoomID),
	})

	// Notify exactly the members that were present before this join.
	for _, m := range prior {
		m.sendEnvelope(&signaling.Envelope{
			Event:   signaling.EventUserJoined,
			RoomID:  c.RoomID,
			EmailID: c.Identity,
		})
	}
}

func (h *Hub) handleChat(c *Client, env *signaling.Envelope) {
	if c.RoomID == "" || env.RoomID != c.RoomID {
		slog.Debug("chat from non-member dropped", "addr", c.addr, "room", env.RoomID)
		return
	}

	// Fan out to everyone else in the room; the sender gets no echo.
	for _, m := range h.registry.MembersOf(c.RoomID, c) {
		m.sendEnvelope(&signaling.Envelope{
			Event:   signaling.EventChat,
			RoomID:  c.RoomID,
			EmailID: c.Identity,
			Message: env.Message,
		})
	}
}

func (h *Hub) handleSignal(c *Client, env *signaling.Envelope) {
	if c.RoomID == "" || env.RoomID != c.RoomID {
		slog.Debug("signal from non-member dropped", "addr", c.addr, "event", env.Event)
		return
	}

	others := h.registry.MembersOf(c.RoomID, c)
	if len(others) == 0 {
		// No peer to receive it; pure routing means pure drop.
		slog.Debug("signal with no recipient dropped", "room", c.RoomID, "event", env.Event)
		return
	}
	for _, m := range others {
		// The payload is forwarded untouched.
		m.sendEnvelope(env)
	}
}

func (h *Hub) handleWatch(c *Client, env *signaling.Envelope) {
	if env.RoomID == "" {
		return
	}
	h.wmu.Lock()
	defer h.wmu.Unlock()
	if c.watchRoom != "" {
		return
	}
	c.watchRoom = env.RoomID
	h.watchers[env.RoomID] = append(h.watchers[env.RoomID], c)
	slog.Info("listener attached", "room", env.RoomID, "addr", c.addr)
}

// HandleChunk forwards one opaque broadcast chunk from a room member to the
// room's rebroadcast listeners.
func (h *Hub) HandleChunk(c *Client, chunk []byte) {
	if c.RoomID == "" {
		return
	}

	h.wmu.Lock()
	listeners := h.watchers[c.RoomID]
	h.wmu.Unlock()

	for _, l := range listeners {
		l.sendChunk(chunk)
	}
}

// Disconnect tears down c: it leaves its room (notifying the remaining
// member), detaches from any watched room, and releases the send channel.
// Safe to call more than once.
func (h *Hub) Disconnect(c *Client) {
	c.closeOnce.Do(func() {
		if c.RoomID != "" {
			remaining := h.registry.Leave(c.RoomID, c)
			for _, m := range remaining {
				m.sendEnvelope(&signaling.Envelope{
					Event:   signaling.EventUserLeft,
					RoomID:  c.RoomID,
					EmailID: c.Identity,
				})
			}
			slog.Info("left", "room", c.RoomID, "identity", c.Identity)
		}

		h.wmu.Lock()
		if c.watchRoom != "" {
			ws := h.watchers[c.watchRoom]
			for i, l := range ws {
				if l == c {
					h.watchers[c.watchRoom] = append(ws[:i], ws[i+1:]...)
					break
				}
			}
			if len(h.watchers[c.watchRoom]) == 0 {
				delete(h.watchers, c.watchRoom)
			}
		}
		h.wmu.Unlock()

		c.closeSend()
	})
}
