package relay

import "sync"

// Registry maps room IDs to live rooms. Rooms are created on first join and
// garbage-collected when their last member leaves. The registry lock only
// guards the map; admission and removal serialize on the per-room mutex, so
// traffic in one room never blocks another.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// Join admits c into the named room, creating it if needed. On success it
// returns the members that were present before this join, in join order.
// Returns ErrRoomFull, with no state change, when the room already holds
// two participants.
func (reg *Registry) Join(roomID string, c *Client) ([]*Client, error) {
	for {
		room := reg.getOrCreate(roomID)
		prior, err := room.admit(c)
		if err == errRoomClosed {
			// Lost a race with the room's teardown; take a fresh one.
			continue
		}
		return prior, err
	}
}

// Leave removes c from the named room and returns the remaining members.
// Leaving a room c is not in, or a room that does not exist, is a no-op.
// The room entry is released when the last member leaves.
func (reg *Registry) Leave(roomID string, c *Client) []*Client {
	reg.mu.RLock()
	room := reg.rooms[roomID]
	reg.mu.RUnlock()
	if room == nil {
		return nil
	}

	remaining, emptied := room.remove(c)
	if emptied {
		reg.mu.Lock()
		// Only unlink if the map still points at this incarnation.
		if reg.rooms[roomID] == room {
			delete(reg.rooms, roomID)
		}
		reg.mu.Unlock()
	}
	return remaining
}

// MembersOf returns the members of the named room excluding c, in join
// order. A missing room yields an empty slice.
func (reg *Registry) MembersOf(roomID string, c *Client) []*Client {
	reg.mu.RLock()
	room := reg.rooms[roomID]
	reg.mu.RUnlock()
	if room == nil {
		return nil
	}
	return room.others(c)
}

// Size returns the current member count of the named room.
func (reg *Registry) Size(roomID string) int {
	reg.mu.RLock()
	room := reg.rooms[roomID]
	reg.mu.RUnlock()
	if room == nil {
		return 0
	}
	return room.size()
}

func (reg *Registry) getOrCreate(roomID string) *Room {
	reg.mu.RLock()
	room := reg.rooms[roomID]
	reg.mu.RUnlock()
	if room != nil {
		return room
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if room := reg.rooms[roomID]; room != nil {
		return room
	}
	room = &Room{id: roomID}
	reg.rooms[roomID] = room
	return room
}
