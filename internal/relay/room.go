package relay

import (
	"errors"
	"sync"
)

// Room capacity. The signaling protocol is strictly pairwise: one offerer,
// one answerer.
const roomCapacity = 2

// ErrRoomFull is returned by Registry.Join when the room already holds two
// participants. The join has no side effect in that case.
var ErrRoomFull = errors.New("room is full")

// errRoomClosed is an internal signal that a room was emptied and unlinked
// from the registry between lookup and admit; the caller retries with a
// fresh room.
var errRoomClosed = errors.New("room closed")

// Room is a capacity-bounded rendezvous point. Members are kept in join
// order. All mutation goes through the room mutex so that concurrent joins
// to the same room serialize without a global lock.
type Room struct {
	id string

	mu      sync.Mutex
	members []*Client
	closed  bool
}

// admit adds c to the room if there is space, returning the members that
// were present before the join.
func (r *Room) admit(c *Client) ([]*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errRoomClosed
	}
	if len(r.members) >= roomCapacity {
		return nil, ErrRoomFull
	}

	prior := make([]*Client, len(r.members))
	copy(prior, r.members)
	r.members = append(r.members, c)
	return prior, nil
}

// remove takes c out of the room. Removing a client that is not a member is
// a no-op. Returns the remaining members and whether the room emptied (and
// was therefore closed).
func (r *Room) remove(c *Client) (remaining []*Client, emptied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false
	}

	found := false
	for i, m := range r.members {
		if m == c {
			r.members = append(r.members[:i], r.members[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	if len(r.members) == 0 {
		r.closed = true
		return nil, true
	}

	remaining = make([]*Client, len(r.members))
	copy(remaining, r.members)
	return remaining, false
}

// others returns the members of the room except c, in join order.
func (r *Room) others(c *Client) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Client, 0, len(r.members))
	for _, m := range r.members {
		if m != c {
			out = append(out, m)
		}
	}
	return out
}

func (r *Room) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}
