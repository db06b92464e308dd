package relay

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/Prince10z/vibb/internal/signaling"
)

// recv pops the next queued envelope for c, failing the test if none is
// waiting.
func recv(t *testing.T, c *Client) *signaling.Envelope {
	t.Helper()
	select {
	case out := <-c.send:
		if out.env == nil {
			t.Fatal("expected envelope, got binary chunk")
		}
		return out.env
	default:
		t.Fatal("no envelope queued")
		return nil
	}
}

func recvChunk(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case out := <-c.send:
		if out.chunk == nil {
			t.Fatal("expected binary chunk, got envelope")
		}
		return out.chunk
	default:
		t.Fatal("no chunk queued")
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case out := <-c.send:
		t.Fatalf("unexpected frame queued: %+v", out)
	default:
	}
}

func join(h *Hub, c *Client, roomID, email string) {
	h.HandleEnvelope(c, &signaling.Envelope{
		Event:   signaling.EventJoinRoom,
		RoomID:  roomID,
		EmailID: email,
	})
}

func TestJoinScenario(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient("a@example.com")
	b := newTestClient("b@example.com")
	c := newTestClient("c@example.com")

	// A joins the empty room.
	join(h, a, "R1", "a@example.com")
	env := recv(t, a)
	if env.Event != signaling.EventJoinedRoom || env.RoomID != "R1" {
		t.Fatalf("A got %+v, want joined-room for R1", env)
	}
	assertSilent(t, a)

	// B joins: A is notified, B is confirmed.
	join(h, b, "R1", "b@example.com")
	env = recv(t, a)
	if env.Event != signaling.EventUserJoined || env.EmailID != "b@example.com" {
		t.Fatalf("A got %+v, want user-joined{b}", env)
	}
	env = recv(t, b)
	if env.Event != signaling.EventJoinedRoom {
		t.Fatalf("B got %+v, want joined-room", env)
	}

	// C is rejected; the pair is untouched.
	join(h, c, "R1", "c@example.com")
	env = recv(t, c)
	if env.Event != signaling.EventRoomFull {
		t.Fatalf("C got %+v, want room-full", env)
	}
	if c.RoomID != "" {
		t.Errorf("rejected joiner has RoomID %q, want empty", c.RoomID)
	}
	if got := h.Registry().Size("R1"); got != 2 {
		t.Errorf("room size after rejection = %d, want 2", got)
	}
	assertSilent(t, a)
	assertSilent(t, b)
}

func TestChatFanOutWithoutEcho(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient("a@example.com")
	b := newTestClient("b@example.com")

	join(h, a, "R1", "a@example.com")
	join(h, b, "R1", "b@example.com")
	recv(t, a) // joined-room
	recv(t, a) // user-joined
	recv(t, b) // joined-room

	for _, text := range []string{"hi", "how are you", "bye"} {
		h.HandleEnvelope(a, &signaling.Envelope{
			Event:   signaling.EventChat,
			RoomID:  "R1",
			Message: text,
		})
	}

	// B receives all three, in send order, attributed to A.
	for _, want := range []string{"hi", "how are you", "bye"} {
		env := recv(t, b)
		if env.Event != signaling.EventChat || env.Message != want || env.EmailID != "a@example.com" {
			t.Fatalf("B got %+v, want msg %q from a@example.com", env, want)
		}
	}

	// A hears nothing back.
	assertSilent(t, a)
}

func TestChatFromNonMemberDropped(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient("a@example.com")
	stranger := newTestClient("x@example.com")

	join(h, a, "R1", "a@example.com")
	recv(t, a)

	h.HandleEnvelope(stranger, &signaling.Envelope{
		Event:   signaling.EventChat,
		RoomID:  "R1",
		Message: "let me in",
	})
	assertSilent(t, a)
	assertSilent(t, stranger)
}

func TestSignalForwardedVerbatim(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient("a@example.com")
	b := newTestClient("b@example.com")

	join(h, a, "R1", "a@example.com")
	join(h, b, "R1", "b@example.com")
	recv(t, a)
	recv(t, a)
	recv(t, b)

	payload, err := json.Marshal(signaling.OfferPayload{Type: "offer", SDP: "v=0\r\ns=-\r\n"})
	if err != nil {
		t.Fatal(err)
	}
	h.HandleEnvelope(a, &signaling.Envelope{
		Event:   signaling.EventOffer,
		RoomID:  "R1",
		Payload: payload,
	})

	env := recv(t, b)
	if env.Event != signaling.EventOffer {
		t.Fatalf("B got event %q, want webrtc-offer", env.Event)
	}
	if string(env.Payload) != string(payload) {
		t.Errorf("payload was rewritten: %s", env.Payload)
	}
	assertSilent(t, a)

	// Answer flows the other way.
	h.HandleEnvelope(b, &signaling.Envelope{
		Event:   signaling.EventAnswer,
		RoomID:  "R1",
		Payload: json.RawMessage(`{"type":"answer","sdp":"v=0"}`),
	})
	if env := recv(t, a); env.Event != signaling.EventAnswer {
		t.Fatalf("A got %+v, want webrtc-answer", env)
	}

	// Candidates keep flowing after negotiation (trickle ICE).
	mid := "0"
	cand, err := json.Marshal(signaling.CandidatePayload{
		Candidate: "candidate:1 1 udp 2130706431 192.0.2.1 54321 typ host",
		SDPMid:    &mid,
	})
	if err != nil {
		t.Fatal(err)
	}
	h.HandleEnvelope(a, &signaling.Envelope{
		Event:   signaling.EventICECandidate,
		RoomID:  "R1",
		Payload: cand,
	})
	if env := recv(t, b); env.Event != signaling.EventICECandidate {
		t.Fatalf("B got %+v, want webrtc-ice-candidate", env)
	}
}

func TestSignalWithNoPeerIsDropped(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient("a@example.com")

	join(h, a, "R1", "a@example.com")
	recv(t, a)

	h.HandleEnvelope(a, &signaling.Envelope{
		Event:   signaling.EventOffer,
		RoomID:  "R1",
		Payload: json.RawMessage(`{}`),
	})
	assertSilent(t, a)
}

func TestRejectedJoinerCannotSignalThePair(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient("a@example.com")
	b := newTestClient("b@example.com")
	c := newTestClient("c@example.com")

	join(h, a, "R1", "a@example.com")
	join(h, b, "R1", "b@example.com")
	join(h, c, "R1", "c@example.com")
	recv(t, a)
	recv(t, a)
	recv(t, b)
	recv(t, c) // room-full

	h.HandleEnvelope(c, &signaling.Envelope{
		Event:   signaling.EventOffer,
		RoomID:  "R1",
		Payload: json.RawMessage(`{}`),
	})
	assertSilent(t, a)
	assertSilent(t, b)
}

func TestDisconnectNotifiesRemainingMember(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient("a@example.com")
	b := newTestClient("b@example.com")

	join(h, a, "R1", "a@example.com")
	join(h, b, "R1", "b@example.com")
	recv(t, a)
	recv(t, a)
	recv(t, b)

	h.Disconnect(a)

	env := recv(t, b)
	if env.Event != signaling.EventUserLeft || env.EmailID != "a@example.com" {
		t.Fatalf("B got %+v, want user-left{a}", env)
	}
	if got := h.Registry().Size("R1"); got != 1 {
		t.Errorf("room size after disconnect = %d, want 1", got)
	}

	// Double disconnect must not panic or renotify.
	h.Disconnect(a)
	assertSilent(t, b)
}

func TestChunkFanOutToListeners(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient("a@example.com")
	watcher := newTestClient("w")

	join(h, a, "R1", "a@example.com")
	recv(t, a)

	h.HandleEnvelope(watcher, &signaling.Envelope{
		Event:  signaling.EventWatchRoom,
		RoomID: "R1",
	})

	chunk := []byte{0x01, 0x02, 0x03}
	h.HandleChunk(a, chunk)

	got := recvChunk(t, watcher)
	if string(got) != string(chunk) {
		t.Errorf("listener chunk = %v, want %v", got, chunk)
	}

	// The broadcasting member does not hear its own stream.
	assertSilent(t, a)

	// Detached listeners stop receiving.
	h.Disconnect(watcher)
	h.HandleChunk(a, chunk)
	assertSilent(t, a)
}

func TestFrameForDepartedClientIsDiscarded(t *testing.T) {
	h := NewHub(NewRegistry())
	a := newTestClient("a@example.com")
	b := newTestClient("b@example.com")

	join(h, a, "R1", "a@example.com")
	join(h, b, "R1", "b@example.com")
	recv(t, a)
	recv(t, a)
	recv(t, b)

	h.Disconnect(b)
	recv(t, a) // user-left

	// A fan-out that snapshotted b before the disconnect may still try to
	// deliver; the frame must be dropped, never a send on a closed channel.
	b.sendEnvelope(&signaling.Envelope{Event: signaling.EventChat, Message: "late"})
	b.sendChunk([]byte{0x01})
}

func TestConcurrentFanOutAndDisconnect(t *testing.T) {
	for round := 0; round < 300; round++ {
		h := NewHub(NewRegistry())
		a := newTestClient("a@example.com")
		b := newTestClient("b@example.com")
		join(h, a, "R1", "a@example.com")
		join(h, b, "R1", "b@example.com")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.HandleEnvelope(a, &signaling.Envelope{
					Event:   signaling.EventChat,
					RoomID:  "R1",
					Message: "hello",
				})
			}
		}()
		go func() {
			defer wg.Done()
			h.Disconnect(b)
		}()
		wg.Wait()
		h.Disconnect(a)
	}
}

func TestConcurrentChunkFanOutAndWatcherDisconnect(t *testing.T) {
	for round := 0; round < 300; round++ {
		h := NewHub(NewRegistry())
		a := newTestClient("a@example.com")
		watcher := newTestClient("w")
		join(h, a, "R1", "a@example.com")
		h.HandleEnvelope(watcher, &signaling.Envelope{
			Event:  signaling.EventWatchRoom,
			RoomID: "R1",
		})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.HandleChunk(a, []byte{0x01})
			}
		}()
		go func() {
			defer wg.Done()
			h.Disconnect(watcher)
		}()
		wg.Wait()
		h.Disconnect(a)
	}
}

func TestChunkFromNonMemberDropped(t *testing.T) {
	h := NewHub(NewRegistry())
	watcher := newTestClient("w")

	h.HandleEnvelope(watcher, &signaling.Envelope{
		Event:  signaling.EventWatchRoom,
		RoomID: "R1",
	})

	stranger := newTestClient("x")
	h.HandleChunk(stranger, []byte{0xff})
	assertSilent(t, watcher)
}
