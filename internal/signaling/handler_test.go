package signaling

import (
	"testing"
	"time"
)

// feedHandler runs a handler over a conn-less client and returns a feed
// function plus a finish function that closes the stream and waits for
// Start to return.
func feedHandler(t *testing.T) (*Handler, func(*Envelope), func()) {
	t.Helper()

	client := NewClient("ws://unused")
	h := NewHandler(client)

	done := make(chan struct{})
	go func() {
		h.Start()
		close(done)
	}()

	feed := func(env *Envelope) { client.incoming <- env }
	finish := func() {
		close(client.incoming)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler did not stop after incoming closed")
		}
	}
	return h, feed, finish
}

func expectString(t *testing.T, ch <-chan string, want, what string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("%s = %q, want %q", what, got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestHandlerRoutesRoomEvents(t *testing.T) {
	h, feed, finish := feedHandler(t)
	defer finish()

	feed(&Envelope{Event: EventJoinedRoom, Message: "You have joined room movies."})
	expectString(t, h.Joined, "You have joined room movies.", "Joined")

	feed(&Envelope{Event: EventUserJoined, EmailID: "bob@example.com"})
	expectString(t, h.UserJoined, "bob@example.com", "UserJoined")

	feed(&Envelope{Event: EventUserLeft, EmailID: "bob@example.com"})
	expectString(t, h.UserLeft, "bob@example.com", "UserLeft")

	feed(&Envelope{Event: EventRoomFull, Message: "Room movies is full."})
	expectString(t, h.RoomFull, "Room movies is full.", "RoomFull")
}

func TestHandlerRoutesChatWithAttribution(t *testing.T) {
	h, feed, finish := feedHandler(t)
	defer finish()

	feed(&Envelope{Event: EventChat, EmailID: "bob@example.com", Message: "hello"})

	select {
	case msg := <-h.Chat:
		if msg.EmailID != "bob@example.com" || msg.Message != "hello" {
			t.Errorf("chat = %+v, want bob@example.com / hello", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chat message")
	}
}

func TestHandlerRoutesSignalsInOrder(t *testing.T) {
	h, feed, finish := feedHandler(t)
	defer finish()

	feed(&Envelope{Event: EventOffer, EmailID: "bob@example.com"})
	feed(&Envelope{Event: EventICECandidate, EmailID: "bob@example.com"})
	feed(&Envelope{Event: EventAnswer, EmailID: "bob@example.com"})

	want := []Event{EventOffer, EventICECandidate, EventAnswer}
	for _, event := range want {
		select {
		case env := <-h.Signal:
			if env.Event != event {
				t.Errorf("signal event = %q, want %q", env.Event, event)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", event)
		}
	}
}

func TestHandlerClosesChannelsWhenStreamEnds(t *testing.T) {
	h, _, finish := feedHandler(t)
	finish()

	// Consumers selecting on the typed channels must observe the
	// disconnect as a channel close.
	if _, ok := <-h.Chat; ok {
		t.Error("Chat still open after the stream ended")
	}
	if _, ok := <-h.Signal; ok {
		t.Error("Signal still open after the stream ended")
	}
	if _, ok := <-h.UserJoined; ok {
		t.Error("UserJoined still open after the stream ended")
	}
}

func TestHandlerIgnoresUnknownEvents(t *testing.T) {
	h, feed, finish := feedHandler(t)
	defer finish()

	feed(&Envelope{Event: Event("sync-playback")})
	feed(&Envelope{Event: EventChat, EmailID: "bob@example.com", Message: "still here"})

	select {
	case msg := <-h.Chat:
		if msg.Message != "still here" {
			t.Errorf("chat = %q, want %q", msg.Message, "still here")
		}
	case <-time.After(time.Second):
		t.Fatal("unknown event blocked the handler")
	}
}
