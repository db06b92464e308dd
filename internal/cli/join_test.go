package cli

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pion/rtp"

	"github.com/Prince10z/vibb/internal/config"
	"github.com/Prince10z/vibb/internal/signaling"
)

func newTestRun(t *testing.T) *roomRun {
	t.Helper()
	cfg, err := config.Load(config.Options{TickRate: 100})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return &roomRun{
		cfg:    cfg,
		roomID: "R1",
		email:  "a@example.com",
		client: signaling.NewClient("ws://unused"),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBroadcastFeedsBothHalves(t *testing.T) {
	r := newTestRun(t)
	r.startBroadcast()
	defer r.stopBroadcast()

	// The local half is painted by the test card without any peer.
	waitFor(t, "local frame", func() bool {
		_, ok := r.localBuf.Frame()
		return ok
	})

	// Remote packet activity must reach the remote half of the composite.
	for i := 0; i < 32; i++ {
		r.remoteSink.WriteRTP(&rtp.Packet{})
	}
	waitFor(t, "remote activity frame", func() bool {
		_, ok := r.remoteBuf.Frame()
		return ok
	})

	// The full loop runs: composited chunks are counted and handed to the
	// signaling client.
	waitFor(t, "emitted chunk", func() bool {
		return r.chunksSent.Load() > 0
	})
}

func TestBroadcastRemoteSinkAttachesToSessions(t *testing.T) {
	r := newTestRun(t)
	r.startBroadcast()
	defer r.stopBroadcast()

	if r.remoteSink == nil {
		t.Fatal("broadcast did not create the remote packet sink")
	}

	// The sink hands its count over once per painter tick.
	r.remoteSink.WriteRTP(&rtp.Packet{})
	r.remoteSink.WriteRTP(&rtp.Packet{})
	waitFor(t, "sink drained by painter", func() bool {
		return r.remoteSink.packets.Load() == 0
	})
}

func TestPeerIdentitySafeAcrossGoroutines(t *testing.T) {
	r := &roomRun{}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.setPeerIdentity(fmt.Sprintf("peer-%d@example.com", n))
		}(i)
	}
	for i := 0; i < 8; i++ {
		_ = r.peerName()
	}
	wg.Wait()

	if r.peerName() == "" {
		t.Error("peer identity lost")
	}
}
