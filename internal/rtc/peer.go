// Package rtc adapts pion's PeerConnection to the session state machine's
// Transport contract, and pumps remote media into the compositor side.
package rtc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/Prince10z/vibb/internal/config"
)

// PacketSink receives the raw RTP stream of one remote track. The renderer
// behind it (decode, paint) is a platform capability, not part of this core.
type PacketSink interface {
	WriteRTP(pkt *rtp.Packet)
}

// Peer wraps a single PeerConnection carrying the local capture tracks.
// It implements session.Transport; its lifetime is owned by the session,
// so closing the session tears down capture and the connection together.
type Peer struct {
	pc      *webrtc.PeerConnection
	capture Capture

	mu          sync.Mutex
	onCandidate func(json.RawMessage)
	videoSink   PacketSink
	audioSink   PacketSink
}

// NewPeer builds a PeerConnection from the configured ICE servers and
// attaches the capture tracks to it.
func NewPeer(cfg *config.Config, capture Capture) (*Peer, error) {
	iceServers := []webrtc.ICEServer{{URLs: cfg.GetSTUNServers()}}
	if turn := cfg.GetTURNServers(); turn != nil {
		user, pass := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turn,
			Username:   user,
			Credential: pass,
		})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{pc: pc, capture: capture}

	tracks, err := capture.Tracks()
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
	}
	for _, track := range tracks {
		sender, err := pc.AddTrack(track)
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("add track: %w", err)
		}
		// Drain RTCP so the interceptors keep running.
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := sender.Read(buf); err != nil {
					return
				}
			}
		}()
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		p.mu.Lock()
		fn := p.onCandidate
		p.mu.Unlock()
		if fn != nil {
			fn(data)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		slog.Debug("peer connection state", "state", state.String())
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		slog.Debug("remote track", "kind", track.Kind().String(), "id", track.ID())
		go p.pumpTrack(track)
	})

	return p, nil
}

// OnCandidate registers the callback for locally gathered ICE candidates.
// The payload is the JSON form of the candidate, ready for an envelope.
func (p *Peer) OnCandidate(fn func(json.RawMessage)) {
	p.mu.Lock()
	p.onCandidate = fn
	p.mu.Unlock()
}

// SetVideoSink routes the remote video track's RTP packets.
func (p *Peer) SetVideoSink(sink PacketSink) {
	p.mu.Lock()
	p.videoSink = sink
	p.mu.Unlock()
}

// SetAudioSink routes the remote audio track's RTP packets.
func (p *Peer) SetAudioSink(sink PacketSink) {
	p.mu.Lock()
	p.audioSink = sink
	p.mu.Unlock()
}

func (p *Peer) pumpTrack(track *webrtc.TrackRemote) {
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		p.mu.Lock()
		var sink PacketSink
		switch track.Kind() {
		case webrtc.RTPCodecTypeVideo:
			sink = p.videoSink
		case webrtc.RTPCodecTypeAudio:
			sink = p.audioSink
		}
		p.mu.Unlock()

		if sink != nil {
			sink.WriteRTP(pkt)
		}
	}
}

// CreateOffer produces the local offer payload. Candidates trickle
// afterwards through OnCandidate.
func (p *Peer) CreateOffer() (json.RawMessage, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return json.Marshal(offer)
}

// AcceptOffer applies a remote offer and produces the answer payload.
func (p *Peer) AcceptOffer(payload json.RawMessage) (json.RawMessage, error) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return nil, err
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return json.Marshal(answer)
}

// AcceptAnswer applies a remote answer.
func (p *Peer) AcceptAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	return p.pc.SetRemoteDescription(answer)
}

// AddCandidate applies a remote ICE candidate.
func (p *Peer) AddCandidate(payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return fmt.Errorf("decode candidate: %w", err)
	}
	return p.pc.AddICECandidate(candidate)
}

// Close releases capture and the peer connection.
func (p *Peer) Close() error {
	return errors.Join(p.capture.Close(), p.pc.Close())
}
