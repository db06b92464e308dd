// Package session implements the client-local negotiation state machine for
// one peer pair. It is transport-agnostic: the WebRTC engine is injected as
// a Transport and outbound envelopes leave through a SendFunc, so the
// machine can be driven entirely by relayed envelopes in tests.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Prince10z/vibb/internal/signaling"
)

// State is the negotiation phase of a peer pair.
type State int

const (
	StateIdle State = iota
	StateOfferSent
	StateOfferReceived
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOfferSent:
		return "offer-sent"
	case StateOfferReceived:
		return "offer-received"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transport is the session-description half of the platform's peer-to-peer
// capability. Payloads are the opaque JSON blobs carried by the signaling
// envelopes; only the transport knows their shape.
type Transport interface {
	// CreateOffer produces the local offer payload.
	CreateOffer() (json.RawMessage, error)

	// AcceptOffer applies a remote offer and produces the answer payload.
	AcceptOffer(offer json.RawMessage) (json.RawMessage, error)

	// AcceptAnswer applies a remote answer.
	AcceptAnswer(answer json.RawMessage) error

	// AddCandidate applies a remote ICE candidate.
	AddCandidate(candidate json.RawMessage) error

	// Close releases the negotiated session and any media resources tied
	// to it.
	Close() error
}

// SendFunc delivers an outbound handshake envelope to the relay.
type SendFunc func(event signaling.Event, payload json.RawMessage)

// Session tracks negotiation with the single room peer. A Session is used
// for exactly one peer; once Closed it stays closed, and a fresh Session is
// created for any subsequent peer.
type Session struct {
	roomID string
	tr     Transport
	send   SendFunc
	log    *slog.Logger

	mu         sync.Mutex
	state      State
	haveRemote bool

	// Candidates that arrived before the remote description; only kept
	// when buffering is on, dropped otherwise.
	buffer  bool
	pending []json.RawMessage
}

// New creates an idle session for the given room. bufferCandidates selects
// the policy for ICE candidates that arrive before the remote description.
func New(roomID string, tr Transport, send SendFunc, bufferCandidates bool) *Session {
	return &Session{
		roomID: roomID,
		tr:     tr,
		send:   send,
		log:    slog.With("component", "session", "room", roomID),
		state:  StateIdle,
		buffer: bufferCandidates,
	}
}

// State returns the current negotiation phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle is the single dispatch entry point for relay-delivered handshake
// envelopes. Non-handshake envelopes are ignored.
func (s *Session) Handle(env *signaling.Envelope) error {
	switch env.Event {
	case signaling.EventOffer:
		return s.HandleOffer(env.Payload)
	case signaling.EventAnswer:
		return s.HandleAnswer(env.Payload)
	case signaling.EventICECandidate:
		return s.HandleCandidate(env.Payload)
	}
	return nil
}

// PeerJoined initiates negotiation: the existing member offers when the
// second participant arrives. If the transport cannot produce an offer the
// session stays Idle and the error is surfaced to the caller.
func (s *Session) PeerJoined() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		s.log.Warn("peer joined in unexpected state, ignoring", "state", s.state)
		return nil
	}

	offer, err := s.tr.CreateOffer()
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}

	s.send(signaling.EventOffer, offer)
	s.state = StateOfferSent
	s.log.Debug("offer sent")
	return nil
}

// HandleOffer answers a remote offer. Receiving an offer in any state other
// than Idle is a protocol violation: logged and ignored.
func (s *Session) HandleOffer(offer json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		s.log.Warn("offer in unexpected state, ignoring", "state", s.state)
		return nil
	}

	s.state = StateOfferReceived
	answer, err := s.tr.AcceptOffer(offer)
	if err != nil {
		// Negotiation aborted; the slot stays usable for a retry.
		s.state = StateIdle
		return fmt.Errorf("accept offer: %w", err)
	}

	s.haveRemote = true
	s.flushPendingLocked()
	s.send(signaling.EventAnswer, answer)
	s.state = StateConnected
	s.log.Debug("answer sent")
	return nil
}

// HandleAnswer completes negotiation on the offering side. An answer in any
// state other than OfferSent is a protocol violation: logged and ignored.
func (s *Session) HandleAnswer(answer json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOfferSent {
		s.log.Warn("answer in unexpected state, ignoring", "state", s.state)
		return nil
	}

	if err := s.tr.AcceptAnswer(answer); err != nil {
		s.state = StateIdle
		return fmt.Errorf("accept answer: %w", err)
	}

	s.haveRemote = true
	s.flushPendingLocked()
	s.state = StateConnected
	s.log.Debug("connected")
	return nil
}

// HandleCandidate applies a trickled ICE candidate. Candidates are accepted
// in any non-Closed state; ones arriving before the remote description are
// buffered or dropped according to the configured policy.
func (s *Session) HandleCandidate(candidate json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}

	if !s.haveRemote {
		if s.buffer {
			s.pending = append(s.pending, candidate)
			s.log.Debug("candidate buffered", "pending", len(s.pending))
		} else {
			s.log.Debug("early candidate dropped")
		}
		return nil
	}

	if err := s.tr.AddCandidate(candidate); err != nil {
		// A bad candidate does not abort the session; others may connect.
		s.log.Warn("candidate rejected", "err", err)
	}
	return nil
}

// PeerLeft closes the session when the peer leaves or its channel closes.
func (s *Session) PeerLeft() {
	s.Close()
}

// Close transitions to Closed and releases the transport. Closed is
// terminal; Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.pending = nil
	if err := s.tr.Close(); err != nil {
		s.log.Warn("transport close", "err", err)
	}
	s.log.Debug("closed")
}

func (s *Session) flushPendingLocked() {
	for _, c := range s.pending {
		if err := s.tr.AddCandidate(c); err != nil {
			s.log.Warn("buffered candidate rejected", "err", err)
		}
	}
	s.pending = nil
}
