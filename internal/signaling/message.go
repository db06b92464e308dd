package signaling

import "encoding/json"

// Event identifies the kind of signaling envelope.
type Event string

// Wire event names. These are shared by the relay server and the CLI and
// must stay in sync with the web client.
const (
	// C2S
	EventJoinRoom  Event = "join-room"
	EventWatchRoom Event = "watch-room"

	// S2C
	EventJoinedRoom Event = "joined-room"
	EventUserJoined Event = "user-joined"
	EventUserLeft   Event = "user-left"
	EventRoomFull   Event = "room-full"

	// Both directions
	EventChat         Event = "msg"
	EventOffer        Event = "webrtc-offer"
	EventAnswer       Event = "webrtc-answer"
	EventICECandidate Event = "webrtc-ice-candidate"
)

// Envelope is the JSON structure for every text frame on the signaling
// channel. Payload carries the SDP or ICE candidate for the webrtc-* events
// and is relayed verbatim; the server never parses it.
type Envelope struct {
	Event   Event           `json:"event"`
	RoomID  string          `json:"roomId,omitempty"`
	EmailID string          `json:"emailId,omitempty"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// IsSignal reports whether the envelope is part of the WebRTC handshake
// (offer, answer, or ICE candidate).
func (e *Envelope) IsSignal() bool {
	switch e.Event {
	case EventOffer, EventAnswer, EventICECandidate:
		return true
	}
	return false
}

// OfferPayload wraps a session description; answers share the same shape.
// The relay treats it as opaque bytes; only the two peers decode it.
type OfferPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// CandidatePayload wraps a trickled ICE candidate in the shape pion's
// ICECandidateInit serializes to.
type CandidatePayload struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}
