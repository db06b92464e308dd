package signaling

// ChatMessage is a received room chat line.
type ChatMessage struct {
	EmailID string
	Message string
}

// Handler routes incoming signaling envelopes to typed channels.
type Handler struct {
	client     *Client
	Joined     chan string // joined-room confirmation text
	UserJoined chan string // emailId of the peer that joined
	UserLeft   chan string // emailId of the peer that left
	RoomFull   chan string // rejection text
	Chat       chan ChatMessage
	Signal     chan *Envelope // webrtc-offer / webrtc-answer / webrtc-ice-candidate
}

// NewHandler creates a new envelope handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		Joined:     make(chan string, 1),
		UserJoined: make(chan string, 1),
		UserLeft:   make(chan string, 1),
		RoomFull:   make(chan string, 1),
		Chat:       make(chan ChatMessage, 32),
		Signal:     make(chan *Envelope, 32),
	}
}

// Start begins listening to incoming envelopes and routing them. It
// returns when the client's incoming channel is closed, closing the typed
// channels so consumers observe the disconnect. Start is the only sender
// on them.
func (h *Handler) Start() {
	defer func() {
		close(h.Joined)
		close(h.UserJoined)
		close(h.UserLeft)
		close(h.RoomFull)
		close(h.Chat)
		close(h.Signal)
	}()

	for env := range h.client.Incoming() {
		switch env.Event {

		case EventJoinedRoom:
			h.Joined <- env.Message

		case EventUserJoined:
			h.UserJoined <- env.EmailID

		case EventUserLeft:
			h.UserLeft <- env.EmailID

		case EventRoomFull:
			h.RoomFull <- env.Message

		case EventChat:
			h.Chat <- ChatMessage{EmailID: env.EmailID, Message: env.Message}

		case EventOffer, EventAnswer, EventICECandidate:
			h.Signal <- env

		default:
			// Unknown events are ignored; the protocol may grow.
		}
	}
}
