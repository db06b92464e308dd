package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pion/rtp"
	"github.com/spf13/cobra"

	"github.com/Prince10z/vibb/internal/compositor"
	"github.com/Prince10z/vibb/internal/config"
	"github.com/Prince10z/vibb/internal/logging"
	"github.com/Prince10z/vibb/internal/rtc"
	"github.com/Prince10z/vibb/internal/session"
	"github.com/Prince10z/vibb/internal/signaling"
	"github.com/Prince10z/vibb/internal/ui"
)

const joinTimeout = 10 * time.Second

var joinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join a room, chat, and negotiate the peer video session",
	Args:  cobra.ExactArgs(1),
	RunE:  runJoin,
}

func init() {
	commonFlags(joinCmd)
	joinCmd.Flags().String("email", "", "display identity for the room (required)")
	joinCmd.Flags().Bool("broadcast", false, "composite both feeds and rebroadcast through the relay")
	joinCmd.Flags().String("video", "", "IVF file to stream as the local video track")
	joinCmd.Flags().String("audio", "", "Ogg/Opus file to stream as the local audio track")
	joinCmd.Flags().Int("tick-rate", 0, "compositor frames per second")
	joinCmd.Flags().String("candidate-policy", "", "early ICE candidates: buffer or drop")
	joinCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	roomID := args[0]
	email, _ := cmd.Flags().GetString("email")
	broadcast, _ := cmd.Flags().GetBool("broadcast")
	videoPath, _ := cmd.Flags().GetString("video")
	audioPath, _ := cmd.Flags().GetString("audio")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The TUI owns the terminal from here on.
	logging.Quiet()

	stopSpinner := ui.RunConnectionSpinner("Connecting to signaling server…")
	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		stopSpinner()
		return err
	}
	defer client.Close()

	handler := signaling.NewHandler(client)
	go handler.Start()

	client.Send(&signaling.Envelope{
		Event:   signaling.EventJoinRoom,
		RoomID:  roomID,
		EmailID: email,
	})

	select {
	case msg := <-handler.Joined:
		stopSpinner()
		ui.PrintSuccess(msg)
	case msg := <-handler.RoomFull:
		stopSpinner()
		return errors.New(msg)
	case <-time.After(joinTimeout):
		stopSpinner()
		return errors.New("timed out waiting for the server to admit the join")
	}

	// Local media. The capture tracks exist up front; file feeders (or an
	// embedding platform) push samples onto them per peer session.
	capture, err := rtc.NewSampleCapture(email)
	if err != nil {
		return fmt.Errorf("%w: %w", rtc.ErrMediaUnavailable, err)
	}

	r := &roomRun{
		cfg:       cfg,
		roomID:    roomID,
		email:     email,
		client:    client,
		capture:   capture,
		videoPath: videoPath,
		audioPath: audioPath,
	}

	sendChat := func(text string) {
		client.Send(&signaling.Envelope{
			Event:   signaling.EventChat,
			RoomID:  roomID,
			EmailID: email,
			Message: text,
		})
	}

	model := ui.NewChatModel(roomID, email, sendChat)
	program := tea.NewProgram(model)
	r.program = program

	if broadcast {
		r.startBroadcast()
		defer r.stopBroadcast()
	}

	go r.pumpEvents(handler)

	start := time.Now()
	finalModel, err := program.Run()
	r.closeSession()
	if err != nil {
		return err
	}

	chat := finalModel.(*ui.ChatModel)
	ui.RenderSessionSummary("Session Summary", ui.SessionSummary{
		Room:         roomID,
		Identity:     email,
		Peer:         r.peerName(),
		Duration:     time.Since(start).Round(time.Second).String(),
		ChatMessages: chat.Sent,
		Broadcast:    broadcast,
		ChunksSent:   r.chunksSent.Load(),
	})
	return nil
}

// roomRun holds the per-invocation state of the join command: the current
// peer session, the optional compositor, and the feeder lifetimes.
type roomRun struct {
	cfg     *config.Config
	roomID  string
	email   string
	client  *signaling.Client
	capture *rtc.SampleCapture
	program *tea.Program

	videoPath string
	audioPath string

	// mu guards the session lifecycle and the peer identity: the event
	// pump replaces sessions, the command teardown closes the last one and
	// reads the identity for the summary.
	mu           sync.Mutex
	sess         *session.Session
	peer         *rtc.Peer
	feedCancel   context.CancelFunc
	peerIdentity string

	comp        *compositor.Compositor
	localBuf    *compositor.FrameBuffer
	remoteBuf   *compositor.FrameBuffer
	remoteSink  *packetActivity
	painterDone chan struct{}
	chunksSent  atomic.Uint64
}

// pumpEvents drives the session state machine and the TUI from the
// handler's typed channels. It exits when the signaling channel closes.
func (r *roomRun) pumpEvents(h *signaling.Handler) {
	for {
		select {
		case msg, ok := <-h.Chat:
			if !ok {
				r.program.Send(ui.DisconnectedMsg{})
				return
			}
			r.program.Send(ui.ChatLineMsg{From: msg.EmailID, Text: msg.Message})

		case identity, ok := <-h.UserJoined:
			if !ok {
				r.program.Send(ui.DisconnectedMsg{})
				return
			}
			r.setPeerIdentity(identity)
			r.program.Send(ui.PeerJoinedMsg(identity))
			// The existing member opens negotiation.
			if err := r.ensureSession(); err != nil {
				r.program.Send(ui.StatusMsg(ui.ErrorStyle.Render(err.Error())))
				continue
			}
			if err := r.currentSession().PeerJoined(); err != nil {
				r.program.Send(ui.StatusMsg(ui.ErrorStyle.Render(err.Error())))
				continue
			}
			r.program.Send(ui.StatusMsg("negotiating " + ui.IconConnect))

		case identity, ok := <-h.UserLeft:
			if !ok {
				r.program.Send(ui.DisconnectedMsg{})
				return
			}
			r.program.Send(ui.PeerLeftMsg(identity))
			r.closeSession()

		case env, ok := <-h.Signal:
			if !ok {
				r.program.Send(ui.DisconnectedMsg{})
				return
			}
			if env.Event == signaling.EventOffer {
				// The answering side builds its session on first offer.
				if err := r.ensureSession(); err != nil {
					r.program.Send(ui.StatusMsg(ui.ErrorStyle.Render(err.Error())))
					continue
				}
			}
			sess := r.currentSession()
			if sess == nil {
				continue
			}
			if err := sess.Handle(env); err != nil {
				r.program.Send(ui.StatusMsg(ui.ErrorStyle.Render(err.Error())))
				continue
			}
			if sess.State() == session.StateConnected {
				r.program.Send(ui.StatusMsg("connected " + ui.IconCamera))
			}

		case msg, ok := <-h.RoomFull:
			if !ok {
				r.program.Send(ui.DisconnectedMsg{})
				return
			}
			r.program.Send(ui.RoomFullMsg(msg))
		}
	}
}

// ensureSession builds a fresh peer and session if none is live. Sessions
// are per-peer: a closed one is replaced, never revived.
func (r *roomRun) ensureSession() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sess != nil && r.sess.State() != session.StateClosed {
		return nil
	}

	peer, err := rtc.NewPeer(r.cfg, r.capture)
	if err != nil {
		return err
	}

	peer.OnCandidate(func(candidate json.RawMessage) {
		r.client.Send(&signaling.Envelope{
			Event:   signaling.EventICECandidate,
			RoomID:  r.roomID,
			Payload: candidate,
		})
	})

	if r.remoteSink != nil {
		// Decoding the remote feed is a platform capability; standalone,
		// its packet activity drives the rebroadcast's right half.
		peer.SetVideoSink(r.remoteSink)
	}

	send := func(event signaling.Event, payload json.RawMessage) {
		r.client.Send(&signaling.Envelope{
			Event:   event,
			RoomID:  r.roomID,
			Payload: payload,
		})
	}

	r.peer = peer
	r.sess = session.New(r.roomID, peer, send, r.cfg.BufferCandidates())

	// File feeders live exactly as long as the session.
	ctx, cancel := context.WithCancel(context.Background())
	r.feedCancel = cancel
	if r.videoPath != "" {
		go func() {
			if err := rtc.FeedIVF(ctx, r.capture, r.videoPath); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("video feed", "err", err)
			}
		}()
	}
	if r.audioPath != "" {
		go func() {
			if err := rtc.FeedOgg(ctx, r.capture, r.audioPath); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("audio feed", "err", err)
			}
		}()
	}

	return nil
}

func (r *roomRun) closeSession() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.feedCancel != nil {
		r.feedCancel()
		r.feedCancel = nil
	}
	if r.sess != nil {
		r.sess.Close()
		r.sess = nil
		r.peer = nil
	}
}

func (r *roomRun) currentSession() *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess
}

func (r *roomRun) setPeerIdentity(identity string) {
	r.mu.Lock()
	r.peerIdentity = identity
	r.mu.Unlock()
}

func (r *roomRun) peerName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peerIdentity
}

// startBroadcast wires the compositor: local half from the test card (or a
// platform renderer when embedded), remote half from the remote frame
// buffer, output chunks back through the relay.
func (r *roomRun) startBroadcast() {
	r.localBuf = compositor.NewFrameBuffer()
	r.remoteBuf = compositor.NewFrameBuffer()
	r.remoteSink = &packetActivity{}

	// Test-card painter stands in for the local renderer. The remote half
	// shows a packet-activity meter until a platform decoder replaces it;
	// with no packets the last meter frame is retained.
	r.painterDone = make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(r.cfg.TickRate))
		defer ticker.Stop()
		tick := 0
		for {
			select {
			case <-r.painterDone:
				return
			case <-ticker.C:
				r.localBuf.SetFrame(compositor.TestCard(compositor.CompositeWidth/2, compositor.CompositeHeight, tick))
				if n := r.remoteSink.take(); n > 0 {
					r.remoteBuf.SetFrame(compositor.ActivityCard(compositor.CompositeWidth/2, compositor.CompositeHeight, int(n), tick))
				}
				tick++
			}
		}
	}()

	emit := func(chunk []byte) {
		r.chunksSent.Add(1)
		r.client.SendChunk(chunk)
	}

	r.comp = compositor.New(
		r.localBuf, r.remoteBuf,
		compositor.NewPreviewEncoder(320, 180),
		emit,
		r.cfg.TickRate, r.cfg.ChunkMillis,
	)
	r.comp.Start()
}

func (r *roomRun) stopBroadcast() {
	if r.comp != nil {
		r.comp.Stop()
	}
	if r.painterDone != nil {
		close(r.painterDone)
	}
}

// packetActivity counts remote RTP packets between painter ticks. It is
// the standalone stand-in for a platform decoder: the count drives the
// activity meter on the rebroadcast's remote half.
type packetActivity struct {
	packets atomic.Uint64
}

func (s *packetActivity) WriteRTP(*rtp.Packet) {
	s.packets.Add(1)
}

// take returns and resets the count accumulated since the last call.
func (s *packetActivity) take() uint64 {
	return s.packets.Swap(0)
}

// loadConfig builds the config from the command's connection flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	domain, _ := cmd.Flags().GetString("domain")
	insecure, _ := cmd.Flags().GetBool("insecure")
	stun, _ := cmd.Flags().GetString("stun")
	turn, _ := cmd.Flags().GetString("turn")
	turnUser, _ := cmd.Flags().GetString("turn-user")
	turnPass, _ := cmd.Flags().GetString("turn-pass")

	tickRate := 0
	if cmd.Flags().Lookup("tick-rate") != nil {
		tickRate, _ = cmd.Flags().GetInt("tick-rate")
	}
	policy := ""
	if cmd.Flags().Lookup("candidate-policy") != nil {
		policy, _ = cmd.Flags().GetString("candidate-policy")
	}

	return config.Load(config.Options{
		Domain:          domain,
		Insecure:        insecure,
		STUNServer:      stun,
		TURNServer:      turn,
		TURNUser:        turnUser,
		TURNPass:        turnPass,
		TickRate:        tickRate,
		CandidatePolicy: policy,
	})
}
