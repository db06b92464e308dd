package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Messages pushed into the chat program from the signaling goroutines.
type (
	// ChatLineMsg is an incoming chat line from the peer.
	ChatLineMsg struct {
		From string
		Text string
	}

	// PeerJoinedMsg carries the identity of the peer that joined.
	PeerJoinedMsg string

	// PeerLeftMsg carries the identity of the peer that left.
	PeerLeftMsg string

	// RoomFullMsg carries the server's rejection text. Chat input is
	// disabled once it arrives.
	RoomFullMsg string

	// StatusMsg updates the status bar (negotiation state, broadcast
	// state, server notices).
	StatusMsg string

	// DisconnectedMsg means the signaling channel dropped.
	DisconnectedMsg struct{}
)

const maxChatLines = 200

// ChatModel is the bubbletea model for the in-room chat screen.
type ChatModel struct {
	roomID   string
	identity string

	input    textinput.Model
	lines    []string
	status   string
	roomFull bool
	width    int

	// onSend delivers an outbound chat line to the relay.
	onSend func(text string)

	// Sent counts the user's own messages, for the session summary.
	Sent int
}

// NewChatModel builds the chat screen for the given room.
func NewChatModel(roomID, identity string, onSend func(string)) *ChatModel {
	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.CharLimit = 512
	input.Focus()

	return &ChatModel{
		roomID:   roomID,
		identity: identity,
		input:    input,
		status:   "waiting for a peer " + IconWaiting,
		onSend:   onSend,
		width:    80,
	}
}

func (m *ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if m.roomFull {
				m.status = "cannot send: room is full"
				return m, nil
			}
			m.onSend(text)
			m.Sent++
			m.appendLine(fmt.Sprintf("%s %s", SelfStyle.Render(m.identity+":"), text))
			m.input.Reset()
			return m, nil
		}

	case ChatLineMsg:
		m.appendLine(fmt.Sprintf("%s %s", SenderStyle.Render(msg.From+":"), msg.Text))
		return m, nil

	case PeerJoinedMsg:
		m.appendLine(MutedStyle.Render(fmt.Sprintf("%s %s joined the room", IconPeer, string(msg))))
		return m, nil

	case PeerLeftMsg:
		m.appendLine(MutedStyle.Render(fmt.Sprintf("%s %s left the room", IconPeer, string(msg))))
		m.status = "peer left, waiting " + IconWaiting
		return m, nil

	case RoomFullMsg:
		m.roomFull = true
		m.status = ErrorStyle.Render(string(msg))
		return m, nil

	case StatusMsg:
		m.status = string(msg)
		return m, nil

	case DisconnectedMsg:
		m.appendLine(ErrorStyle.Render("disconnected from server"))
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *ChatModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s %s", IconRoom, m.roomID)))
	b.WriteString("\n")

	visible := m.lines
	if len(visible) > 15 {
		visible = visible[len(visible)-15:]
	}
	for _, line := range visible {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StatusBarStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("enter to send · esc to leave"))

	return b.String()
}

func (m *ChatModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxChatLines {
		m.lines = m.lines[len(m.lines)-maxChatLines:]
	}
}
