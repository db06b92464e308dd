package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionSummary is the end-of-call report shown when the user leaves.
type SessionSummary struct {
	Room         string
	Identity     string
	Peer         string
	Duration     string
	ChatMessages int
	Broadcast    bool
	ChunksSent   uint64
}

// RenderSessionSummary prints the report as a go-pretty table.
func RenderSessionSummary(title string, s SessionSummary) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetTitle(title)

	t.AppendRows([]table.Row{
		{"Room", s.Room},
		{"You", s.Identity},
		{"Peer", valueOrDash(s.Peer)},
		{"Duration", s.Duration},
		{"Chat messages", fmt.Sprintf("%d", s.ChatMessages)},
	})
	if s.Broadcast {
		t.AppendRow(table.Row{"Broadcast chunks", fmt.Sprintf("%d", s.ChunksSent)})
	}

	fmt.Println(t.Render())
}

func valueOrDash(v string) string {
	if v == "" {
		return "—"
	}
	return v
}
