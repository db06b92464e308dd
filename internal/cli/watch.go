package cli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Prince10z/vibb/internal/compositor"
	"github.com/Prince10z/vibb/internal/signaling"
	"github.com/Prince10z/vibb/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <room-id>",
	Short: "Attach as a rebroadcast listener and save the composite stream",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	commonFlags(watchCmd)
	watchCmd.Flags().String("out", "", "output file (default <room-id>.stream)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	roomID := args[0]
	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		outPath = roomID + ".stream"
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	stopSpinner := ui.RunConnectionSpinner("Connecting to signaling server…")
	client := signaling.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		stopSpinner()
		return err
	}
	defer client.Close()

	client.Send(&signaling.Envelope{
		Event:  signaling.EventWatchRoom,
		RoomID: roomID,
	})
	stopSpinner()
	ui.PrintInfof("Listening to room %s, writing %s (ctrl-c to stop)", roomID, outPath)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	start := time.Now()
	var chunks uint64
	var bytes int64

	for {
		select {
		case <-interrupt:
			return watchSummary(roomID, outPath, chunks, bytes, start)

		case data, ok := <-client.Chunks():
			if !ok {
				ui.PrintWarning("server closed the connection")
				return watchSummary(roomID, outPath, chunks, bytes, start)
			}
			chunk, err := compositor.DecodeChunk(data)
			if err != nil {
				ui.PrintWarning("skipping malformed chunk")
				continue
			}
			if _, err := out.Write(chunk.Data); err != nil {
				return fmt.Errorf("write chunk: %w", err)
			}
			chunks++
			bytes += int64(len(chunk.Data))
		}
	}
}

func watchSummary(roomID, outPath string, chunks uint64, bytes int64, start time.Time) error {
	fmt.Println()
	ui.RenderSessionSummary("Watch Summary", ui.SessionSummary{
		Room:       roomID,
		Identity:   "listener",
		Duration:   time.Since(start).Round(time.Second).String(),
		Broadcast:  true,
		ChunksSent: chunks,
	})
	ui.PrintSuccessf("Saved %d bytes to %s", bytes, outPath)
	return nil
}
