package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Prince10z/vibb/internal/ui"
	"github.com/Prince10z/vibb/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "vibb",
	Short:   "Two-party video chat rooms with relayed WebRTC signaling and live rebroadcast",
	Long:    `vibb joins a named room on the signaling server, exchanges text chat with the other participant, negotiates a direct WebRTC audio/video session through the relay, and can composite both feeds into a single outgoing stream rebroadcast to any number of listeners.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

// commonFlags registers the connection flags shared by all subcommands.
func commonFlags(cmd *cobra.Command) {
	cmd.Flags().String("domain", "", "signaling server domain")
	cmd.Flags().Bool("insecure", false, "use ws:// instead of wss:// (local servers)")
	cmd.Flags().String("stun", "", "STUN server URL")
	cmd.Flags().String("turn", "", "TURN server URL")
	cmd.Flags().String("turn-user", "", "TURN username")
	cmd.Flags().String("turn-pass", "", "TURN password")
}
