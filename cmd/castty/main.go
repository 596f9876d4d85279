// Command castty records and replays interactive terminal sessions. It is
// a thin collaborator over internal/recorder and internal/player: it owns
// argument parsing, exit codes, and quiet-mode notification suppression
// (messages are plain, uncolored stderr text), and does not duplicate any
// recording or playback logic.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tty-cast/castty/internal/config"
	"github.com/tty-cast/castty/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:   "castty",
		Short: "castty — record and replay terminal sessions",
		Long:  "Records an interactive terminal session to a line-delimited asciicast file and replays it at controllable speed.",
	}
	root.AddCommand(
		recCmd(),
		playCmd(),
		catCmd(),
		uploadCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "castty:", err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "castty: loading config:", err)
		os.Exit(1)
	}
	return cfg
}

func quietNotify(quiet bool) func(string) {
	if quiet {
		return func(string) {}
	}
	return func(text string) {
		fmt.Fprintln(os.Stderr, text)
	}
}

func init() {
	if err := logger.Init("info", ""); err != nil {
		fmt.Fprintln(os.Stderr, "castty: logger init:", err)
	}
}
