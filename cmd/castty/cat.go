package main

import (
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/tty-cast/castty/internal/asciicast"
	"github.com/tty-cast/castty/internal/fetch"
	"github.com/tty-cast/castty/internal/player"
)

// catCmd dumps a recording's event stream as asciicast at infinite
// speed with no pacing — the original's cat command is literally "play
// with out_fmt=asciicast, infinite speed, no pacing" (SUPPLEMENTED
// FEATURE), so this is wired as exactly that composition over Play
// rather than a separate code path.
func catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Dump a recording's event stream as asciicast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := fetch.Open(args[0])
			if err != nil {
				return err
			}
			defer rc.Close()

			r, err := asciicast.Open(rc)
			if err != nil {
				return err
			}

			sink := player.NewAsciicastSink(os.Stdout, 0, false)
			return player.Play(r, sink, player.Options{Speed: math.Inf(1)})
		},
	}
}
