package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tty-cast/castty/internal/asciicast"
	"github.com/tty-cast/castty/internal/fetch"
	"github.com/tty-cast/castty/internal/player"
)

// openTTYIn opens /dev/tty for the playback control loop's key reads,
// returning nil (interactive control disabled) when it can't.
func openTTYIn() *os.File {
	f, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
	if err != nil {
		return nil
	}
	return f
}

func parseStream(s string) (asciicast.Kind, bool, error) {
	switch s {
	case "":
		return 0, false, nil
	case "o":
		return asciicast.Output, true, nil
	case "i":
		return asciicast.Input, true, nil
	default:
		return 0, false, fmt.Errorf("invalid --stream %q (want o or i)", s)
	}
}

func playCmd() *cobra.Command {
	var (
		speed          float64
		loop           bool
		pauseOnMarkers bool
		outFmt         string
		stream         string
		idleTimeLimit  float64
		quiet          bool
	)

	cmd := &cobra.Command{
		Use:   "play <path>",
		Short: "Replay a recorded terminal session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			streamKind, hasStream, err := parseStream(stream)
			if err != nil {
				return err
			}

			kb := player.KeyBindings{}
			if b, ok, err := cfg.Play.Pause.Byte(); err != nil {
				return err
			} else if ok {
				kb.Pause, kb.HasPause = b, true
			}
			if b, ok, err := cfg.Play.Step.Byte(); err != nil {
				return err
			} else if ok {
				kb.Step, kb.HasStep = b, true
			}
			if b, ok, err := cfg.Play.NextMarker.Byte(); err != nil {
				return err
			} else if ok {
				kb.NextMarker, kb.HasNextMarker = b, true
			}

			opts := player.Options{
				Speed:          speed,
				Loop:           loop,
				PauseOnMarkers: pauseOnMarkers,
				Stream:         streamKind,
				HasStream:      hasStream,
				IdleTimeLimit:  idleTimeLimit,
				KeyBindings:    kb,
				Notify:         quietNotify(quiet),
				TTYIn:          openTTYIn(),
			}

			var sink player.Sink
			switch outFmt {
			case "", "raw":
				sink = player.NewRawSink(os.Stdout, streamKind, hasStream)
			case "asciicast":
				sink = player.NewAsciicastSink(os.Stdout, streamKind, hasStream)
			default:
				return fmt.Errorf("invalid --out-fmt %q (want raw or asciicast)", outFmt)
			}

			for {
				rc, err := fetch.Open(args[0])
				if err != nil {
					return err
				}
				r, err := asciicast.Open(rc)
				if err != nil {
					rc.Close()
					return err
				}
				err = player.Play(r, sink, opts)
				rc.Close()
				if err != nil {
					return err
				}
				if !loop {
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&speed, "speed", 1, "Playback speed multiplier")
	cmd.Flags().BoolVar(&loop, "loop", false, "Loop playback")
	cmd.Flags().BoolVar(&pauseOnMarkers, "pause-on-markers", false, "Pause automatically at each marker")
	cmd.Flags().StringVar(&outFmt, "out-fmt", "raw", "Output format: raw or asciicast")
	cmd.Flags().StringVar(&stream, "stream", "", "Restrict playback to one event stream: o or i")
	cmd.Flags().Float64Var(&idleTimeLimit, "idle-time-limit", 0, "Override the recording's idle time cap, in seconds")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress notifications")

	return cmd
}
