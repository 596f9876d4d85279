package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tty-cast/castty/internal/ptysup"
	"github.com/tty-cast/castty/internal/recorder"
)

func recCmd() *cobra.Command {
	var (
		command       string
		raw           bool
		appendMode    bool
		overwrite     bool
		recordStdin   bool
		idleTimeLimit float64
		cols, rows    int
		title         string
		envFlag       []string
		quiet         bool
		yes           bool
	)

	cmd := &cobra.Command{
		Use:   "rec <path>",
		Short: "Record a terminal session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg := loadConfig()

			if path != "-" && !appendMode {
				if fi, err := os.Stat(path); err == nil && fi.Size() > 0 && !overwrite && !yes {
					return fmt.Errorf("%s already exists; pass --overwrite or --append", path)
				}
			}

			captureEnv := cfg.CaptureEnv
			if len(envFlag) > 0 {
				captureEnv = envFlag
			}

			kb := ptysup.KeyBindings{}
			if b, ok, err := cfg.Record.Pause.Byte(); err != nil {
				return fmt.Errorf("%w", err)
			} else if ok {
				kb.Pause, kb.HasPause = b, true
			}
			if b, ok, err := cfg.Record.AddMarker.Byte(); err != nil {
				return fmt.Errorf("%w", err)
			} else if ok {
				kb.Marker, kb.HasMarker = b, true
			}
			if b, ok, err := cfg.Record.Prefix.Byte(); err != nil {
				return fmt.Errorf("%w", err)
			} else if ok {
				kb.Prefix, kb.HasPrefix = b, true
			}

			opts := recorder.Options{
				Path:          path,
				Command:       command,
				Raw:           raw,
				Append:        appendMode,
				Overwrite:     overwrite,
				Cols:          cols,
				Rows:          rows,
				Title:         title,
				IdleTimeLimit: idleTimeLimit,
				CaptureEnv:    captureEnv,
				CommandEnv:    os.Environ(),
				RecordStdin:   recordStdin,
				KeyBindings:   kb,
				Notify:        quietNotify(quiet),
			}
			return recorder.Run(opts)
		},
	}

	cmd.Flags().StringVarP(&command, "command", "c", "", "Command to record instead of $SHELL")
	cmd.Flags().BoolVar(&raw, "raw", false, "Write a raw byte stream instead of asciicast")
	cmd.Flags().BoolVar(&appendMode, "append", false, "Append to an existing recording")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing recording")
	cmd.Flags().BoolVar(&recordStdin, "stdin", false, "Also record stdin as input events")
	cmd.Flags().Float64Var(&idleTimeLimit, "idle-time-limit", 0, "Cap idle time between events, in seconds")
	cmd.Flags().IntVar(&cols, "cols", 0, "Override terminal width")
	cmd.Flags().IntVar(&rows, "rows", 0, "Override terminal height")
	cmd.Flags().StringVar(&title, "title", "", "Recording title")
	cmd.Flags().StringSliceVar(&envFlag, "env", nil, "Environment variables to capture (overrides config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress notifications")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Assume yes to confirmation prompts")

	return cmd
}
