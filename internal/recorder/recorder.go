// Package recorder assembles header metadata, resolves the append
// time-offset, and wires the writer, async writer worker, and PTY
// supervisor together under nested scoped guards, driven by
// internal/config and internal/notify.
package recorder

import (
	"fmt"
	"os"
	"time"

	"github.com/tty-cast/castty/internal/asciicast"
	"github.com/tty-cast/castty/internal/asyncwriter"
	"github.com/tty-cast/castty/internal/notify"
	"github.com/tty-cast/castty/internal/ptysup"
	"github.com/tty-cast/castty/internal/tty"
	"github.com/tty-cast/castty/internal/writer"
)

// Options configures a single recording run.
type Options struct {
	Path    string // "-" for stdout
	Command string // explicit -c value; empty falls through to $SHELL, then "sh"
	Raw     bool   // use the raw writer instead of v2 JSON-lines

	Append    bool
	Overwrite bool

	Cols, Rows int // 0 means "ask the controlling terminal"
	Title      string
	IdleTimeLimit float64 // 0 means unset
	CaptureEnv    []string
	CommandEnv    []string // the environment the child and header draw from

	RecordStdin bool
	KeyBindings ptysup.KeyBindings

	Notify notify.Func // defaults to notify.Stderr
}

// resolveCommand picks the child command: explicit -c, else $SHELL,
// else "sh" — and always runs it through sh -c, so glob/variable
// expansion behaves the same regardless of which source provided it.
func resolveCommand(opts Options, env []string) []string {
	command := opts.Command
	if command == "" {
		command = lookupEnv(env, "SHELL")
	}
	if command == "" {
		command = "sh"
	}
	return []string{"sh", "-c", command}
}

func lookupEnv(env []string, key string) string {
	prefix := key + "="
	for _, kv := range env {
		if len(kv) > len(prefix) && kv[:len(prefix)] == prefix {
			return kv[len(prefix):]
		}
	}
	return ""
}

// resolveAppend computes the append time-offset: if
// append is requested and the target file is non-empty, it's opened
// through the codec and the offset is the last o event's time. Appending
// against a v1 file is rejected: only v2 archives support append.
func resolveAppend(path string, appendMode bool) (offset float64, reallyAppend bool, err error) {
	if !appendMode || path == "-" {
		return 0, false, nil
	}
	fi, statErr := os.Stat(path)
	if statErr != nil || fi.Size() == 0 {
		return 0, false, nil
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return 0, false, fmt.Errorf("recorder: open %s for append: %w", path, openErr)
	}
	defer f.Close()

	r, probeErr := asciicast.Open(f)
	if probeErr != nil {
		return 0, false, fmt.Errorf("recorder: probe %s for append: %w", path, probeErr)
	}
	if r.Format() != 2 {
		return 0, false, fmt.Errorf("%w: cannot append to a v1 recording", asciicast.ErrFormat)
	}

	events, readErr := asciicast.ReadAll(r)
	if readErr != nil {
		return 0, false, fmt.Errorf("recorder: read %s for append: %w", path, readErr)
	}
	for _, e := range events {
		if e.Kind == asciicast.Output {
			offset = e.Time
		}
	}
	return offset, true, nil
}

// captureEnv builds the header's env map from env, restricted to the
// allow list (internal/config defaults it to SHELL,TERM). An empty allow
// list captures nothing.
func captureEnv(env []string, allow []string) map[string]string {
	if len(allow) == 0 {
		return nil
	}
	out := make(map[string]string, len(allow))
	for _, key := range allow {
		if v := lookupEnv(env, key); v != "" {
			out[key] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// openTTYStdout opens /dev/tty for the terminal-visible copy of the
// child's output, falling back to /dev/null when it isn't openable
// — e.g. when stdout itself was redirected.
func openTTYStdout() (*os.File, error) {
	if f, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0); err == nil {
		return f, nil
	}
	return os.OpenFile("/dev/null", os.O_WRONLY, 0)
}

// Run performs a single recording: it resolves the append offset,
// builds header metadata, and drives the writer, async worker, and PTY
// supervisor to completion under nested scoped guards.
func Run(opts Options) error {
	notifyFn := opts.Notify
	if notifyFn == nil {
		notifyFn = notify.Stderr
	}

	offset, reallyAppend, err := resolveAppend(opts.Path, opts.Append)
	if err != nil {
		return err
	}

	cols, rows := opts.Cols, opts.Rows
	if cols == 0 || rows == 0 {
		c, r := tty.GetSize(int(os.Stdout.Fd()))
		if cols == 0 {
			cols = c
		}
		if rows == 0 {
			rows = r
		}
	}

	ts := float64(time.Now().Unix())
	header := asciicast.Header{
		Version: 2,
		Width:   cols,
		Height:  rows,
		Title:   opts.Title,
		Command: opts.Command,
		Env:     captureEnv(opts.CommandEnv, opts.CaptureEnv),
	}
	header.Timestamp = &ts
	if opts.IdleTimeLimit > 0 {
		header.IdleTimeLimit = &opts.IdleTimeLimit
	}

	ttyStdout, err := openTTYStdout()
	if err != nil {
		return fmt.Errorf("recorder: open controlling terminal: %w", err)
	}
	defer ttyStdout.Close()

	notifier := notify.NewAsync(notifyFn)
	defer notifier.Close()

	var sink writer.Sink
	if opts.Raw {
		sink, err = writer.OpenRaw(opts.Path, header, reallyAppend, notifier.Notify)
	} else {
		sink, err = writer.OpenV2(opts.Path, header, reallyAppend, notifier.Notify)
	}
	if err != nil {
		return fmt.Errorf("recorder: open writer: %w", err)
	}

	worker := asyncwriter.Start(sink, offset, opts.RecordStdin)
	defer worker.Close()

	sup := ptysup.New(ptysup.Config{
		Argv:        resolveCommand(opts, opts.CommandEnv),
		Env:         opts.CommandEnv,
		Sink:        worker,
		KeyBindings: opts.KeyBindings,
		Notify:      notifier.Notify,
		Stdout:      ttyStdout,
		GetTTYSize:  func() (int, int) { return tty.GetSize(int(ttyStdout.Fd())) },
	})
	return sup.Run()
}
