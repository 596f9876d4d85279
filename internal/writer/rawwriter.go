package writer

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/tty-cast/castty/internal/asciicast"
)

// RawWriter emits a flat byte stream of child output, with resize events
// rendered as the terminal's own "report window size" escape sequence.
// WriteStdin and WriteMarker are no-ops: the raw format has no channel
// for anything but output bytes.
//
// Append mode writes no size prelude, since the existing stream (if
// any) already established one.
type RawWriter struct {
	path     string
	f        *os.File
	isStdout bool
	isFIFO   bool
	onError  OnError
}

func resizeEscape(cols, rows int) []byte {
	return []byte(fmt.Sprintf("\x1b[8;%d;%dt", rows, cols))
}

// OpenRaw opens path (or stdout when path == "-") in binary append or
// truncate mode. On a non-append (fresh) open it writes the size prelude
// derived from header.Width/Height.
func OpenRaw(path string, header asciicast.Header, append bool, onError OnError) (*RawWriter, error) {
	if onError == nil {
		onError = func(string) {}
	}
	w := &RawWriter{path: path, onError: onError}

	if path == "-" {
		w.isStdout = true
		if !append {
			if err := w.write(resizeEscape(header.Width, header.Height)); err != nil {
				return nil, err
			}
		}
		return w, nil
	}

	flags := os.O_WRONLY | os.O_CREATE
	if append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("writer: open %s: %w", path, err)
	}
	w.f = f
	if fi, err := f.Stat(); err == nil {
		w.isFIFO = fi.Mode()&os.ModeNamedPipe != 0
	}

	if !append {
		if err := w.write(resizeEscape(header.Width, header.Height)); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *RawWriter) write(p []byte) error {
	target := w.f
	if w.isStdout {
		_, err := os.Stdout.Write(p)
		return err
	}
	_, err := target.Write(p)
	if err == nil {
		return nil
	}
	if w.isFIFO && errors.Is(err, syscall.EPIPE) {
		w.onError(fmt.Sprintf("writer: broken pipe on %s, reopening: %v", w.path, err))
		w.f.Close()
		nf, reopenErr := os.OpenFile(w.path, os.O_WRONLY, 0644)
		if reopenErr != nil {
			w.onError(fmt.Sprintf("writer: reopen %s failed: %v", w.path, reopenErr))
			return reopenErr
		}
		w.f = nf
		if _, err2 := w.f.Write(p); err2 != nil {
			w.onError(fmt.Sprintf("writer: retry write on %s failed: %v", w.path, err2))
			return err2
		}
		return nil
	}
	w.onError(fmt.Sprintf("writer: write to %s failed: %v", w.path, err))
	return err
}

func (w *RawWriter) WriteStdout(t float64, data []byte) error { return w.write(data) }
func (w *RawWriter) WriteStdin(float64, []byte) error         { return nil }
func (w *RawWriter) WriteMarker(float64) error                { return nil }

func (w *RawWriter) WriteResize(t float64, size asciicast.Size) error {
	return w.write(resizeEscape(size.Cols, size.Rows))
}

func (w *RawWriter) Close(lastT float64) error {
	if w.isStdout || w.f == nil {
		return nil
	}
	return w.f.Close()
}

var _ Sink = (*RawWriter)(nil)
