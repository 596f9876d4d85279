package writer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/tty-cast/castty/internal/asciicast"
)

// V2Writer is the v2 JSON-lines sink.
type V2Writer struct {
	path      string
	f         *os.File // nil when writing to stdout ("-")
	isStdout  bool
	isFIFO    bool
	enc       *asciicast.Writer
	stdoutDec incrementalUTF8Decoder
	stdinDec  incrementalUTF8Decoder
	onError   OnError
}

// OpenV2 opens path (or stdout when path == "-") and, unless append mode
// applies, writes the header line. append is downgraded to a fresh
// (truncating) open when the target doesn't exist or is empty.
func OpenV2(path string, header asciicast.Header, append bool, onError OnError) (*V2Writer, error) {
	if onError == nil {
		onError = func(string) {}
	}
	w := &V2Writer{path: path, onError: onError}

	if path == "-" {
		w.isStdout = true
		w.enc = asciicast.NewV2Writer(os.Stdout)
		if err := w.enc.WriteHeader(header); err != nil {
			return nil, fmt.Errorf("writer: write header: %w", err)
		}
		return w, nil
	}

	reallyAppend := append
	if append {
		if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
			reallyAppend = false
		}
	}

	flags := os.O_WRONLY | os.O_CREATE
	if reallyAppend {
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
	w.enc = asciicast.NewV2Writer(&fifoAwareWriter{w: w})

	if !reallyAppend {
		if err := w.enc.WriteHeader(header); err != nil {
			w.f.Close()
			return nil, fmt.Errorf("writer: write header: %w", err)
		}
	}
	return w, nil
}

// fifoAwareWriter routes every byte through V2Writer.write so broken-pipe
// recovery applies uniformly to the header line and every event line.
type fifoAwareWriter struct{ w *V2Writer }

func (fw *fifoAwareWriter) Write(p []byte) (int, error) {
	if err := fw.w.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// write implements the broken-pipe recovery contract: on a FIFO target, a
// broken-pipe error is reported via onError, the path is reopened, and the
// write retried once; any other error is reported and propagated.
func (w *V2Writer) write(p []byte) error {
	_, err := w.f.Write(p)
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

func (w *V2Writer) WriteStdout(t float64, data []byte) error {
	text := w.stdoutDec.Decode(data)
	if text == "" {
		return nil
	}
	return w.enc.WriteEvent(asciicast.Event{Time: t, Kind: asciicast.Output, Payload: text})
}

func (w *V2Writer) WriteStdin(t float64, data []byte) error {
	text := w.stdinDec.Decode(data)
	if text == "" {
		return nil
	}
	return w.enc.WriteEvent(asciicast.Event{Time: t, Kind: asciicast.Input, Payload: text})
}

func (w *V2Writer) WriteResize(t float64, size asciicast.Size) error {
	return w.enc.WriteEvent(asciicast.NewResize(t, size.Cols, size.Rows))
}

func (w *V2Writer) WriteMarker(t float64) error {
	return w.enc.WriteEvent(asciicast.Event{Time: t, Kind: asciicast.Marker, Payload: ""})
}

func (w *V2Writer) Close(lastT float64) error {
	var flushErr error
	if tail := w.stdoutDec.Flush(); tail != "" {
		if err := w.enc.WriteEvent(asciicast.Event{Time: lastT, Kind: asciicast.Output, Payload: tail}); err != nil && flushErr == nil {
			flushErr = err
		}
	}
	if tail := w.stdinDec.Flush(); tail != "" {
		if err := w.enc.WriteEvent(asciicast.Event{Time: lastT, Kind: asciicast.Input, Payload: tail}); err != nil && flushErr == nil {
			flushErr = err
		}
	}
	if flushErr != nil {
		if !w.isStdout {
			w.f.Close()
		}
		return flushErr
	}
	if w.isStdout {
		return nil
	}
	return w.f.Close()
}

var _ Sink = (*V2Writer)(nil)
var _ io.Writer = (*fifoAwareWriter)(nil)
