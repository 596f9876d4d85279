// Package writer provides scoped, append-aware sinks that serialize
// recorded events to a file or stdout. Two variants share the scoped
// open/close contract — a v2 JSON-lines writer and a raw byte-stream
// writer — both satisfying the Sink interface so the PTY supervisor and
// its async worker don't need to know which one they're driving.
package writer

import (
	"github.com/tty-cast/castty/internal/asciicast"
)

// Sink is the common contract for both writer variants.
type Sink interface {
	WriteStdout(t float64, data []byte) error
	WriteStdin(t float64, data []byte) error
	WriteResize(t float64, size asciicast.Size) error
	WriteMarker(t float64) error
	// Close flushes any buffered state and releases the underlying file.
	// lastT is the timestamp of the last event written through this
	// sink, used to stamp any trailing flush events so they don't
	// precede events already on disk.
	Close(lastT float64) error
}

// OnError is invoked with a human-readable description whenever a sink
// recovers from (or fails to recover from) a write error, for forwarding
// to internal/notify.
type OnError func(msg string)
