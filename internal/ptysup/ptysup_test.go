package ptysup

import (
	"testing"
	"time"

	"github.com/tty-cast/castty/internal/asciicast"
)

type fakeSink struct {
	stdout  [][]byte
	stdin   [][]byte
	resizes []asciicast.Size
	markers []float64
}

func (f *fakeSink) Stdout(t float64, data []byte)        { f.stdout = append(f.stdout, append([]byte(nil), data...)) }
func (f *fakeSink) Stdin(t float64, data []byte)         { f.stdin = append(f.stdin, append([]byte(nil), data...)) }
func (f *fakeSink) Resize(t float64, size asciicast.Size) { f.resizes = append(f.resizes, size) }
func (f *fakeSink) Marker(t float64)                      { f.markers = append(f.markers, t) }

func newTestSupervisor(sink Sink) *Supervisor {
	s := New(Config{
		Argv: []string{"/bin/true"},
		Sink: sink,
		KeyBindings: KeyBindings{
			Pause: 0x1c, HasPause: true,
			Marker: 0x0e, HasMarker: true,
		},
	})
	s.startTime = time.Now()
	return s
}

func TestHandleStdin_PlainBytesPassThroughAndRecord(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSupervisor(sink)

	out := s.handleStdin([]byte("hello"))
	if string(out) != "hello" {
		t.Errorf("got %q", out)
	}
	if len(sink.stdin) != 1 || string(sink.stdin[0]) != "hello" {
		t.Errorf("unexpected recorded input: %v", sink.stdin)
	}
}

func TestHandleStdin_PauseSuppressesRecording(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSupervisor(sink)

	// S6: pause byte, then output while paused should be suppressed by the
	// caller. Here we verify the pause toggle, that the pause byte itself
	// is consumed rather than forwarded, that input typed while paused
	// still reaches the child but is not recorded, and that a second
	// pause byte resumes.
	out := s.handleStdin([]byte{0x1c})
	if len(out) != 0 {
		t.Errorf("pause byte should not be forwarded to child, got %v", out)
	}
	if !s.paused {
		t.Fatal("expected paused state after pause key")
	}

	out = s.handleStdin([]byte("typed while paused"))
	if string(out) != "typed while paused" {
		t.Errorf("child should still receive input while paused, got %q", out)
	}
	if len(sink.stdin) != 0 {
		t.Errorf("input should not be recorded while paused, got %v", sink.stdin)
	}

	s.handleStdin([]byte{0x1c})
	if s.paused {
		t.Fatal("expected resumed state after second pause key")
	}
}

func TestHandleStdin_MarkerEmitsNoChildBytes(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSupervisor(sink)

	out := s.handleStdin([]byte{0x0e})
	if len(out) != 0 {
		t.Errorf("marker byte should not be forwarded to child, got %v", out)
	}
	if len(sink.markers) != 1 {
		t.Errorf("expected one marker, got %v", sink.markers)
	}
}

func TestHandleStdin_PrefixGatesCommands(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSupervisor(sink)
	s.cfg.KeyBindings = KeyBindings{
		Prefix: 0x01, HasPrefix: true,
		Pause: 0x1c, HasPause: true,
	}

	// Without the prefix, the pause byte is just ordinary input.
	out := s.handleStdin([]byte{0x1c})
	if string(out) != "\x1c" {
		t.Errorf("expected pause byte to pass through without prefix, got %v", out)
	}
	if s.paused {
		t.Fatal("pause should require the prefix key when one is configured")
	}

	// prefix then pause triggers the command and consumes both bytes.
	out = s.handleStdin([]byte{0x01, 0x1c})
	if len(out) != 0 {
		t.Errorf("prefix+command sequence should not reach the child, got %v", out)
	}
	if !s.paused {
		t.Fatal("expected paused after prefix+pause")
	}
}

func TestIsOSCReply(t *testing.T) {
	reply := append([]byte{0x1b, ']'}, append([]byte("11;rgb:0000/0000/0000"), 0x07)...)
	if !isOSCReply(reply) {
		t.Error("expected OSC reply to be recognized")
	}
	if isOSCReply([]byte("normal input")) {
		t.Error("plain text should not be recognized as an OSC reply")
	}
}

func TestHandleStdin_OSCReplyNotRecorded(t *testing.T) {
	sink := &fakeSink{}
	s := newTestSupervisor(sink)
	reply := append([]byte{0x1b, ']'}, append([]byte("11;rgb:0/0/0"), 0x07)...)

	out := s.handleStdin(reply)
	if string(out) != string(reply) {
		t.Errorf("OSC reply should be forwarded verbatim, got %q", out)
	}
	if len(sink.stdin) != 0 {
		t.Errorf("OSC reply should not be recorded as input, got %v", sink.stdin)
	}
}
