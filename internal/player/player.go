// Package player paces a decoded event stream on wall-clock time,
// writes each event to a raw or re-serialized-asciicast sink, and runs
// the playback-control state machine (pause/step/next-marker) off keys
// read from the controlling terminal.
package player

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tty-cast/castty/internal/asciicast"
	"github.com/tty-cast/castty/internal/tty"
	"github.com/tty-cast/castty/internal/transform"
)

// ErrCancelled is returned when Ctrl-C is read from the control terminal
// during playback.
var ErrCancelled = errors.New("player: cancelled")

// Sink is the destination for decoded events.
type Sink interface {
	Header(h asciicast.Header) error
	Event(e asciicast.Event) error
	Close() error
}

// KeyBindings configures the playback control loop.
type KeyBindings struct {
	Pause         byte
	HasPause      bool
	Step          byte
	HasStep       bool
	NextMarker    byte
	HasNextMarker bool
}

// Options configures a single playback run.
type Options struct {
	Speed          float64 // 0 or negative is treated as 1; 1 is normal speed
	Loop           bool
	PauseOnMarkers bool
	Stream         asciicast.Kind // not read by Play; the Sink does stream selection
	HasStream      bool           // not read by Play; see NewRawSink and NewAsciicastSink
	IdleTimeLimit  float64        // CLI override; 0 means "use the header/unlimited chain"

	KeyBindings KeyBindings
	Notify      func(string)
	Verbose     bool // humanize.RelTime duration diagnostic via Notify

	TTYIn *os.File // control-key source; nil disables interactive control
}

// resolveIdleLimit implements the idle_time_limit defaulting chain:
// CLI override -> header value -> unlimited.
func resolveIdleLimit(opts Options, header asciicast.Header) float64 {
	if opts.IdleTimeLimit > 0 {
		return opts.IdleTimeLimit
	}
	if header.IdleTimeLimit != nil && *header.IdleTimeLimit > 0 {
		return *header.IdleTimeLimit
	}
	return math.Inf(1)
}

// Play drives r's event stream through sink on wall-clock time, honoring
// speed, idle-cap, and the pause/step/next-marker controls. The whole
// stream is decoded into memory before playback starts; filtering by
// event kind is left to sink.
func Play(r asciicast.Reader, sink Sink, opts Options) error {
	notify := opts.Notify
	if notify == nil {
		notify = func(string) {}
	}

	header := r.Header()
	if err := sink.Header(header); err != nil {
		return fmt.Errorf("player: write header: %w", err)
	}

	idleLimit := resolveIdleLimit(opts, header)
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}

	var decodeErr error
	events := transform.Collect(transform.Pipeline(transform.FromReader(r, &decodeErr), idleLimit, speed))
	if decodeErr != nil {
		return fmt.Errorf("%w: %v", asciicast.ErrFormat, decodeErr)
	}

	ttyFd := -1
	if opts.TTYIn != nil {
		ttyFd = int(opts.TTYIn.Fd())
	}

	loop := &controlLoop{
		events: events,
		sink:   sink,
		opts:   opts,
		notify: notify,
		ttyFd:  ttyFd,
	}

	if opts.Verbose && len(events) > 0 {
		notify(fmt.Sprintf("playing %s of recorded session", humanize.RelTime(time.Now(), time.Now().Add(time.Duration(events[len(events)-1].Time*float64(time.Second))), "", "")))
	}

	return loop.run()
}

// controlLoop drives the per-event wait/emit/pause cycle.
type controlLoop struct {
	events []asciicast.Event
	sink   Sink
	opts   Options
	notify func(string)
	ttyFd  int

	wallStart     time.Time
	paused        bool
	pausedElapsed float64
}

func (l *controlLoop) now() float64 {
	return time.Since(l.wallStart).Seconds()
}

func (l *controlLoop) run() error {
	l.wallStart = time.Now()
	i := 0
	for i < len(l.events) {
		e := l.events[i]

		if !l.paused {
			delay := e.Time - l.now()
			if delay > 0 {
				key, err := l.waitKey(time.Duration(delay * float64(time.Second)))
				if err != nil {
					return err
				}
				if key != 0 {
					cont, stepOverride, err := l.handleKey(key, i)
					if err != nil {
						return err
					}
					if stepOverride >= 0 {
						i = stepOverride
						continue
					}
					if !cont {
						continue
					}
				}
			}
		} else {
			key, err := l.waitKey(50 * time.Millisecond)
			if err != nil {
				return err
			}
			if key != 0 {
				_, stepOverride, err := l.handleKey(key, i)
				if err != nil {
					return err
				}
				if stepOverride >= 0 {
					i = stepOverride
					continue
				}
			}
			continue
		}

		if err := l.emit(e); err != nil {
			return err
		}
		if l.opts.PauseOnMarkers && e.Kind == asciicast.Marker {
			l.enterPause(e.Time)
		}
		i++
	}
	return nil
}

func (l *controlLoop) emit(e asciicast.Event) error {
	return l.sink.Event(e)
}

// waitKey blocks up to timeout for a control key, returning 0 when none
// arrived. Disabled (ttyFd == -1) waits are plain sleeps.
func (l *controlLoop) waitKey(timeout time.Duration) (byte, error) {
	if timeout < 0 {
		timeout = 0
	}
	if l.ttyFd < 0 {
		time.Sleep(timeout)
		return 0, nil
	}
	buf, err := tty.ReadKey(l.ttyFd, timeout)
	if err != nil {
		return 0, fmt.Errorf("player: read control key: %w", err)
	}
	if len(buf) == 0 {
		return 0, nil
	}
	return buf[0], nil
}

// handleKey applies one control key
// play"). stepOverride is the new event index when step/next-marker
// advance it directly, or -1 otherwise.
func (l *controlLoop) handleKey(b byte, i int) (shouldEmit bool, stepOverride int, err error) {
	kb := l.opts.KeyBindings

	if b == 0x03 {
		return false, -1, ErrCancelled
	}
	if kb.HasPause && b == kb.Pause {
		if !l.paused {
			l.enterPause(l.events[i].Time)
		} else {
			l.resume()
		}
		return false, -1, nil
	}
	if l.paused && kb.HasStep && b == kb.Step {
		if err := l.emit(l.events[i]); err != nil {
			return false, -1, err
		}
		next := i + 1
		if next < len(l.events) {
			l.enterPause(l.events[next].Time)
		}
		return false, next, nil
	}
	if l.paused && kb.HasNextMarker && b == kb.NextMarker {
		j := i
		for j < len(l.events) {
			if err := l.emit(l.events[j]); err != nil {
				return false, -1, err
			}
			if l.events[j].Kind == asciicast.Marker {
				break
			}
			j++
		}
		next := j + 1
		if next < len(l.events) {
			l.enterPause(l.events[j].Time)
		}
		return false, next, nil
	}
	return true, -1, nil
}

func (l *controlLoop) enterPause(t float64) {
	l.paused = true
	l.pausedElapsed = t
}

func (l *controlLoop) resume() {
	l.paused = false
	l.wallStart = time.Now().Add(-time.Duration(l.pausedElapsed * float64(time.Second)))
}

// RawSink writes only payloads whose kind matches Stream (default
// Output), byte for byte, flushing after each write.
type RawSink struct {
	Out    io.Writer
	Stream asciicast.Kind // zero value defaults to Output in NewRawSink
}

// NewRawSink builds a RawSink selecting stream when hasStream is true,
// defaulting to Output otherwise.
func NewRawSink(out io.Writer, stream asciicast.Kind, hasStream bool) *RawSink {
	if !hasStream {
		stream = asciicast.Output
	}
	return &RawSink{Out: out, Stream: stream}
}

func (s *RawSink) Header(asciicast.Header) error { return nil }

func (s *RawSink) Event(e asciicast.Event) error {
	if e.Kind != s.Stream {
		return nil
	}
	if _, err := io.WriteString(s.Out, e.Payload); err != nil {
		return err
	}
	if f, ok := s.Out.(interface{ Sync() error }); ok {
		f.Sync()
	}
	return nil
}

func (s *RawSink) Close() error { return nil }

// AsciicastSink re-serializes the header and each event as a valid v2
// recording. When Stream is set, only that event kind is written.
type AsciicastSink struct {
	Out       io.Writer
	Stream    asciicast.Kind
	HasStream bool

	enc *asciicast.Writer
}

// NewAsciicastSink builds an AsciicastSink; when hasStream is true, only
// events of the given kind are written alongside the header.
func NewAsciicastSink(out io.Writer, stream asciicast.Kind, hasStream bool) *AsciicastSink {
	return &AsciicastSink{Out: out, Stream: stream, HasStream: hasStream}
}

func (s *AsciicastSink) Header(h asciicast.Header) error {
	s.enc = asciicast.NewV2Writer(s.Out)
	return s.enc.WriteHeader(h)
}

func (s *AsciicastSink) Event(e asciicast.Event) error {
	if s.HasStream && e.Kind != s.Stream {
		return nil
	}
	return s.enc.WriteEvent(e)
}

func (s *AsciicastSink) Close() error { return nil }
