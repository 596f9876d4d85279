// Package asyncwriter decouples the PTY hot loop from disk I/O by
// running the Sink on its own goroutine, fed through a bounded queue
// that degrades by coalescing rather than blocking the producer when
// it falls behind.
package asyncwriter

import (
	"sync"

	"github.com/tty-cast/castty/internal/asciicast"
	"github.com/tty-cast/castty/internal/writer"
)

// softCap is the queue depth at which the worker starts coalescing
// adjacent Stdout messages instead of growing further.
const softCap = 4096

type kind int

const (
	kStdout kind = iota
	kStdin
	kResize
	kMarker
	kStop
)

type message struct {
	kind kind
	t    float64
	data []byte
	size asciicast.Size
}

// Worker owns a writer.Sink and drains a queue of recorded events onto it
// from its own goroutine. The producer-facing methods never block the
// caller on disk I/O.
type Worker struct {
	sink        writer.Sink
	timeOffset  float64
	recordStdin bool

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []message
	closed bool

	done  chan struct{}
	err   error
	lastT float64
}

// Start spawns the worker goroutine. timeOffset is added to every event's
// time before it reaches sink, for append-mode continuity.
// recordStdin=false makes Stdin a silent no-op.
func Start(sink writer.Sink, timeOffset float64, recordStdin bool) *Worker {
	w := &Worker{
		sink:        sink,
		timeOffset:  timeOffset,
		recordStdin: recordStdin,
		done:        make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

func (w *Worker) enqueue(m message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if m.kind == kStdout && len(w.queue) >= softCap {
		if last := &w.queue[len(w.queue)-1]; last.kind == kStdout {
			last.data = append(last.data, m.data...)
			w.cond.Signal()
			return
		}
	}
	w.queue = append(w.queue, m)
	w.cond.Signal()
}

// Stdout enqueues a recorded output event. Non-blocking.
func (w *Worker) Stdout(t float64, data []byte) {
	w.enqueue(message{kind: kStdout, t: t, data: append([]byte(nil), data...)})
}

// Stdin enqueues a recorded input event (dropped silently if recordStdin
// is false). Non-blocking.
func (w *Worker) Stdin(t float64, data []byte) {
	if !w.recordStdin {
		return
	}
	w.enqueue(message{kind: kStdin, t: t, data: append([]byte(nil), data...)})
}

// Resize enqueues a resize event. Non-blocking.
func (w *Worker) Resize(t float64, size asciicast.Size) {
	w.enqueue(message{kind: kResize, t: t, size: size})
}

// Marker enqueues a marker event. Non-blocking.
func (w *Worker) Marker(t float64) {
	w.enqueue(message{kind: kMarker, t: t})
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		w.mu.Lock()
		for len(w.queue) == 0 {
			w.cond.Wait()
		}
		m := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		if m.kind == kStop {
			return
		}

		// On a prior I/O failure, drain remaining messages without
		// writing so the producer never blocks, but keep accepting
		// Stop so Close() still returns.
		if w.err != nil {
			continue
		}

		t := m.t + w.timeOffset
		w.lastT = t
		var err error
		switch m.kind {
		case kStdout:
			err = w.sink.WriteStdout(t, m.data)
		case kStdin:
			err = w.sink.WriteStdin(t, m.data)
		case kResize:
			err = w.sink.WriteResize(t, m.size)
		case kMarker:
			err = w.sink.WriteMarker(t)
		}
		if err != nil {
			w.err = err
		}
	}
}

// Close enqueues Stop, waits for the worker to exit, and returns the first
// I/O error it encountered (if any), closing the underlying sink either
// way.
func (w *Worker) Close() error {
	w.mu.Lock()
	w.closed = true
	w.queue = append(w.queue, message{kind: kStop})
	w.cond.Signal()
	w.mu.Unlock()

	<-w.done
	closeErr := w.sink.Close(w.lastT)
	if w.err != nil {
		return w.err
	}
	return closeErr
}
