// Package transform provides lazy event-stream combinators used by the
// player to reconstruct wall-clock pacing: relative/absolute time
// conversion, idle-time capping, and speed adjustment. Built on Go
// 1.23's iter.Seq so large recordings don't need to be materialized to
// apply a transform.
package transform

import (
	"io"
	"iter"
	"math"

	"github.com/tty-cast/castty/internal/asciicast"
)

// ToRelative rewrites absolute timestamps to inter-event delays: the
// first event's delay is its own absolute time.
func ToRelative(evs iter.Seq[asciicast.Event]) iter.Seq[asciicast.Event] {
	return func(yield func(asciicast.Event) bool) {
		prev := 0.0
		for e := range evs {
			d := e
			d.Time = e.Time - prev
			prev = e.Time
			if !yield(d) {
				return
			}
		}
	}
}

// ToAbsolute is the inverse of ToRelative: a running sum over delays.
func ToAbsolute(evs iter.Seq[asciicast.Event]) iter.Seq[asciicast.Event] {
	return func(yield func(asciicast.Event) bool) {
		var t float64
		for e := range evs {
			t += e.Time
			a := e
			a.Time = t
			if !yield(a) {
				return
			}
		}
	}
}

// CapRelative replaces every delay with min(delay, limit), compressing
// long idle stretches. A non-positive limit passes the stream through
// unchanged.
func CapRelative(evs iter.Seq[asciicast.Event], limit float64) iter.Seq[asciicast.Event] {
	if limit <= 0 || math.IsInf(limit, 1) {
		return evs
	}
	return func(yield func(asciicast.Event) bool) {
		for e := range evs {
			c := e
			if c.Time > limit {
				c.Time = limit
			}
			if !yield(c) {
				return
			}
		}
	}
}

// AdjustSpeed divides every delay by factor. factor must
// be > 0; callers should validate before calling.
func AdjustSpeed(evs iter.Seq[asciicast.Event], factor float64) iter.Seq[asciicast.Event] {
	if factor == 1 {
		return evs
	}
	return func(yield func(asciicast.Event) bool) {
		for e := range evs {
			a := e
			a.Time = e.Time / factor
			if !yield(a) {
				return
			}
		}
	}
}

// FromSlice adapts a materialized event slice to iter.Seq, for callers
// (tests, small recordings) that already have everything in memory.
func FromSlice(evs []asciicast.Event) iter.Seq[asciicast.Event] {
	return func(yield func(asciicast.Event) bool) {
		for _, e := range evs {
			if !yield(e) {
				return
			}
		}
	}
}

// FromReader streams events out of an asciicast.Reader lazily, reading
// one event per step. A decode error stops iteration and is reported
// through errOut, since a malformed line aborts playback with a load error.
func FromReader(r asciicast.Reader, errOut *error) iter.Seq[asciicast.Event] {
	return func(yield func(asciicast.Event) bool) {
		for {
			e, err := r.Next()
			if err != nil {
				if err != io.EOF {
					*errOut = err
				}
				return
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Collect drains a sequence into a slice.
func Collect(seq iter.Seq[asciicast.Event]) []asciicast.Event {
	var out []asciicast.Event
	for e := range seq {
		out = append(out, e)
	}
	return out
}

// Pipeline composes the player's typical order: absolute
// stream -> relative -> cap -> absolute -> speed-adjust.
func Pipeline(evs iter.Seq[asciicast.Event], idleLimit, speed float64) iter.Seq[asciicast.Event] {
	rel := ToRelative(evs)
	capped := CapRelative(rel, idleLimit)
	abs := ToAbsolute(capped)
	return AdjustSpeed(abs, speed)
}
