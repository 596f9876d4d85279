// Package asciicast defines the in-memory event model for a recorded
// terminal session and the codecs that read/write it in the v1 (archival)
// and v2 (streaming) on-disk formats.
package asciicast

import "fmt"

// Kind identifies what an Event carries.
type Kind byte

const (
	Output Kind = 'o' // text fragment received from the PTY master
	Input  Kind = 'i' // text fragment the user typed
	Resize Kind = 'r' // "<cols>x<rows>"
	Marker Kind = 'm' // user-inserted marker, payload usually empty
)

func (k Kind) String() string { return string(rune(k)) }

// Size is the payload of a Resize event.
type Size struct {
	Cols int
	Rows int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Cols, s.Rows) }

// Event is the tuple (t, kind, payload). Payload is carried as a plain
// string on the wire for every kind; Resize additionally exposes its
// parsed Cols/Rows via Size() for callers that don't want to re-parse
// the string form.
type Event struct {
	Time    float64
	Kind    Kind
	Payload string
}

// Size parses a Resize event's payload. It is only meaningful when
// Kind == Resize; other kinds return the zero Size.
func (e Event) Size() Size {
	if e.Kind != Resize {
		return Size{}
	}
	var s Size
	fmt.Sscanf(e.Payload, "%dx%d", &s.Cols, &s.Rows)
	return s
}

// NewResize builds a Resize event from cols/rows.
func NewResize(t float64, cols, rows int) Event {
	return Event{Time: t, Kind: Resize, Payload: Size{Cols: cols, Rows: rows}.String()}
}
