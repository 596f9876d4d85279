package asciicast

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// roundTime rounds a timestamp to microsecond precision — 6 fractional
// digits on write.
func roundTime(t float64) float64 {
	return math.Round(t*1e6) / 1e6
}

// marshalCompact is json.Marshal with HTML-escaping disabled, so payload
// text is "never ASCII-escaped beyond what JSON requires".
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// EncodeHeader renders the header line (no trailing newline included in
// the return value's meaning — WriteHeader appends it). MarshalJSON is
// called directly because encoding/json would compact its output and drop
// the ", " / ": " separators.
func EncodeHeader(h Header) ([]byte, error) {
	return h.MarshalJSON()
}

// EncodeEvent renders one event as a 3-element JSON array:
// [t, "kind", "payload"], with ", " between elements.
func EncodeEvent(e Event) ([]byte, error) {
	t := roundTime(e.Time)
	tEnc, err := marshalCompact(t)
	if err != nil {
		return nil, err
	}
	kEnc, err := marshalCompact(string(e.Kind))
	if err != nil {
		return nil, err
	}
	pEnc, err := marshalCompact(e.Payload)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(tEnc)
	buf.WriteString(", ")
	buf.Write(kEnc)
	buf.WriteString(", ")
	buf.Write(pEnc)
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Writer writes a v2 stream line-by-line to an underlying io.Writer.
type Writer struct {
	w io.Writer
}

func NewV2Writer(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) WriteHeader(h Header) error {
	line, err := EncodeHeader(h)
	if err != nil {
		return err
	}
	return w.writeLine(line)
}

func (w *Writer) WriteEvent(e Event) error {
	line, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	return w.writeLine(line)
}

func (w *Writer) writeLine(line []byte) error {
	if _, err := w.w.Write(line); err != nil {
		return err
	}
	_, err := w.w.Write([]byte{'\n'})
	return err
}

// Decoder reads a v2 stream: a header line followed by event lines, one
// JSON value per line, stopping at a blank line if present.
type Decoder struct {
	sc *bufio.Scanner
}

func NewV2Decoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Decoder{sc: sc}
}

// DecodeHeader reads and parses the first line. Callers that have already
// peeked the first line (format probing) should use DecodeHeaderLine
// instead and then call Next in a loop for events.
func (d *Decoder) DecodeHeader() (Header, error) {
	if !d.sc.Scan() {
		if err := d.sc.Err(); err != nil {
			return Header{}, fmt.Errorf("read header: %w", err)
		}
		return Header{}, fmt.Errorf("read header: %w", io.EOF)
	}
	return DecodeHeaderLine(d.sc.Bytes())
}

// DecodeHeaderLine parses a single header line.
func DecodeHeaderLine(line []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if h.Version != 2 {
		return Header{}, fmt.Errorf("%w: not a v2 header (version=%d)", ErrFormat, h.Version)
	}
	return h, nil
}

// Next returns the next event, or io.EOF when the stream ends (including
// at a trailing blank line, which it consumes and treats as end-of-stream).
func (d *Decoder) Next() (Event, error) {
	for d.sc.Scan() {
		line := d.sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			return Event{}, io.EOF
		}
		return DecodeEventLine(line)
	}
	if err := d.sc.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}

// DecodeEventLine parses a single `[t, "kind", "payload"]` line.
func DecodeEventLine(line []byte) (Event, error) {
	var raw [3]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: malformed event line: %v", ErrFormat, err)
	}
	var t float64
	if err := json.Unmarshal(raw[0], &t); err != nil {
		return Event{}, fmt.Errorf("%w: event time: %v", ErrFormat, err)
	}
	var kindStr string
	if err := json.Unmarshal(raw[1], &kindStr); err != nil || len(kindStr) != 1 {
		return Event{}, fmt.Errorf("%w: event kind: %v", ErrFormat, err)
	}
	var payload string
	if err := json.Unmarshal(raw[2], &payload); err != nil {
		return Event{}, fmt.Errorf("%w: event payload: %v", ErrFormat, err)
	}
	return Event{Time: t, Kind: Kind(kindStr[0]), Payload: payload}, nil
}
