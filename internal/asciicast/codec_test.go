package asciicast

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestEncodeEventOutput(t *testing.T) {
	// write_stdout(1, 'x') encodes as [1, "o", "x"]
	line, err := EncodeEvent(Event{Time: 1, Kind: Output, Payload: "x"})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	want := `[1, "o", "x"]`
	if string(line) != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestEncodeEvent_NonASCII(t *testing.T) {
	line, err := EncodeEvent(Event{Time: 2, Kind: Output, Payload: "xżóć"})
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	want := `[2, "o", "xżóć"]`
	if string(line) != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestEncodeHeader_RequiredOnly(t *testing.T) {
	h := Header{Version: 2, Width: 80, Height: 24}
	line, err := EncodeHeader(h)
	if err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}
	want := `{"version": 2, "width": 80, "height": 24}`
	if string(line) != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	ts := 1700000000.0
	idle := 2.5
	h := Header{
		Version: 2, Width: 80, Height: 24,
		Timestamp: &ts, IdleTimeLimit: &idle,
		Title: "demo", Command: "/bin/bash",
		Env:   map[string]string{"SHELL": "/bin/bash", "TERM": "xterm-256color"},
		Extra: map[string]any{"x-custom": "kept"},
	}
	line, err := EncodeHeader(h)
	if err != nil {
		t.Fatalf("EncodeHeader: %v", err)
	}
	got, err := DecodeHeaderLine(line)
	if err != nil {
		t.Fatalf("DecodeHeaderLine: %v", err)
	}
	if got.Width != 80 || got.Height != 24 || got.Title != "demo" || got.Command != "/bin/bash" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.Timestamp == nil || *got.Timestamp != ts {
		t.Errorf("timestamp not preserved: %+v", got.Timestamp)
	}
	if got.Env["SHELL"] != "/bin/bash" {
		t.Errorf("env not preserved: %+v", got.Env)
	}
	if got.Extra["x-custom"] != "kept" {
		t.Errorf("unknown key not preserved: %+v", got.Extra)
	}
}

func TestS1_FullFile(t *testing.T) {
	var buf bytes.Buffer
	w := NewV2Writer(&buf)
	if err := w.WriteHeader(Header{Version: 2, Width: 80, Height: 24}); err != nil {
		t.Fatal(err)
	}
	events := []Event{
		{Time: 1, Kind: Output, Payload: "x"},
		{Time: 2, Kind: Output, Payload: "xżóć"},
		{Time: 3, Kind: Output, Payload: "łć"},
		{Time: 4, Kind: Output, Payload: "xx"},
	}
	for _, e := range events {
		if err := w.WriteEvent(e); err != nil {
			t.Fatal(err)
		}
	}
	want := strings.Join([]string{
		`{"version": 2, "width": 80, "height": 24}`,
		`[1, "o", "x"]`,
		`[2, "o", "xżóć"]`,
		`[3, "o", "łć"]`,
		`[4, "o", "xx"]`,
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("got:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestOpen_V2Stream(t *testing.T) {
	input := strings.Join([]string{
		`{"version": 2, "width": 80, "height": 24}`,
		`[0.5, "o", "foo"]`,
		`[1.25, "i", "x"]`,
		`[2, "r", "100x40"]`,
		`[2, "m", ""]`,
	}, "\n") + "\n"

	r, err := Open(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Header().Width != 80 || r.Header().Height != 24 {
		t.Fatalf("unexpected header: %+v", r.Header())
	}
	events, err := ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(events), events)
	}
	if events[2].Size() != (Size{Cols: 100, Rows: 40}) {
		t.Errorf("resize payload mismatch: %+v", events[2])
	}
}

func TestOpen_TrailingBlankLineStopsStream(t *testing.T) {
	input := "{\"version\": 2, \"width\": 80, \"height\": 24}\n[0, \"o\", \"a\"]\n\n[0, \"o\", \"should not be read\"]\n"
	r, err := Open(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	events, err := ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected reader to stop at blank line, got %d events", len(events))
	}
}

func TestOpenV1Adapter(t *testing.T) {
	input := `{"version":1,"width":80,"height":24,"duration":2.0,"stdout":[[0.5,"a"],[1.5,"b"]]}`
	r, err := Open(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	events, err := ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := []Event{
		{Time: 0.5, Kind: Output, Payload: "a"},
		{Time: 2.0, Kind: Output, Payload: "b"},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.Kind != want[i].Kind || e.Payload != want[i].Payload || diff(e.Time, want[i].Time) > 1e-9 {
			t.Errorf("event %d: got %+v, want %+v", i, e, want[i])
		}
	}
	if r.Header().Width != 80 || r.Header().Height != 24 {
		t.Errorf("v1 header not adapted: %+v", r.Header())
	}
}

func TestOpen_RejectsGarbage(t *testing.T) {
	_, err := Open(strings.NewReader("not json at all\n"))
	if err == nil {
		t.Fatal("expected format error")
	}
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}

var _ = io.EOF
