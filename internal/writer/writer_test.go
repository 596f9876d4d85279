package writer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tty-cast/castty/internal/asciicast"
)

func TestOpenV2_FreshFileWritesHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.cast")

	w, err := OpenV2(path, asciicast.Header{Version: 2, Width: 80, Height: 24}, false, nil)
	if err != nil {
		t.Fatalf("OpenV2: %v", err)
	}
	if err := w.WriteStdout(1, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(1); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 event, got %d lines: %q", len(lines), lines)
	}
	if lines[0] != `{"version": 2, "width": 80, "height": 24}` {
		t.Errorf("unexpected header line: %q", lines[0])
	}
	if lines[1] != `[1, "o", "x"]` {
		t.Errorf("unexpected event line: %q", lines[1])
	}
}

func TestOpenV2_AppendDowngradedWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.cast")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	w, err := OpenV2(path, asciicast.Header{Version: 2, Width: 80, Height: 24}, true, nil)
	if err != nil {
		t.Fatalf("OpenV2: %v", err)
	}
	w.Close(0)

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), `{"version": 2`) {
		t.Errorf("expected header to be written exactly once on empty-file append, got %q", data)
	}
}

func TestOpenV2_RealAppendSkipsHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.cast")
	existing := "{\"version\": 2, \"width\": 80, \"height\": 24}\n[0, \"o\", \"a\"]\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := OpenV2(path, asciicast.Header{Version: 2, Width: 80, Height: 24}, true, nil)
	if err != nil {
		t.Fatalf("OpenV2: %v", err)
	}
	w.WriteStdout(1, []byte("b"))
	w.Close(1)

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected exactly one header + 2 events, got %d lines: %q", len(lines), lines)
	}
}

func TestOpenV2_CloseFlushesPendingBytesAtLastT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.cast")

	w, err := OpenV2(path, asciicast.Header{Version: 2, Width: 80, Height: 24}, false, nil)
	if err != nil {
		t.Fatalf("OpenV2: %v", err)
	}
	if err := w.WriteStdout(1, []byte("a")); err != nil {
		t.Fatal(err)
	}
	// A lone leading byte of a 2-byte UTF-8 sequence: held back by the
	// incremental decoder until more bytes arrive or Close flushes it.
	if err := w.WriteStdout(2, []byte{0xc3}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(2); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 events, got %d lines: %q", len(lines), lines)
	}
	if lines[1] != `[1, "o", "a"]` {
		t.Errorf("unexpected first event line: %q", lines[1])
	}
	// The flushed tail must be stamped with lastT (2), not 0 — otherwise
	// it would precede the event at t=1 and break non-decreasing order.
	if lines[2] != `[2, "o", "�"]` {
		t.Errorf("unexpected flush event line: %q", lines[2])
	}
}

func TestIncrementalUTF8Decoder_SplitMultibyte(t *testing.T) {
	full := "x\xc5\xbc\xc3\xb3\xc5"
	// Feed the same bytes one at a time, splitting every multibyte sequence.
	var d1, d2 incrementalUTF8Decoder
	got1 := d1.Decode([]byte(full))

	b := []byte(full)
	var combined strings.Builder
	for i := 0; i < len(b); i++ {
		combined.WriteString(d2.Decode(b[i : i+1]))
	}
	combined.WriteString(d2.Flush())
	got1 += d1.Flush()

	if got1 != combined.String() {
		t.Errorf("chunked decode diverged from bulk decode:\n bulk: %q\n chunked: %q", got1, combined.String())
	}
}

func TestRawWriter_ResizePrelude(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.raw")
	w, err := OpenRaw(path, asciicast.Header{Width: 80, Height: 24}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.WriteStdout(0, []byte("hello"))
	w.Close(0)

	data, _ := os.ReadFile(path)
	want := "\x1b[8;24;80thello"
	if string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}

func TestRawWriter_NoAppendPrelude(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.raw")
	if err := os.WriteFile(path, []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}
	w, err := OpenRaw(path, asciicast.Header{Width: 80, Height: 24}, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.WriteStdout(0, []byte("more"))
	w.Close(0)

	data, _ := os.ReadFile(path)
	if string(data) != "existingmore" {
		t.Errorf("append mode should not emit a prelude, got %q", data)
	}
}

func TestRawWriter_InputAndMarkerAreNoops(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.raw")
	w, err := OpenRaw(path, asciicast.Header{Width: 80, Height: 24}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.WriteStdin(0, []byte("typed"))
	w.WriteMarker(0)
	w.Close(0)

	data, _ := os.ReadFile(path)
	if string(data) != "\x1b[8;24;80t" {
		t.Errorf("expected only the prelude, got %q", data)
	}
}
