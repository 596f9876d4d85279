package player

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/tty-cast/castty/internal/asciicast"
)

func mustOpen(t *testing.T, doc string) asciicast.Reader {
	t.Helper()
	r, err := asciicast.Open(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("asciicast.Open: %v", err)
	}
	return r
}

func TestPlayRawSinkWritesOnlySelectedStream(t *testing.T) {
	doc := `{"version":2,"width":80,"height":24}
[0.01,"o","hello "]
[0.01,"i","x"]
[0.01,"o","world"]
`
	var buf bytes.Buffer
	sink := NewRawSink(&buf, asciicast.Output, false)
	if err := Play(mustOpen(t, doc), sink, Options{Speed: 1000}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if buf.String() != "hello world" {
		t.Errorf("raw sink output = %q, want %q", buf.String(), "hello world")
	}
}

func TestPlayAsciicastSinkFiltersByStream(t *testing.T) {
	doc := `{"version":2,"width":80,"height":24}
[0.01,"o","out"]
[0.01,"i","in"]
`
	var buf bytes.Buffer
	sink := NewAsciicastSink(&buf, asciicast.Input, true)
	if err := Play(mustOpen(t, doc), sink, Options{Speed: 1000}); err != nil {
		t.Fatalf("Play: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, `"o"`) {
		t.Errorf("expected no o events in a stream=i replay, got %q", out)
	}
	if !strings.Contains(out, `"i"`) {
		t.Errorf("expected the i event to survive filtering, got %q", out)
	}
}

func TestResolveIdleLimitPrecedence(t *testing.T) {
	headerLimit := 5.0
	header := asciicast.Header{IdleTimeLimit: &headerLimit}

	if got := resolveIdleLimit(Options{IdleTimeLimit: 2}, header); got != 2 {
		t.Errorf("CLI override ignored: got %v", got)
	}
	if got := resolveIdleLimit(Options{}, header); got != 5 {
		t.Errorf("header value ignored: got %v", got)
	}
	if got := resolveIdleLimit(Options{}, asciicast.Header{}); got <= 5 {
		t.Errorf("expected unlimited (very large) when neither is set, got %v", got)
	}
}

func TestPlayMalformedStreamReturnsFormatError(t *testing.T) {
	doc := `{"version":2,"width":80,"height":24}
not a json array
`
	var buf bytes.Buffer
	sink := NewRawSink(&buf, asciicast.Output, false)
	err := Play(mustOpen(t, doc), sink, Options{Speed: 1000})
	if !errors.Is(err, asciicast.ErrFormat) {
		t.Fatalf("expected a format error for a malformed event line, got %v", err)
	}
}
