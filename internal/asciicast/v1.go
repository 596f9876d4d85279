package asciicast

import (
	"encoding/json"
	"fmt"
)

// V1Doc is the read-only v1 archival format: a single JSON object with
// header fields plus a `stdout` array of [delay, text] pairs
// §6). castty never writes v1; it only reads it and adapts it to the
// common Event form.
type V1Doc struct {
	Version int               `json:"version"`
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Duration float64          `json:"duration"`
	Command string            `json:"command,omitempty"`
	Title   string            `json:"title,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Stdout  [][2]any          `json:"stdout"`
}

// DecodeV1 parses a v1 document from a single buffer. Open passes it only
// the first line of the input, so a v1 document spread over several
// lines is not recognized by Open.
func DecodeV1(data []byte) (V1Doc, error) {
	var doc V1Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return V1Doc{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if doc.Version != 1 {
		return V1Doc{}, fmt.Errorf("%w: not a v1 document (version=%d)", ErrFormat, doc.Version)
	}
	return doc, nil
}

// Events converts the stdout delay/text pairs into the common Event form
// by running-sum over delay: each pair yields one Output event at the
// cumulative absolute time.
func (d V1Doc) Events() ([]Event, error) {
	events := make([]Event, 0, len(d.Stdout))
	var t float64
	for i, pair := range d.Stdout {
		delay, ok := pair[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%w: stdout[%d] delay is not a number", ErrFormat, i)
		}
		text, ok := pair[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: stdout[%d] text is not a string", ErrFormat, i)
		}
		t += delay
		events = append(events, Event{Time: t, Kind: Output, Payload: text})
	}
	return events, nil
}

// Header derives a v2-shaped Header from the v1 document's fields,
// copying width/height/command/title/env when present. Version is
// always reported as 2; callers needing the true on-disk format use
// Reader.Format() instead.
func (d V1Doc) Header() Header {
	h := Header{
		Version: 2,
		Width:   d.Width,
		Height:  d.Height,
		Command: d.Command,
		Title:   d.Title,
		Env:     d.Env,
	}
	if d.Duration != 0 {
		h.Extra = map[string]any{"duration": d.Duration}
	}
	return h
}
