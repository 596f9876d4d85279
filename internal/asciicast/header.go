package asciicast

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Header is the first line of a v2 recording. Timestamp and
// IdleTimeLimit are represented as pointers so "absent" and "zero" are
// distinguishable, matching the original format's optional-field
// semantics. Extra carries any producer-chosen keys a reader doesn't
// recognize so they survive a read/write round-trip unchanged.
type Header struct {
	Version       int               `json:"version"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	Timestamp     *float64          `json:"timestamp,omitempty"`
	IdleTimeLimit *float64          `json:"idle_time_limit,omitempty"`
	Title         string            `json:"title,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
	Command       string            `json:"command,omitempty"`
	Extra         map[string]any    `json:"-"`
}

// knownHeaderKeys lists the JSON keys Header decodes into named fields;
// everything else lands in Extra.
var knownHeaderKeys = map[string]bool{
	"version": true, "width": true, "height": true, "timestamp": true,
	"idle_time_limit": true, "title": true, "env": true, "command": true,
}

// MarshalJSON emits known fields plus any Extra keys, in a stable field
// order (known fields first) so S1-style golden-file tests are exact.
func (h Header) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(h.Extra)+8)
	for k, v := range h.Extra {
		m[k] = v
	}
	m["version"] = h.Version
	m["width"] = h.Width
	m["height"] = h.Height
	if h.Timestamp != nil {
		m["timestamp"] = *h.Timestamp
	}
	if h.IdleTimeLimit != nil {
		m["idle_time_limit"] = *h.IdleTimeLimit
	}
	if h.Title != "" {
		m["title"] = h.Title
	}
	if h.Env != nil {
		m["env"] = h.Env
	}
	if h.Command != "" {
		m["command"] = h.Command
	}
	return marshalOrdered(m, []string{"version", "width", "height", "timestamp",
		"idle_time_limit", "title", "env", "command"})
}

// marshalOrdered renders m as a JSON object, writing the keys in
// preferredOrder first (when present in m) followed by any remaining keys
// in sorted order — close enough to the writer's usual
// key order without depending on Go's randomized map iteration.
func marshalOrdered(m map[string]any, preferredOrder []string) ([]byte, error) {
	written := make(map[string]bool, len(m))
	var buf []byte
	buf = append(buf, '{')
	first := true
	writeKV := func(k string, v any) error {
		enc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf = append(buf, ',', ' ')
		}
		first = false
		kenc, _ := json.Marshal(k)
		buf = append(buf, kenc...)
		buf = append(buf, ':', ' ')
		buf = append(buf, enc...)
		return nil
	}
	for _, k := range preferredOrder {
		v, ok := m[k]
		if !ok {
			continue
		}
		if err := writeKV(k, v); err != nil {
			return nil, err
		}
		written[k] = true
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !written[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if err := writeKV(k, m[k]); err != nil {
			return nil, err
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

func (h *Header) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["version"]; ok {
		if err := json.Unmarshal(v, &h.Version); err != nil {
			return fmt.Errorf("header.version: %w", err)
		}
	}
	if v, ok := raw["width"]; ok {
		if err := json.Unmarshal(v, &h.Width); err != nil {
			return fmt.Errorf("header.width: %w", err)
		}
	}
	if v, ok := raw["height"]; ok {
		if err := json.Unmarshal(v, &h.Height); err != nil {
			return fmt.Errorf("header.height: %w", err)
		}
	}
	if v, ok := raw["timestamp"]; ok {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("header.timestamp: %w", err)
		}
		h.Timestamp = &f
	}
	if v, ok := raw["idle_time_limit"]; ok {
		var f float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("header.idle_time_limit: %w", err)
		}
		h.IdleTimeLimit = &f
	}
	if v, ok := raw["title"]; ok {
		json.Unmarshal(v, &h.Title)
	}
	if v, ok := raw["command"]; ok {
		json.Unmarshal(v, &h.Command)
	}
	if v, ok := raw["env"]; ok {
		var env map[string]string
		if err := json.Unmarshal(v, &env); err != nil {
			return fmt.Errorf("header.env: %w", err)
		}
		h.Env = env
	}
	for k, v := range raw {
		if knownHeaderKeys[k] {
			continue
		}
		if h.Extra == nil {
			h.Extra = make(map[string]any)
		}
		var any any
		json.Unmarshal(v, &any)
		h.Extra[k] = any
	}
	return nil
}
