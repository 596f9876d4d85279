package asciicast

import "errors"

// ErrFormat is returned when a recording is not in v1 or v2 shape, or a
// line within a v2 stream is malformed.
var ErrFormat = errors.New("asciicast: format error")
