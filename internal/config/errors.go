package config

import "errors"

// ErrConfig wraps an unrecognized key-binding string. A missing install
// ID is not an error: Load generates and persists one.
var ErrConfig = errors.New("config: invalid configuration")
