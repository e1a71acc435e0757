package engine

import "errors"

// ErrNotSupported is returned by engines that lack a render mode.
var ErrNotSupported = errors.New("engine: render mode not supported")
