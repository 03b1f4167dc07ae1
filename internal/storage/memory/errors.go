package memory

import "errors"

var errClosed = errors.New("memory backend closed")
