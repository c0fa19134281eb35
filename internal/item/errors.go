package item

import "errors"

// ErrNotFound is returned by document stores when a uuid resolves to nothing.
var ErrNotFound = errors.New("document not found")
