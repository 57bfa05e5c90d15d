package domain

import "errors"

// ErrNotFound indicates the referenced institution does not exist.
var ErrNotFound = errors.New("not found")
