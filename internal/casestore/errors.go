package casestore

import (
	"errors"
	"fmt"
)

// ErrLockTimeout is returned when the lock could not be acquired within the configured bound.
var ErrLockTimeout = errors.New("timed out waiting for case database lock")

var (
	errLocked      = errors.New("lock held by another process")
	errUnsupported = errors.New("file locking is not supported on this platform")
)

// Error is a lock or I/O failure on the case database.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("case store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
