// Package sky is an embedded event store. For each object type it keeps,
// per object id, a chronologically ordered path of events (an action id plus
// property values).
//
// An object file is a directory holding a header index that maps disjoint
// object-id ranges to block files, an action dictionary, a property
// dictionary and, while a writer holds it, a lock file naming the owning
// process. Blocks hold the paths for their range and are split when their
// encoded size grows past the configured ceiling. Readers walk every path in
// object-id order with a PathIterator and drain each one with a Cursor.
package sky

import "errors"

// Sentinel errors for programmatic handling. Callers use errors.Is to tell
// recoverable conditions (ErrIO, ErrLockConflict) from conditions that
// poison an open handle (ErrCorruptState, ErrLockViolation).
var (
	ErrIO              = errors.New("i/o error")
	ErrCorruptFormat   = errors.New("corrupt format")
	ErrCorruptState    = errors.New("corrupt state")
	ErrChecksum        = errors.New("block checksum mismatch")
	ErrLockConflict    = errors.New("object file locked by another process")
	ErrLockViolation   = errors.New("lock not held by this process")
	ErrExhausted       = errors.New("no more items")
	ErrClosed          = errors.New("object file is not open")
	ErrAlreadyOpen     = errors.New("object file is already open")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidObjectID = errors.New("invalid object id")
)
