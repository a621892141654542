package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRoomNotFound: the target room was never created.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidSession: the presented session id was never created in the
	// target room. Wrong-room ids fail the same way on purpose.
	ErrInvalidSession = errors.New("invalid session")

	// ErrNotFound: a session or message lookup missed. Logical absence,
	// never an I/O fault.
	ErrNotFound = errors.New("not found")
)

// StorageError wraps an I/O or durability fault from the store. Fatal to
// the request, not to the process.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
