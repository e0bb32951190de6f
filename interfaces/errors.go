package interfaces

import "errors"

var (
	// ErrNotFound is the root of every lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrBinaryNotFound is returned when a BinaryID has no compiled binary.
	ErrBinaryNotFound = wrapNotFound("binary not found")

	// ErrMachineNotFound is returned when a MachineID has no machine record.
	ErrMachineNotFound = wrapNotFound("machine not found")
)

type notFoundError struct {
	msg string
}

func wrapNotFound(msg string) error {
	return &notFoundError{msg: msg}
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Unwrap() error { return ErrNotFound }
