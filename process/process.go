// Package process defines the portable types, errors, and interfaces for
// attaching to a target process and moving raw bytes in and out of its
// address space. Platform implementations live in process_linux and
// process_windows; the scan engine consumes only what is declared here.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")
)
