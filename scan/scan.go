// Package scan captures byte-level snapshots of a target address space and
// narrows per-element candidate sets across repeated read, filter, and split
// passes.
package scan

import (
	"errors"
	"fmt"

	"memsift/process"
)

// MemoryReader is the capability the engine needs from a byte source.
// process.Process satisfies it for live targets; scan_dump.DumpReader serves
// saved snapshots.
type MemoryReader interface {
	// ReadMemory reads size bytes starting at addr
	ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error)
}

var (
	// ErrShortRead is wrapped into a ReadError when a source returns fewer
	// bytes than requested without reporting an error itself.
	ErrShortRead = errors.New("short read")
)

// ReadError reports a failed region read. The failure is scoped to the
// region that produced it; sibling regions in the same pass are unaffected.
type ReadError struct {
	Base   process.ProcessMemoryAddress
	Length process.ProcessMemorySize
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s at %s: %v", e.Length.ToString(), e.Base.ToString(), e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
