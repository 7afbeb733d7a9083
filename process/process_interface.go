package process

import (
	"memsift/process/memory_map"
)

// Process is the transport every platform backend implements: open a target
// by PID, enumerate its memory map, and move raw bytes. Byte interpretation,
// candidate tracking, and narrowing live in the scan package.
type Process interface {
	// Open opens a process with the given PID for memory operations
	Open(pid ProcessID) error

	// Close closes the process and releases resources
	Close() error

	// GetPID returns the process ID
	GetPID() ProcessID

	// UpdateMemoryMap refreshes the memory map for the process
	UpdateMemoryMap() error

	// IsValidAddress checks if the given memory address is valid and readable
	IsValidAddress(addr ProcessMemoryAddress) bool

	// GetMemoryMap returns a copy of the current memory map
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)

	// ReadMemory reads memory from the process at the specified address.
	// A partial read is an error, never a truncated result.
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

	// WriteMemory writes data to the process memory at the specified address
	WriteMemory(addr ProcessMemoryAddress, data []byte) error
}

// Freezer is the optional capability of backends that can stop the target's
// scheduling while a snapshot pass reads it. Callers type-assert for it;
// backends without it simply scan a moving target.
type Freezer interface {
	// Suspend stops the target process
	Suspend() error

	// Resume continues a process stopped by Suspend
	Resume() error
}
