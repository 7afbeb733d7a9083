package process

import (
	"fmt"
	"strconv"
	"strings"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// ParseAddress parses a hexadecimal address, with or without a 0x prefix.
func ParseAddress(s string) (ProcessMemoryAddress, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	v, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return ProcessMemoryAddress(v), nil
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}
