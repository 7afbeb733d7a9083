// Package memory_map enumerates the mapped regions of a target process.
// The scan engine seeds its region set from these items; it never walks a
// target's layout itself.
package memory_map

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Path    string // Backing path or pseudo-path ([heap], [stack]), empty for anonymous maps
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s", mmItem.Address, mmItem.Size, mmItem.Perms)
}

// End returns the first address past the region.
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return len(mmItem.Perms) > 2 && mmItem.Perms[2] == 'x'
}

// IsAnonymous reports whether the region has no backing file. Heap, stack,
// and other bracketed pseudo-paths count as anonymous.
func (mmItem MemoryMapItem) IsAnonymous() bool {
	return mmItem.Path == "" || strings.HasPrefix(mmItem.Path, "[")
}

// MemoryMap defines the interface for reading a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryMapItem, error)
}

// Parse reads /proc/[pid]/maps formatted text. Unparseable lines are
// skipped, matching kernel additions to the format rather than failing on
// them. Items are returned in file order.
func Parse(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		// Address range, e.g. "00400000-0040b000"
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}
		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}
		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr < startAddr {
			continue
		}

		item := MemoryMapItem{
			Address: startAddr,
			Size:    uint(endAddr - startAddr),
			Perms:   fields[1],
		}
		// Fields: address perms offset dev inode [path]
		if len(fields) >= 6 {
			item.Path = strings.Join(fields[5:], " ")
		}
		memoryMap = append(memoryMap, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return memoryMap, nil
}

// Sort orders items ascending by address, the precondition for Find.
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// Find returns the item containing addr, or nil. The map must be sorted
// ascending by address.
func Find(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}
	return nil
}

// IsValidAddress reports whether addr falls inside a readable region of a
// sorted map.
func IsValidAddress(addr uint64, memoryMap []MemoryMapItem) bool {
	item := Find(addr, memoryMap)
	return item != nil && item.IsReadable()
}
