//go:build windows

package memory_map

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// WindowsMemoryMap implements MemoryMap for Windows
type WindowsMemoryMap struct{}

// NewWindowsMemoryMap creates a new WindowsMemoryMap instance
func NewWindowsMemoryMap() *WindowsMemoryMap {
	return &WindowsMemoryMap{}
}

// ReadMemoryMap walks the target's address space with VirtualQueryEx and
// returns one item per committed region. Protection flags are rendered in
// /proc/maps "rwxp" notation so the portable predicates apply unchanged.
func (w *WindowsMemoryMap) ReadMemoryMap(pid int) ([]MemoryMapItem, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	var (
		memoryMap []MemoryMapItem
		mbi       windows.MemoryBasicInformation
		addr      uintptr
	)
	for {
		err := windows.VirtualQueryEx(handle, addr, &mbi, unsafe.Sizeof(mbi))
		if err != nil {
			// The walk ends when the query runs past the last region.
			break
		}
		if mbi.RegionSize == 0 {
			break
		}
		if mbi.State == windows.MEM_COMMIT {
			memoryMap = append(memoryMap, MemoryMapItem{
				Address: uint64(mbi.BaseAddress),
				Size:    uint(mbi.RegionSize),
				Perms:   protectToPerms(mbi.Protect),
			})
		}
		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}
	return memoryMap, nil
}

// protectToPerms translates a PAGE_* protection value into "rwxp" form.
// Guard and no-access pages read as unmapped on purpose.
func protectToPerms(protect uint32) string {
	if protect&windows.PAGE_GUARD != 0 || protect&windows.PAGE_NOACCESS != 0 {
		return "---p"
	}
	perms := []byte("---p")
	switch protect &^ (windows.PAGE_GUARD | windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READONLY:
		perms[0] = 'r'
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		perms[0], perms[1] = 'r', 'w'
	case windows.PAGE_EXECUTE:
		perms[2] = 'x'
	case windows.PAGE_EXECUTE_READ:
		perms[0], perms[2] = 'r', 'x'
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		perms[0], perms[1], perms[2] = 'r', 'w', 'x'
	}
	return string(perms)
}
