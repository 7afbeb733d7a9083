//go:build windows

// Package process_windows implements the process transport for Windows
// targets over OpenProcess, ReadProcessMemory, WriteProcessMemory, and a
// VirtualQueryEx-walked memory map.
package process_windows

import (
	"fmt"
	"sync"

	"memsift/process"
	"memsift/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const openAccess = windows.PROCESS_QUERY_INFORMATION |
	windows.PROCESS_VM_READ |
	windows.PROCESS_VM_WRITE |
	windows.PROCESS_VM_OPERATION

// WindowsProcess implements the process.Process interface for Windows systems
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger
	mm     []memory_map.MemoryMapItem
	mu     sync.Mutex
}

// New creates a new WindowsProcess instance
func New() process.Process {
	return &WindowsProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new WindowsProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := &WindowsProcess{}
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WindowsProcess) Open(pid process.ProcessID) error {
	handle, err := windows.OpenProcess(openAccess, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}

	p.mu.Lock()
	p.pid = pid
	p.handle = handle
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if err := p.UpdateMemoryMap(); err != nil {
		p.log.Warn("Failed to initialize memory map: ", err)
	}

	p.log.Infoln("Process opened")
	return nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		if err := windows.CloseHandle(p.handle); err != nil {
			return fmt.Errorf("CloseHandle: %w", err)
		}
		p.handle = 0
	}

	p.pid = 0
	p.mm = nil
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *WindowsProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := memory_map.NewWindowsMemoryMap().ReadMemoryMap(int(p.pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	memory_map.Sort(mm)
	p.mm = mm
	return nil
}

func (p *WindowsProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return memory_map.IsValidAddress(uint64(addr), p.mm)
}

func (p *WindowsProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)
	return result, nil
}

// ReadMemory reads memory from the process at the specified address.
// A transfer shorter than size is an error, never a truncated result.
func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead)
	if err != nil {
		return nil, fmt.Errorf("ReadProcessMemory at %s: %w", addr.ToString(), err)
	}
	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("partial read: %d of %d bytes", bytesRead, size)
	}

	return buf, nil
}

// WriteMemory writes data to the process memory at the specified address
func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return process.ErrProcessNotOpen
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	var bytesWritten uintptr
	err := windows.WriteProcessMemory(handle, uintptr(addr), &dataCopy[0], uintptr(len(dataCopy)), &bytesWritten)
	if err != nil {
		return fmt.Errorf("WriteProcessMemory at %s: %w", addr.ToString(), err)
	}
	if bytesWritten != uintptr(len(data)) {
		return fmt.Errorf("partial write: %d of %d bytes", bytesWritten, len(data))
	}

	return nil
}
