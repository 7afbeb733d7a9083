//go:build linux

// Package process_linux implements the process transport for Linux targets:
// /proc-backed attachment and memory maps, process_vm_readv/writev byte
// transfer, pidof-style discovery, and SIGSTOP/SIGCONT freezing.
package process_linux

import (
	"fmt"
	"os"
	"sync"

	"memsift/process"
	"memsift/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// LinuxProcess implements the process.Process interface for Linux systems
type LinuxProcess struct {
	pid process.ProcessID
	log *logger.Logger
	mm  []memory_map.MemoryMapItem
	mu  sync.Mutex
}

// New creates a new LinuxProcess instance
func New() process.Process {
	return &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (process.Process, error) {
	p := &LinuxProcess{}
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); os.IsNotExist(err) {
		return fmt.Errorf("process with PID %d does not exist", pid)
	}

	p.mu.Lock()
	p.pid = pid
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if err := p.UpdateMemoryMap(); err != nil {
		return fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened")

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")

	p.pid = 0
	p.mm = nil
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(p.pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	// Find requires the memory map to be sorted by address
	memory_map.Sort(mm)
	p.mm = mm
	return nil
}

func (p *LinuxProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.isValidAddressInternal(addr)
}

// isValidAddressInternal assumes the mutex is already held.
func (p *LinuxProcess) isValidAddressInternal(addr process.ProcessMemoryAddress) bool {
	// Reject the null page and non-canonical user-space addresses outright.
	if addr <= 0x10000 {
		return false
	}
	if addr > 0x700000000000 {
		return false
	}

	return memory_map.IsValidAddress(uint64(addr), p.mm)
}

func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)
	return result, nil
}

// Suspend stops the target with SIGSTOP so a snapshot pass reads a quiescent
// address space. Implements the optional process.Freezer capability.
func (p *LinuxProcess) Suspend() error {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return process.ErrProcessNotOpen
	}
	if err := unix.Kill(int(pid), unix.SIGSTOP); err != nil {
		return fmt.Errorf("SIGSTOP pid %d: %w", pid, err)
	}
	p.log.Debugln("Process suspended")
	return nil
}

// Resume continues a target stopped by Suspend.
func (p *LinuxProcess) Resume() error {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return process.ErrProcessNotOpen
	}
	if err := unix.Kill(int(pid), unix.SIGCONT); err != nil {
		return fmt.Errorf("SIGCONT pid %d: %w", pid, err)
	}
	p.log.Debugln("Process resumed")
	return nil
}
