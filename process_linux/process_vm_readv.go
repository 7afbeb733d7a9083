//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"memsift/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to read memory from
// another process in one crossing, no ptrace attach required.
func process_vm_readv(
	pid process.ProcessID,
	remoteAddr process.ProcessMemoryAddress,
	bytesToRead process.ProcessMemorySize,
) ([]byte, error) {
	localBuf := make([]byte, bytesToRead)

	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(bytesToRead),
	}
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  int(bytesToRead),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return nil, fmt.Errorf("process_vm_readv failed: %s (errno: %d)", errno.Error(), errno)
	}

	// The syscall stops at the first unmapped page; a short transfer means
	// the requested window is not fully resident, which callers must treat
	// as a failed read, never a truncated one.
	if int(n) != int(bytesToRead) {
		return nil, fmt.Errorf("partial read: %d of %d bytes", n, bytesToRead)
	}

	return localBuf, nil
}

// ReadMemory reads memory from the process at the specified address
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	p.mu.Lock()
	pid := p.pid
	valid := p.isValidAddressInternal(addr)
	p.mu.Unlock()

	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}
	if !valid {
		return nil, process.ErrAddressNotMapped
	}

	// The syscall runs without the lock so concurrent region reads
	// do not serialize on the process state.
	data, err := process_vm_readv(pid, addr, size)
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", size.ToString(), addr.ToString(), err)
	}

	return data, nil
}
