//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"memsift/process"
	"memsift/process/memory_map"

	"golang.org/x/sys/unix"
)

// process_vm_writev uses the process_vm_writev syscall to write memory to another process
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(len(localBuf)),
	}
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, fmt.Errorf("process_vm_writev failed: %s (errno: %d)", errno.Error(), errno)
	}

	return int(n), nil
}

// WriteMemory writes data to the process memory at the specified address.
// The target region must be mapped writable.
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	p.mu.Lock()
	pid := p.pid
	valid := p.isValidAddressInternal(addr)
	var writable bool
	if item := memory_map.Find(uint64(addr), p.mm); item != nil {
		writable = item.IsWritable()
	}
	p.mu.Unlock()

	if pid == 0 {
		return process.ErrProcessNotOpen
	}
	if !valid {
		return process.ErrAddressNotMapped
	}
	if !writable {
		return fmt.Errorf("memory region at %s is not writable", addr.ToString())
	}

	// Copy so the caller's slice cannot change mid-syscall.
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	written, err := process_vm_writev(pid, dataCopy, addr)
	if err != nil {
		return fmt.Errorf("write %d bytes at %s: %w", len(data), addr.ToString(), err)
	}
	if written != len(data) {
		return fmt.Errorf("partial write: %d of %d bytes", written, len(data))
	}

	return nil
}
