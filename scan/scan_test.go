package scan

import (
	"encoding/binary"

	"memsift/process"
)

// fakeMemory serves reads from one contiguous in-memory range, with optional
// per-address failures injected by tests.
type fakeMemory struct {
	base process.ProcessMemoryAddress
	data []byte
	errs map[process.ProcessMemoryAddress]error
	trim int
}

func newFakeMemory(base process.ProcessMemoryAddress, data []byte) *fakeMemory {
	return &fakeMemory{base: base, data: data}
}

func (m *fakeMemory) failAt(addr process.ProcessMemoryAddress, err error) {
	if m.errs == nil {
		m.errs = make(map[process.ProcessMemoryAddress]error)
	}
	m.errs[addr] = err
}

func (m *fakeMemory) poke(addr process.ProcessMemoryAddress, b []byte) {
	copy(m.data[int(addr-m.base):], b)
}

func (m *fakeMemory) put32(addr process.ProcessMemoryAddress, v uint32) {
	binary.LittleEndian.PutUint32(m.data[int(addr-m.base):], v)
}

func (m *fakeMemory) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if err, ok := m.errs[addr]; ok {
		return nil, err
	}
	off := int(addr - m.base)
	if off < 0 || off+int(size) > len(m.data) {
		return nil, process.ErrAddressNotMapped
	}
	out := make([]byte, int(size)-m.trim)
	copy(out, m.data[off:off+len(out)])
	return out, nil
}

// seq returns n bytes counting up from 0.
func seq(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}
