package main

import (
	"context"
	"encoding/binary"
	"fmt"

	"memsift/process"
	"memsift/scan"
)

// gameMemory stands in for a live target: one mapped range served through
// the same MemoryReader capability a real process satisfies.
type gameMemory struct {
	base process.ProcessMemoryAddress
	data []byte
}

func (m *gameMemory) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	off := int(addr - m.base)
	if off < 0 || off+int(size) > len(m.data) {
		return nil, process.ErrAddressNotMapped
	}
	out := make([]byte, size)
	copy(out, m.data[off:])
	return out, nil
}

func (m *gameMemory) put32(addr process.ProcessMemoryAddress, v uint32) {
	binary.LittleEndian.PutUint32(m.data[int(addr-m.base):], v)
}

// unitTag marks which game unit a surviving address belongs to. Labels ride
// along through filter and split passes.
type unitTag struct {
	UnitID uint32
}

func main() {
	// This example narrows a fake address space down to three planted
	// "health" values and shows labels surviving the narrowing.

	// 1. Build the target: 4 KiB of noise with 100 planted three times.
	mem := &gameMemory{base: 0x10000, data: make([]byte, 4096)}
	for i := range mem.data {
		mem.data[i] = byte(i * 7)
	}
	units := []process.ProcessMemoryAddress{0x10040, 0x10080, 0x10FF0}
	for _, addr := range units {
		mem.put32(addr, 100)
	}

	// 2. Snapshot the mapped range and interpret it as uint32 elements.
	snap, err := scan.NewSnapshot([]*scan.Region[unitTag]{
		scan.NewRegion[unitTag](0x10000, 4096),
	}, scan.WithParallelism(2))
	if err != nil {
		fmt.Printf("Failed to build snapshot: %v\n", err)
		return
	}
	snap.SetType(scan.TypeOf(scan.KindUint32))

	ctx := context.Background()
	if err := snap.Read(ctx, mem, true); err != nil {
		fmt.Printf("Failed to read target: %v\n", err)
		return
	}
	snap.MarkAllValid()
	fmt.Printf("Tracking %d candidate offsets\n", snap.ValidCount())

	// 3. First pass: keep every element currently equal to 100. The pass
	// re-reads, filters, and splits the survivors into their own regions.
	eq100 := func(e scan.Element[unitTag]) bool {
		v, ok := e.Type.Uint(e.Current)
		return ok && v == 100
	}
	if err := snap.Pass(ctx, mem, eq100); err != nil {
		fmt.Printf("Pass failed: %v\n", err)
		return
	}
	fmt.Printf("eq=100 kept %d candidates in %d regions\n", snap.ValidCount(), snap.RegionCount())

	// 4. Label each survivor with the unit it might belong to.
	var id uint32
	for _, r := range snap.Regions() {
		for e := range r.Elements() {
			id++
			r.SetLabel(int(e.Address-r.Base()), unitTag{UnitID: id})
		}
	}

	// 5. The game ticks: two units take damage, one is untouched.
	mem.put32(0x10040, 87)
	mem.put32(0x10FF0, 64)

	// 6. Second pass: keep only values that decreased since the last read.
	dec := func(e scan.Element[unitTag]) bool {
		return e.Comparable() && e.Type.Compare(e.Current, e.Previous) < 0
	}
	if err := snap.Pass(ctx, mem, dec); err != nil {
		fmt.Printf("Pass failed: %v\n", err)
		return
	}

	// 7. The labels assigned before the split still name the survivors.
	fmt.Printf("dec kept %d candidates:\n", snap.ValidCount())
	for e := range snap.Elements() {
		v, _ := e.Type.Uint(e.Current)
		fmt.Printf("  unit %d at %s = %d\n", e.Label.UnitID, e.Address.ToString(), v)
	}
}
