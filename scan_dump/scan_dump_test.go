package scan_dump

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"memsift/process"
	"memsift/scan"

	"github.com/stretchr/testify/require"
)

// tag is a sample POD label carried through dump round trips.
type tag struct {
	Slot uint16
}

// dumpMemory serves reads from one contiguous in-memory range.
type dumpMemory struct {
	base process.ProcessMemoryAddress
	data []byte
}

func (m *dumpMemory) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	off := int(addr - m.base)
	if off < 0 || off+int(size) > len(m.data) {
		return nil, process.ErrAddressNotMapped
	}
	out := make([]byte, size)
	copy(out, m.data[off:])
	return out, nil
}

func seq(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

// buildSnapshot reads two adjacent regions twice, with byte 5 bumped between
// reads, labels two survivors in the first region, and invalidates the rest.
func buildSnapshot(t *testing.T) *scan.Snapshot[tag] {
	t.Helper()
	mem := &dumpMemory{base: 0x1000, data: seq(64)}

	snap, err := scan.NewSnapshot([]*scan.Region[tag]{
		scan.NewRegion[tag](0x1000, 32),
		scan.NewRegion[tag](0x1020, 32),
	}, scan.WithParallelism(2))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, snap.Read(ctx, mem, true))
	mem.data[5] = 0xAA
	require.NoError(t, snap.Read(ctx, mem, true))

	snap.MarkAllValid()
	regions := snap.Regions()
	regions[0].SetLabel(5, tag{Slot: 5})
	regions[0].SetLabel(9, tag{Slot: 9})
	require.NoError(t, snap.Filter(ctx, func(e scan.Element[tag]) bool {
		return e.HasLabel
	}))
	return snap
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	snap := buildSnapshot(t)

	require.NoError(t, Save(ctx, dir, snap, WithTarget(1234, "demo-game")))

	_, err := os.Stat(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, segmentFileName(0x1000)))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, segmentFileName(0x1020)))
	require.NoError(t, err)

	loaded, err := Load[tag](ctx, dir)
	require.NoError(t, err)
	require.Equal(t, snap.RegionCount(), loaded.RegionCount())
	require.Equal(t, snap.ByteSize(), loaded.ByteSize())
	require.Equal(t, snap.ValidCount(), loaded.ValidCount())

	want := snap.Regions()
	got := loaded.Regions()
	for i := range want {
		require.Equal(t, want[i].Base(), got[i].Base())
		require.Equal(t, want[i].Size(), got[i].Size())
		require.Equal(t, want[i].Extension(), got[i].Extension())
		require.Equal(t, want[i].Type(), got[i].Type())
		require.Equal(t, want[i].CanCompare(), got[i].CanCompare())
	}

	// Labels and history survive byte for byte.
	r := got[0]
	label, ok := r.Label(5)
	require.True(t, ok)
	require.Equal(t, tag{Slot: 5}, label)
	_, ok = r.Label(6)
	require.False(t, ok)

	e := r.Element(5)
	require.Equal(t, []byte{0xAA}, e.Current)
	require.Equal(t, []byte{5}, e.Previous)
	require.True(t, e.Valid)

	// The second region was saved without labels and stays that way.
	_, ok = got[1].Label(0)
	require.False(t, ok)
}

func TestLoadRejectsWrongLabelType(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Save(ctx, dir, buildSnapshot(t)))

	type wideTag struct {
		A uint64
	}
	_, err := Load[wideTag](ctx, dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "label")
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Save(ctx, dir, buildSnapshot(t)))

	path := filepath.Join(dir, "manifest.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var manifest Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	manifest.Version = FormatVersion + 1
	data, err = json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Load[tag](ctx, dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "newer")
}

func TestLoadDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Save(ctx, dir, buildSnapshot(t)))

	path := filepath.Join(dir, segmentFileName(0x1000))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Load[tag](ctx, dir)
	require.ErrorIs(t, err, ErrSegmentCorrupt)
}

func TestDumpReader(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, Save(ctx, dir, buildSnapshot(t), WithTarget(1234, "demo-game")))

	d, err := Open(dir, WithCachedSegments(1))
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, process.ProcessID(1234), d.Manifest().PID)
	require.Equal(t, "demo-game", d.Manifest().ProcessName)

	t.Run("reads stored bytes", func(t *testing.T) {
		got, err := d.ReadMemory(0x1005, 4)
		require.NoError(t, err)
		require.Equal(t, []byte{0xAA, 6, 7, 8}, got)

		// Second segment, exercising the single-entry cache both ways.
		got, err = d.ReadMemory(0x1020, 2)
		require.NoError(t, err)
		require.Equal(t, []byte{32, 33}, got)

		got, err = d.ReadMemory(0x1000, 32)
		require.NoError(t, err)
		require.Equal(t, byte(31), got[31])
	})

	t.Run("unmapped addresses", func(t *testing.T) {
		_, err := d.ReadMemory(0x0FFF, 2)
		require.ErrorIs(t, err, process.ErrAddressNotMapped)
		_, err = d.ReadMemory(0x5000, 1)
		require.ErrorIs(t, err, process.ErrAddressNotMapped)
	})

	t.Run("reads never cross segments", func(t *testing.T) {
		_, err := d.ReadMemory(0x101E, 4)
		require.ErrorIs(t, err, process.ErrAddressNotMapped)
	})

	t.Run("zero length", func(t *testing.T) {
		got, err := d.ReadMemory(0x5000, 0)
		require.NoError(t, err)
		require.Empty(t, got)
	})
}

func TestDumpReaderUnreadSegment(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	snap, err := scan.NewSnapshot([]*scan.Region[scan.Unlabeled]{
		scan.NewRegion[scan.Unlabeled](0x2000, 16),
	})
	require.NoError(t, err)
	require.NoError(t, Save(ctx, dir, snap))

	loaded, err := Load[scan.Unlabeled](ctx, dir)
	require.NoError(t, err)
	require.Nil(t, loaded.Regions()[0].Element(0).Current)

	d, err := Open(dir)
	require.NoError(t, err)
	_, err = d.ReadMemory(0x2000, 4)
	require.ErrorIs(t, err, process.ErrAddressNotMapped)
}

// An offline narrowing pass against the dump behaves exactly like one
// against live memory.
func TestOfflineNarrowing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mem := &dumpMemory{base: 0x1000, data: seq(64)}
	snap, err := scan.NewSnapshot([]*scan.Region[scan.Unlabeled]{
		scan.NewRegion[scan.Unlabeled](0x1000, 64),
	})
	require.NoError(t, err)
	require.NoError(t, snap.Read(ctx, mem, true))
	snap.MarkAllValid()
	require.NoError(t, Save(ctx, dir, snap))

	loaded, err := Load[scan.Unlabeled](ctx, dir)
	require.NoError(t, err)
	d, err := Open(dir)
	require.NoError(t, err)

	err = loaded.Pass(ctx, d, func(e scan.Element[scan.Unlabeled]) bool {
		return e.Current != nil && e.Current[0] == 42
	})
	require.NoError(t, err)
	require.Equal(t, uint(1), loaded.ValidCount())
	require.Equal(t, 1, loaded.RegionCount())
	require.Equal(t, process.ProcessMemoryAddress(0x1000+42), loaded.Regions()[0].Base())
}
