package memory_map

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleMaps = `00400000-0040b000 r-xp 00000000 08:02 131073                             /usr/bin/cat
0060a000-0060b000 r--p 0000a000 08:02 131073                             /usr/bin/cat
0060b000-0060c000 rw-p 0000b000 08:02 131073                             /usr/bin/cat
01f0c000-01f2d000 rw-p 00000000 00:00 0                                  [heap]
7f3a40000000-7f3a40021000 rw-p 00000000 00:00 0
7f3a44f9b000-7f3a44f9f000 ---p 00000000 00:00 0
7ffd1a8c0000-7ffd1a8e1000 rw-p 00000000 00:00 0                          [stack]
7ffd1a9f3000-7ffd1a9f5000 r-xp 00000000 00:00 0                          [vdso]
ffffffffff600000-ffffffffff601000 --xp 00000000 00:00 0                  [vsyscall]
`

func TestParse(t *testing.T) {
	items, err := Parse(strings.NewReader(sampleMaps))
	require.NoError(t, err)
	require.Len(t, items, 9)

	first := items[0]
	require.Equal(t, uint64(0x400000), first.Address)
	require.Equal(t, uint(0xb000), first.Size)
	require.Equal(t, "r-xp", first.Perms)
	require.Equal(t, "/usr/bin/cat", first.Path)
	require.Equal(t, uint64(0x40b000), first.End())
	require.True(t, first.IsReadable())
	require.False(t, first.IsWritable())
	require.True(t, first.IsExecutable())
	require.False(t, first.IsAnonymous())

	heap := items[3]
	require.Equal(t, "[heap]", heap.Path)
	require.True(t, heap.IsAnonymous())
	require.True(t, heap.IsWritable())

	anon := items[4]
	require.Empty(t, anon.Path)
	require.True(t, anon.IsAnonymous())

	noaccess := items[5]
	require.False(t, noaccess.IsReadable())
	require.False(t, noaccess.IsWritable())
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := `not a maps line
00400000-0040b000 r-xp 00000000 08:02 1 /bin/true
zzzz-0040b000 r--p 00000000 08:02 1
00400000zzzz r--p 00000000 08:02 1
0040c000-0040b000 r--p 00000000 08:02 1

0060a000-0060b000 rw-p 00000000 00:00 0
`
	items, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, uint64(0x400000), items[0].Address)
	require.Equal(t, uint64(0x60a000), items[1].Address)
}

func TestParseEmpty(t *testing.T) {
	items, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestParsePathWithSpaces(t *testing.T) {
	input := "00400000-00401000 r--p 00000000 08:02 1                          /opt/my app/data.bin\n"
	items, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "/opt/my app/data.bin", items[0].Path)
}

func TestFind(t *testing.T) {
	items := []MemoryMapItem{
		{Address: 0x5000, Size: 0x1000, Perms: "r--p"},
		{Address: 0x1000, Size: 0x1000, Perms: "rw-p"},
		{Address: 0x3000, Size: 0x1000, Perms: "---p"},
	}
	Sort(items)
	require.Equal(t, uint64(0x1000), items[0].Address)

	for _, tc := range []struct {
		name string
		addr uint64
		want uint64 // base of the containing item, 0 for miss
	}{
		{name: "first byte of first region", addr: 0x1000, want: 0x1000},
		{name: "inside first region", addr: 0x1abc, want: 0x1000},
		{name: "last byte of first region", addr: 0x1fff, want: 0x1000},
		{name: "gap between regions", addr: 0x2000, want: 0},
		{name: "inside middle region", addr: 0x3800, want: 0x3000},
		{name: "inside last region", addr: 0x5fff, want: 0x5000},
		{name: "past the end", addr: 0x6000, want: 0},
		{name: "before the start", addr: 0xfff, want: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Find(tc.addr, items)
			if tc.want == 0 {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tc.want, got.Address)
		})
	}
}

func TestIsValidAddress(t *testing.T) {
	items := []MemoryMapItem{
		{Address: 0x1000, Size: 0x1000, Perms: "rw-p"},
		{Address: 0x3000, Size: 0x1000, Perms: "---p"},
	}
	Sort(items)

	require.True(t, IsValidAddress(0x1800, items))
	require.False(t, IsValidAddress(0x3800, items), "unreadable region is not valid")
	require.False(t, IsValidAddress(0x2800, items), "gap is not valid")
	require.False(t, IsValidAddress(0x1800, nil))
}
