package scan

import (
	"github.com/bits-and-blooms/bitset"
)

// Run is one maximal range of consecutive set bits in a validity bitmap.
type Run struct {
	Start  int
	Length int
}

// ValidRuns extracts the maximal set-bit runs of b in ascending order.
// Runs never overlap, never have zero length, and a run touching the end of
// the bitmap is emitted in full. An empty or all-clear bitmap yields nil.
func ValidRuns(b *bitset.BitSet) []Run {
	var runs []Run
	i, ok := b.NextSet(0)
	for ok {
		end, found := b.NextClear(i + 1)
		if !found {
			runs = append(runs, Run{Start: int(i), Length: int(b.Len() - i)})
			break
		}
		runs = append(runs, Run{Start: int(i), Length: int(end - i)})
		i, ok = b.NextSet(end + 1)
	}
	return runs
}

// cloneBits returns a fresh bitmap of length n carrying b's bits below n.
func cloneBits(b *bitset.BitSet, n uint) *bitset.BitSet {
	c := bitset.New(n)
	for i, ok := b.NextSet(0); ok && i < n; i, ok = b.NextSet(i + 1) {
		c.Set(i)
	}
	return c
}
