package scan

import (
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"
)

func bitsOf(n uint, set ...uint) *bitset.BitSet {
	b := bitset.New(n)
	for _, i := range set {
		b.Set(i)
	}
	return b
}

func TestValidRuns(t *testing.T) {
	for _, tc := range []struct {
		name string
		bits *bitset.BitSet
		want []Run
	}{
		{
			name: "empty bitmap",
			bits: bitset.New(0),
			want: nil,
		},
		{
			name: "all clear",
			bits: bitset.New(9),
			want: nil,
		},
		{
			name: "all set",
			bits: bitsOf(5, 0, 1, 2, 3, 4),
			want: []Run{{Start: 0, Length: 5}},
		},
		{
			name: "single bit at start",
			bits: bitsOf(8, 0),
			want: []Run{{Start: 0, Length: 1}},
		},
		{
			name: "single bit at end",
			bits: bitsOf(8, 7),
			want: []Run{{Start: 7, Length: 1}},
		},
		{
			name: "mixed runs",
			bits: bitsOf(9, 0, 1, 3, 4, 5, 8),
			want: []Run{{Start: 0, Length: 2}, {Start: 3, Length: 3}, {Start: 8, Length: 1}},
		},
		{
			name: "alternating",
			bits: bitsOf(6, 0, 2, 4),
			want: []Run{{Start: 0, Length: 1}, {Start: 2, Length: 1}, {Start: 4, Length: 1}},
		},
		{
			name: "run crossing word boundary",
			bits: bitsOf(128, 62, 63, 64, 65, 66),
			want: []Run{{Start: 62, Length: 5}},
		},
		{
			name: "run to the last bit",
			bits: bitsOf(70, 60, 61, 62, 63, 64, 65, 66, 67, 68, 69),
			want: []Run{{Start: 60, Length: 10}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ValidRuns(tc.bits))
		})
	}
}

func TestValidRunsCoverTrueBits(t *testing.T) {
	b := bitsOf(200, 0, 1, 2, 17, 63, 64, 65, 120, 121, 199)
	runs := ValidRuns(b)

	covered := bitset.New(200)
	prevEnd := -1
	for _, run := range runs {
		require.Positive(t, run.Length)
		require.Greater(t, run.Start, prevEnd, "runs must be ascending and non-overlapping")
		prevEnd = run.Start + run.Length - 1
		for i := run.Start; i < run.Start+run.Length; i++ {
			covered.Set(uint(i))
		}
	}
	require.True(t, covered.Equal(b), "union of runs must equal the set bits")
}
