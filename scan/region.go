package scan

import (
	"fmt"
	"iter"

	"memsift/process"

	"github.com/bits-and-blooms/bitset"
)

// Region is an owned, contiguous byte range [base, base+size) of a target
// address space. It carries a current and a previous buffer (single-step
// history), a per-element validity bitmap, and an optional label slot per
// element. One element starts at every byte offset below size.
//
// A Region is not safe for concurrent mutation; the snapshot pass runner
// hands each region to exactly one worker at a time.
type Region[L any] struct {
	base      process.ProcessMemoryAddress
	size      int
	extension int
	grown     int
	elemType  ElementType
	current   []byte
	previous  []byte
	valid     *bitset.BitSet
	labels    []L
	labeled   *bitset.BitSet
}

// Unlabeled instantiates Region for callers that track no per-element label.
type Unlabeled struct{}

// NewRegion constructs a region over [base, base+size) with every element
// invalid, no buffers, and the default element type.
func NewRegion[L any](base process.ProcessMemoryAddress, size int) *Region[L] {
	if size < 0 {
		panic(fmt.Sprintf("scan: negative region size %d", size))
	}
	return &Region[L]{
		base:     base,
		size:     size,
		elemType: DefaultElementType,
		valid:    bitset.New(uint(size)),
	}
}

// Base returns the address of the region's first byte.
func (r *Region[L]) Base() process.ProcessMemoryAddress {
	return r.base
}

// Size returns the logical byte count.
func (r *Region[L]) Size() int {
	return r.size
}

// Extension returns the trailing bytes past size that the next read fetches
// so the last element can be decoded at full width.
func (r *Region[L]) Extension() int {
	return r.extension
}

// End returns the first address past the logical range.
func (r *Region[L]) End() process.ProcessMemoryAddress {
	return r.base + process.ProcessMemoryAddress(r.size)
}

// Type returns the element interpretation applied to this region.
func (r *Region[L]) Type() ElementType {
	return r.elemType
}

// SetType changes how the region's bytes are interpreted. The type must be
// defined.
func (r *Region[L]) SetType(t ElementType) {
	t.mustWidth()
	r.elemType = t
}

// Read fetches size+extension bytes at base from mem. With keep, the prior
// current buffer becomes previous and the new bytes become current; without
// keep the bytes are returned and no region state changes. Any transport
// error or short read leaves current, previous, and the bitmap exactly as
// they were and returns a *ReadError.
func (r *Region[L]) Read(mem MemoryReader, keep bool) ([]byte, error) {
	want := process.ProcessMemorySize(r.size + r.extension)
	if want == 0 {
		if keep {
			r.previous = r.current
			r.current = []byte{}
		}
		return []byte{}, nil
	}
	data, err := mem.ReadMemory(r.base, want)
	if err != nil {
		return nil, &ReadError{Base: r.base, Length: want, Err: err}
	}
	if len(data) != int(want) {
		return nil, &ReadError{
			Base:   r.base,
			Length: want,
			Err:    fmt.Errorf("%w: %d of %d bytes", ErrShortRead, len(data), want),
		}
	}
	if keep {
		r.previous = r.current
		r.current = data
	}
	return data, nil
}

// CanCompare reports whether both history buffers are present with equal
// length, the precondition for previous-vs-current predicates.
func (r *Region[L]) CanCompare() bool {
	return r.current != nil && r.previous != nil && len(r.current) == len(r.previous)
}

// MarkAllValid sets every element valid.
func (r *Region[L]) MarkAllValid() {
	r.valid.SetAll()
}

// MarkAllInvalid clears every element.
func (r *Region[L]) MarkAllInvalid() {
	r.valid.ClearAll()
}

// Valid reports element i's validity bit.
func (r *Region[L]) Valid(i int) bool {
	r.checkIndex(i)
	return r.valid.Test(uint(i))
}

// SetValid sets or clears element i's validity bit. Buffer bytes are never
// touched on the element write path.
func (r *Region[L]) SetValid(i int, v bool) {
	r.checkIndex(i)
	r.valid.SetTo(uint(i), v)
}

// ValidCount returns the number of valid elements.
func (r *Region[L]) ValidCount() uint {
	return r.valid.Count()
}

// Label returns element i's label and whether one is set.
func (r *Region[L]) Label(i int) (L, bool) {
	r.checkIndex(i)
	if r.labels == nil || !r.labeled.Test(uint(i)) {
		var zero L
		return zero, false
	}
	return r.labels[i], true
}

// SetLabel stores a label for element i. Label storage is allocated on the
// first call so unlabeled regions stay cheap.
func (r *Region[L]) SetLabel(i int, label L) {
	r.checkIndex(i)
	if r.labels == nil {
		r.labels = make([]L, r.size)
		r.labeled = bitset.New(uint(r.size))
	}
	r.labels[i] = label
	r.labeled.Set(uint(i))
}

// ClearLabel removes element i's label if one is set.
func (r *Region[L]) ClearLabel(i int) {
	r.checkIndex(i)
	if r.labels == nil {
		return
	}
	var zero L
	r.labels[i] = zero
	r.labeled.Clear(uint(i))
}

// Element returns the computed view at index i. Current and Previous are nil
// when the corresponding buffer is absent or too short to cover a full
// element at that offset; both borrow the region's storage and must not
// outlive the next Read or split.
func (r *Region[L]) Element(i int) Element[L] {
	r.checkIndex(i)
	w := r.elemType.mustWidth()
	e := Element[L]{
		Address: r.base + process.ProcessMemoryAddress(i),
		Type:    r.elemType,
		Valid:   r.valid.Test(uint(i)),
	}
	if i+w <= len(r.current) {
		e.Current = r.current[i : i+w]
	}
	if i+w <= len(r.previous) {
		e.Previous = r.previous[i : i+w]
	}
	if r.labels != nil && r.labeled.Test(uint(i)) {
		e.Label = r.labels[i]
		e.HasLabel = true
	}
	return e
}

// SetElement applies a view's type, validity bit, and label slot to index i.
// Buffer bytes are never written through views.
func (r *Region[L]) SetElement(i int, e Element[L]) {
	r.checkIndex(i)
	e.Type.mustWidth()
	r.elemType = e.Type
	r.valid.SetTo(uint(i), e.Valid)
	if e.HasLabel {
		r.SetLabel(i, e.Label)
	} else {
		r.ClearLabel(i)
	}
}

// Elements yields the view of every valid element in ascending address
// order. The sequence is restartable; each range re-walks the bitmap.
func (r *Region[L]) Elements() iter.Seq[Element[L]] {
	return func(yield func(Element[L]) bool) {
		for i, ok := r.valid.NextSet(0); ok; i, ok = r.valid.NextSet(i + 1) {
			if !yield(r.Element(int(i))) {
				return
			}
		}
	}
}

// Expand grows size by width-1 so the last logical element can be read at
// full width. Extension bytes are reclaimed first; the remainder is recorded
// as speculative growth that a later Shrink discards instead of banking.
// New validity bits start clear.
func (r *Region[L]) Expand() {
	grow := r.elemType.mustWidth() - 1
	if grow == 0 {
		return
	}
	fromExt := min(grow, r.extension)
	r.extension -= fromExt
	r.grown += grow - fromExt
	r.resize(r.size + grow)
}

// Shrink trims up to width-1 bytes off the logical end. Bytes a prior Expand
// added are discarded first; the rest move into extension and stay available
// to the next read. If size is smaller than the trim amount it collapses to
// 0, never negative.
func (r *Region[L]) Shrink() {
	trim := min(r.elemType.mustWidth()-1, r.size)
	if trim == 0 {
		return
	}
	discard := min(trim, r.grown)
	r.grown -= discard
	r.extension += trim - discard
	r.resize(r.size - trim)
}

// resize re-lengths the bitmap and label storage to n bytes.
func (r *Region[L]) resize(n int) {
	r.valid = cloneBits(r.valid, uint(n))
	if r.labels != nil {
		if n <= len(r.labels) {
			r.labels = r.labels[:n:n]
		} else {
			next := make([]L, n)
			copy(next, r.labels)
			r.labels = next
		}
		r.labeled = cloneBits(r.labeled, uint(n))
	}
	r.size = n
}

// SubRegions splits the region into one fresh child per maximal valid run.
// Children copy their window of the buffers and labels, carry fully set
// bitmaps, and bank min(width-1, parent bytes past the run) as extension so
// their last element still reads whole. The parent is logically retired and
// should be discarded by its owner.
func (r *Region[L]) SubRegions() []*Region[L] {
	w := r.elemType.mustWidth()
	runs := ValidRuns(r.valid)
	children := make([]*Region[L], 0, len(runs))
	for _, run := range runs {
		children = append(children, r.child(run, w))
	}
	return children
}

func (r *Region[L]) child(run Run, w int) *Region[L] {
	end := run.Start + run.Length
	c := &Region[L]{
		base:      r.base + process.ProcessMemoryAddress(run.Start),
		size:      run.Length,
		extension: min(w-1, r.size+r.extension-end),
		elemType:  r.elemType,
		valid:     bitset.New(uint(run.Length)),
	}
	c.valid.SetAll()
	c.current = sliceWindow(r.current, run.Start, run.Length+w-1)
	c.previous = sliceWindow(r.previous, run.Start, run.Length+w-1)
	if r.labels != nil {
		c.labels = make([]L, run.Length)
		copy(c.labels, r.labels[run.Start:end])
		c.labeled = bitset.New(uint(run.Length))
		for i, ok := r.labeled.NextSet(uint(run.Start)); ok && i < uint(end); i, ok = r.labeled.NextSet(i + 1) {
			c.labeled.Set(i - uint(run.Start))
		}
	}
	return c
}

// sliceWindow copies buf[start : start+n] truncated to the buffer bound.
// A missing or too-short buffer yields nil.
func sliceWindow(buf []byte, start, n int) []byte {
	if buf == nil || start >= len(buf) {
		return nil
	}
	end := min(start+n, len(buf))
	out := make([]byte, end-start)
	copy(out, buf[start:end])
	return out
}

func (r *Region[L]) checkIndex(i int) {
	if i < 0 || i >= r.size {
		panic(fmt.Sprintf("scan: element index %d out of range [0,%d)", i, r.size))
	}
}
