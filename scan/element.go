package scan

import (
	"memsift/process"
)

// Element is the computed per-index view of a region: the element's absolute
// address, its interpretation, the raw bytes now and from the kept prior
// read, its validity bit, and its label slot. Elements are views, not
// storage; writing one back through SetElement updates the bits and the
// label, never the buffers.
//
// Current and Previous borrow the region's buffers and must not outlive the
// next Read or split of the region that produced them. Either may be nil
// when the backing buffer is absent or ends before a full element.
type Element[L any] struct {
	Address  process.ProcessMemoryAddress
	Type     ElementType
	Current  []byte
	Previous []byte
	Valid    bool
	Label    L
	HasLabel bool
}

// Comparable reports whether both byte views are present, the precondition
// for predicates that look at the prior read.
func (e Element[L]) Comparable() bool {
	return e.Current != nil && e.Previous != nil
}
