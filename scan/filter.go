package scan

// Predicate decides whether an element stays valid during a filter pass.
// Predicates must be pure functions of the element view; they run from
// multiple workers at once, one region per worker.
type Predicate[L any] func(Element[L]) bool

// Filter applies pred to every currently valid element and clears the bit
// for each rejection. Invalid elements are never re-tested and can only be
// revived by MarkAllValid. Returns the number of elements still valid.
func (r *Region[L]) Filter(pred Predicate[L]) uint {
	for i, ok := r.valid.NextSet(0); ok; i, ok = r.valid.NextSet(i + 1) {
		if !pred(r.Element(int(i))) {
			r.valid.Clear(i)
		}
	}
	return r.valid.Count()
}
