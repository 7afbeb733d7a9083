package scan

import (
	"fmt"

	"memsift/process"

	"github.com/bits-and-blooms/bitset"
)

// RegionState is the portable image of a region used by dump persistence.
// Speculative grow accounting is absent on purpose; it only mediates
// expand/shrink round trips within a live session.
//
// A state returned by State shares the region's buffers and bitmaps. Treat
// it as read-only.
type RegionState[L any] struct {
	Base      process.ProcessMemoryAddress
	Size      int
	Extension int
	Type      ElementType
	Current   []byte
	Previous  []byte
	Valid     *bitset.BitSet
	Labels    []L
	Labeled   *bitset.BitSet
}

// State captures the region for persistence.
func (r *Region[L]) State() RegionState[L] {
	return RegionState[L]{
		Base:      r.base,
		Size:      r.size,
		Extension: r.extension,
		Type:      r.elemType,
		Current:   r.current,
		Previous:  r.previous,
		Valid:     r.valid,
		Labels:    r.labels,
		Labeled:   r.labeled,
	}
}

// RestoreRegion rebuilds a region from a stored state. States originate
// from files, so invariant violations come back as errors, not panics.
func RestoreRegion[L any](st RegionState[L]) (*Region[L], error) {
	switch {
	case st.Size < 0:
		return nil, fmt.Errorf("restore region at %s: negative size %d", st.Base.ToString(), st.Size)
	case st.Extension < 0:
		return nil, fmt.Errorf("restore region at %s: negative extension %d", st.Base.ToString(), st.Extension)
	case !st.Type.Defined():
		return nil, fmt.Errorf("restore region at %s: undefined element type", st.Base.ToString())
	case st.Valid == nil:
		return nil, fmt.Errorf("restore region at %s: missing validity bitmap", st.Base.ToString())
	case st.Valid.Len() != uint(st.Size):
		return nil, fmt.Errorf("restore region at %s: validity bitmap covers %d of %d bytes",
			st.Base.ToString(), st.Valid.Len(), st.Size)
	case st.Current != nil && st.Previous != nil && len(st.Current) != len(st.Previous):
		return nil, fmt.Errorf("restore region at %s: history buffers disagree, %d vs %d bytes",
			st.Base.ToString(), len(st.Current), len(st.Previous))
	}
	if st.Labels != nil || st.Labeled != nil {
		switch {
		case st.Labels == nil:
			return nil, fmt.Errorf("restore region at %s: label presence bitmap without label bytes", st.Base.ToString())
		case st.Labeled == nil:
			return nil, fmt.Errorf("restore region at %s: label bytes without presence bitmap", st.Base.ToString())
		case len(st.Labels) != st.Size:
			return nil, fmt.Errorf("restore region at %s: %d labels for %d bytes",
				st.Base.ToString(), len(st.Labels), st.Size)
		case st.Labeled.Len() != uint(st.Size):
			return nil, fmt.Errorf("restore region at %s: label presence bitmap covers %d of %d bytes",
				st.Base.ToString(), st.Labeled.Len(), st.Size)
		}
	}
	return &Region[L]{
		base:      st.Base,
		size:      st.Size,
		extension: st.Extension,
		elemType:  st.Type,
		current:   st.Current,
		previous:  st.Previous,
		valid:     st.Valid,
		labels:    st.Labels,
		labeled:   st.Labeled,
	}, nil
}
