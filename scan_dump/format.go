// Package scan_dump persists snapshots to a directory and serves reads back
// from the stored bytes, so narrowing passes can run offline against a
// frozen image of the target.
//
// A dump is a manifest.json next to one segment file per region. Each
// segment is a zstd frame over a little-endian payload carrying the region
// header, the history buffers, the validity bitmap, and any labels.
// Label bytes use the pod codec, so they only load on the architecture
// that wrote them; the manifest records the label width for the check.
package scan_dump

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"memsift/pod"
	"memsift/process"
	"memsift/scan"

	"github.com/bits-and-blooms/bitset"
	"github.com/klauspost/compress/zstd"
)

// FormatVersion is written to every manifest. Readers refuse newer dumps.
const FormatVersion = 1

const segmentMagic = 0x4D534547 // "MSEG"

const (
	flagCurrent  = 1 << 0
	flagPrevious = 1 << 1
	flagLabels   = 1 << 2
)

// ErrSegmentCorrupt reports a segment whose payload cannot be decoded.
var ErrSegmentCorrupt = errors.New("segment corrupt")

// encoder and decoder for zstd are reusable and thread-safe
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Manifest describes a dump directory.
type Manifest struct {
	Version     int               `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	PID         process.ProcessID `json:"pid,omitempty"`
	ProcessName string            `json:"process_name,omitempty"`
	ElementType string            `json:"element_type,omitempty"`
	LabelWidth  int               `json:"label_width"`
	Segments    []SegmentInfo     `json:"segments"`
}

// SegmentInfo names one region's segment file. Checksum is the xxhash64 of
// the file bytes as written, compression included.
type SegmentInfo struct {
	File     string                       `json:"file"`
	Base     process.ProcessMemoryAddress `json:"base"`
	Size     int                          `json:"size"`
	Checksum uint64                       `json:"checksum"`
}

func segmentFileName(base process.ProcessMemoryAddress) string {
	return fmt.Sprintf("region_0x%x.seg", uint64(base))
}

// segment holds one region's sections in wire form, between the byte layer
// and scan.RegionState.
type segment struct {
	base      process.ProcessMemoryAddress
	size      int
	extension int
	elemKind  uint8
	elemWidth int
	current   []byte
	previous  []byte
	valid     []byte
	labels    []byte
	labeled   []byte
}

func stateSegment[L any](st scan.RegionState[L]) (*segment, error) {
	seg := &segment{
		base:      st.Base,
		size:      st.Size,
		extension: st.Extension,
		elemKind:  uint8(st.Type.Kind),
		elemWidth: st.Type.Width(),
		current:   st.Current,
		previous:  st.Previous,
	}
	var err error
	if seg.valid, err = st.Valid.MarshalBinary(); err != nil {
		return nil, fmt.Errorf("marshal validity bitmap: %w", err)
	}
	if st.Labels != nil {
		if seg.labels, err = pod.MarshalSlice(st.Labels); err != nil {
			return nil, fmt.Errorf("marshal labels: %w", err)
		}
		if seg.labeled, err = st.Labeled.MarshalBinary(); err != nil {
			return nil, fmt.Errorf("marshal label presence bitmap: %w", err)
		}
	}
	return seg, nil
}

// segmentState turns wire sections back into a region state. The label
// section length is checked against pod.SizeOf[L] before any labels are
// materialized, so a dump written with a different label type fails here
// rather than producing garbage labels.
func segmentState[L any](seg *segment) (scan.RegionState[L], error) {
	st := scan.RegionState[L]{
		Base:      seg.base,
		Size:      seg.size,
		Extension: seg.extension,
		Current:   seg.current,
		Previous:  seg.previous,
	}

	var err error
	if st.Type, err = elementTypeOf(seg.elemKind, seg.elemWidth); err != nil {
		return st, err
	}

	st.Valid = bitset.New(0)
	if err := st.Valid.UnmarshalBinary(seg.valid); err != nil {
		return st, fmt.Errorf("unmarshal validity bitmap: %w", err)
	}

	if seg.labels != nil {
		width := pod.SizeOf[L]()
		if len(seg.labels) != seg.size*width {
			return st, fmt.Errorf("label section is %d bytes, want %d for %d labels of width %d",
				len(seg.labels), seg.size*width, seg.size, width)
		}
		if st.Labels, err = pod.UnmarshalSlice[L](seg.labels, seg.size); err != nil {
			return st, fmt.Errorf("unmarshal labels: %w", err)
		}
		st.Labeled = bitset.New(0)
		if err := st.Labeled.UnmarshalBinary(seg.labeled); err != nil {
			return st, fmt.Errorf("unmarshal label presence bitmap: %w", err)
		}
	}

	return st, nil
}

func elementTypeOf(kind uint8, width int) (scan.ElementType, error) {
	k := scan.ElementKind(kind)
	if k == scan.KindBytes {
		if width <= 0 {
			return scan.ElementType{}, fmt.Errorf("blob element with width %d", width)
		}
		return scan.BlobType(width), nil
	}
	if k > scan.KindFloat64 {
		return scan.ElementType{}, fmt.Errorf("unknown element kind %d", kind)
	}
	t := scan.TypeOf(k)
	if t.Width() != width {
		return scan.ElementType{}, fmt.Errorf("element type %s is %d bytes wide, segment says %d", t, t.Width(), width)
	}
	return t, nil
}

// encodeSegment lays the sections out little-endian and compresses the
// result into a single zstd frame.
func encodeSegment(seg *segment) []byte {
	le := binary.LittleEndian
	payload := le.AppendUint32(nil, segmentMagic)
	payload = le.AppendUint64(payload, uint64(seg.base))
	payload = le.AppendUint64(payload, uint64(seg.size))
	payload = le.AppendUint64(payload, uint64(seg.extension))
	payload = append(payload, seg.elemKind)
	payload = le.AppendUint32(payload, uint32(seg.elemWidth))

	var flags byte
	if seg.current != nil {
		flags |= flagCurrent
	}
	if seg.previous != nil {
		flags |= flagPrevious
	}
	if seg.labels != nil {
		flags |= flagLabels
	}
	payload = append(payload, flags)

	section := func(b []byte) {
		payload = le.AppendUint64(payload, uint64(len(b)))
		payload = append(payload, b...)
	}
	if seg.current != nil {
		section(seg.current)
	}
	if seg.previous != nil {
		section(seg.previous)
	}
	section(seg.valid)
	if seg.labels != nil {
		section(seg.labels)
		section(seg.labeled)
	}

	return zstdEncoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
}

// decodeSegment decompresses a segment file and splits it back into
// sections. Section lengths are validated against the payload before any
// slicing, so a truncated or corrupt file comes back as ErrSegmentCorrupt.
func decodeSegment(raw []byte) (*segment, error) {
	payload, err := zstdDecoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentCorrupt, err)
	}

	d := segDecoder{data: payload}
	if magic := d.uint32(); magic != segmentMagic && d.err == nil {
		return nil, fmt.Errorf("%w: bad magic 0x%x", ErrSegmentCorrupt, magic)
	}

	seg := &segment{
		base:      process.ProcessMemoryAddress(d.uint64()),
		size:      int(d.uint64()),
		extension: int(d.uint64()),
		elemKind:  d.byte(),
		elemWidth: int(d.uint32()),
	}
	flags := d.byte()
	if flags&flagCurrent != 0 {
		seg.current = d.section()
	}
	if flags&flagPrevious != 0 {
		seg.previous = d.section()
	}
	seg.valid = d.section()
	if flags&flagLabels != 0 {
		seg.labels = d.section()
		seg.labeled = d.section()
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.off != len(d.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSegmentCorrupt, len(d.data)-d.off)
	}
	if seg.size < 0 || seg.extension < 0 {
		return nil, fmt.Errorf("%w: negative size", ErrSegmentCorrupt)
	}
	return seg, nil
}

// segDecoder walks a payload with a sticky error, so decodeSegment reads
// straight through without a check per field.
type segDecoder struct {
	data []byte
	off  int
	err  error
}

func (d *segDecoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || n > len(d.data)-d.off {
		d.err = fmt.Errorf("%w: truncated payload", ErrSegmentCorrupt)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *segDecoder) byte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *segDecoder) uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *segDecoder) uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// section reads a length-prefixed byte section. Sections are returned
// non-nil even when empty, since presence is flagged separately.
func (d *segDecoder) section() []byte {
	n := d.uint64()
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.data)-d.off) {
		d.err = fmt.Errorf("%w: section of %d bytes exceeds payload", ErrSegmentCorrupt, n)
		return nil
	}
	b := d.take(int(n))
	if b == nil {
		return []byte{}
	}
	return b
}
