package scan_dump

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"memsift/pod"
	"memsift/process"
	"memsift/scan"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultCachedSegments bounds how many decompressed segments a DumpReader
// holds at once.
const DefaultCachedSegments = 16

func readManifest(dir string) (Manifest, error) {
	var manifest Manifest
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		return manifest, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if manifest.Version > FormatVersion {
		return manifest, fmt.Errorf("dump format version %d is newer than supported version %d",
			manifest.Version, FormatVersion)
	}
	return manifest, nil
}

// readSegment fetches one segment file and decodes it, verifying the
// manifest checksum against the file bytes first.
func readSegment(dir string, info SegmentInfo) (*segment, error) {
	data, err := os.ReadFile(filepath.Join(dir, info.File))
	if err != nil {
		return nil, fmt.Errorf("failed to read segment: %w", err)
	}
	if sum := xxhash.Sum64(data); sum != info.Checksum {
		return nil, fmt.Errorf("%w: checksum 0x%x, manifest says 0x%x", ErrSegmentCorrupt, sum, info.Checksum)
	}
	seg, err := decodeSegment(data)
	if err != nil {
		return nil, err
	}
	if seg.base != info.Base {
		return nil, fmt.Errorf("%w: segment base %s, manifest says %s",
			ErrSegmentCorrupt, seg.base.ToString(), info.Base.ToString())
	}
	return seg, nil
}

// Load rebuilds a snapshot from a dump directory. The dump's label width
// must match pod.SizeOf[L]; a dump saved with a different label type cannot
// be reinterpreted. Options configure the returned snapshot.
func Load[L any](ctx context.Context, dir string, opts ...scan.Option) (*scan.Snapshot[L], error) {
	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	if width := pod.SizeOf[L](); manifest.LabelWidth != width {
		return nil, fmt.Errorf("dump labels are %d bytes wide, label type holds %d", manifest.LabelWidth, width)
	}

	regions := make([]*scan.Region[L], len(manifest.Segments))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, info := range manifest.Segments {
		g.Go(func() error {
			seg, err := readSegment(dir, info)
			if err != nil {
				return fmt.Errorf("segment %s: %w", info.File, err)
			}
			st, err := segmentState[L](seg)
			if err != nil {
				return fmt.Errorf("segment %s: %w", info.File, err)
			}
			if regions[i], err = scan.RestoreRegion(st); err != nil {
				return fmt.Errorf("segment %s: %w", info.File, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return scan.NewSnapshot(regions, opts...)
}

type openOptions struct {
	cachedSegments int
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithCachedSegments sets how many decompressed segments the reader keeps.
func WithCachedSegments(n int) OpenOption {
	return func(o *openOptions) {
		o.cachedSegments = n
	}
}

// DumpReader serves ReadMemory from a dump's stored current bytes, decoding
// segments on demand and keeping the most recently used ones decompressed.
// It satisfies scan.MemoryReader, so passes run against it exactly as they
// do against a live process. Safe for concurrent readers.
type DumpReader struct {
	dir      string
	manifest Manifest
	segments []SegmentInfo // sorted by base
	cache    *lru.Cache[process.ProcessMemoryAddress, []byte]
}

// Open prepares a dump directory for reading without loading any segments.
func Open(dir string, opts ...OpenOption) (*DumpReader, error) {
	o := openOptions{cachedSegments: DefaultCachedSegments}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cachedSegments <= 0 {
		o.cachedSegments = DefaultCachedSegments
	}

	manifest, err := readManifest(dir)
	if err != nil {
		return nil, err
	}

	segments := make([]SegmentInfo, len(manifest.Segments))
	copy(segments, manifest.Segments)
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Base < segments[j].Base
	})

	cache, err := lru.New[process.ProcessMemoryAddress, []byte](o.cachedSegments)
	if err != nil {
		return nil, fmt.Errorf("failed to build segment cache: %w", err)
	}

	return &DumpReader{
		dir:      dir,
		manifest: manifest,
		segments: segments,
		cache:    cache,
	}, nil
}

// Manifest returns the dump's manifest.
func (d *DumpReader) Manifest() Manifest {
	return d.manifest
}

// Close drops any cached segment bytes.
func (d *DumpReader) Close() error {
	d.cache.Purge()
	return nil
}

// ReadMemory serves size bytes at addr from the stored bytes of the segment
// whose span contains addr. Reads may run into the segment's trailing slack
// but never across segments; anything else is process.ErrAddressNotMapped.
func (d *DumpReader) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	i := sort.Search(len(d.segments), func(i int) bool {
		return d.segments[i].Base+process.ProcessMemoryAddress(d.segments[i].Size) > addr
	})
	if i >= len(d.segments) || addr < d.segments[i].Base {
		return nil, fmt.Errorf("read %d bytes at %s: %w", size, addr.ToString(), process.ErrAddressNotMapped)
	}
	info := d.segments[i]

	current, err := d.segmentBytes(info)
	if err != nil {
		return nil, err
	}

	offset := uint64(addr - info.Base)
	if offset+uint64(size) > uint64(len(current)) {
		return nil, fmt.Errorf("read %d bytes at %s exceeds stored segment at %s: %w",
			size, addr.ToString(), info.Base.ToString(), process.ErrAddressNotMapped)
	}

	result := make([]byte, size)
	copy(result, current[offset:])
	return result, nil
}

// segmentBytes returns the stored current buffer for a segment, from cache
// when hot. Concurrent misses on one segment decode it more than once; the
// copies are identical and the extras age out.
func (d *DumpReader) segmentBytes(info SegmentInfo) ([]byte, error) {
	if current, ok := d.cache.Get(info.Base); ok {
		return current, nil
	}
	seg, err := readSegment(d.dir, info)
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", info.File, err)
	}
	if seg.current == nil {
		return nil, fmt.Errorf("segment %s holds no bytes: %w", info.File, process.ErrAddressNotMapped)
	}
	d.cache.Add(info.Base, seg.current)
	return seg.current, nil
}
