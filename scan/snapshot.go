package scan

import (
	"context"
	"fmt"
	"iter"
	"runtime"
	"sort"
	"sync"
	"time"

	"memsift/process"
	"memsift/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/dustin/go-humanize"
	"github.com/grafana/dskit/concurrency"
	"github.com/grafana/dskit/multierror"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxRegionBytes caps regions built by FromMemoryMap; larger mappings
// are cut into contiguous chunks of at most this size.
const DefaultMaxRegionBytes = 16 << 20

// Snapshot owns a set of disjoint regions of one target address space and
// drives read, filter, and split passes across them with a worker pool.
// Every region belongs to exactly one job per pass, so regions need no
// internal locking.
type Snapshot[L any] struct {
	regions     []*Region[L]
	parallelism int
	log         *logger.Logger
	metrics     *snapshotMetrics
}

// Option configures a Snapshot
type Option func(*options)

type options struct {
	parallelism    int
	maxRegionBytes int
	log            *logger.Logger
	registerer     prometheus.Registerer
}

func defaultOptions() options {
	return options{
		parallelism:    runtime.GOMAXPROCS(0),
		maxRegionBytes: DefaultMaxRegionBytes,
	}
}

// WithParallelism sets the worker count for read and filter passes.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithMaxRegionBytes sets the chunk cap FromMemoryMap applies to oversized
// mappings.
func WithMaxRegionBytes(n int) Option {
	return func(o *options) {
		o.maxRegionBytes = n
	}
}

// WithLogger replaces the snapshot's default logger.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMetrics registers the snapshot's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// NewSnapshot builds a snapshot over an externally constructed region list.
func NewSnapshot[L any](regions []*Region[L], options ...Option) (*Snapshot[L], error) {
	o := defaultOptions()
	for _, opt := range options {
		opt(&o)
	}
	return newSnapshot(regions, o)
}

// FromMemoryMap seeds one region per mapping that keep accepts, cutting
// oversized mappings into chunks. A nil keep admits every readable mapping.
// The engine never enumerates the target itself; items come from the
// process's memory map.
func FromMemoryMap[L any](items []memory_map.MemoryMapItem, keep func(memory_map.MemoryMapItem) bool, options ...Option) (*Snapshot[L], error) {
	o := defaultOptions()
	for _, opt := range options {
		opt(&o)
	}
	if o.maxRegionBytes <= 0 {
		o.maxRegionBytes = DefaultMaxRegionBytes
	}
	var regions []*Region[L]
	for _, item := range items {
		if keep == nil {
			if !item.IsReadable() {
				continue
			}
		} else if !keep(item) {
			continue
		}
		base := process.ProcessMemoryAddress(item.Address)
		remaining := int(item.Size)
		for remaining > 0 {
			n := min(remaining, o.maxRegionBytes)
			regions = append(regions, NewRegion[L](base, n))
			base += process.ProcessMemoryAddress(n)
			remaining -= n
		}
	}
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].base < regions[j].base
	})
	return newSnapshot(regions, o)
}

func newSnapshot[L any](regions []*Region[L], o options) (*Snapshot[L], error) {
	if o.parallelism <= 0 {
		o.parallelism = runtime.GOMAXPROCS(0)
	}
	s := &Snapshot[L]{
		regions:     regions,
		parallelism: o.parallelism,
		log:         o.log,
		metrics:     newSnapshotMetrics(),
	}
	if s.log == nil {
		s.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "snapshot"))
	}
	if o.registerer != nil {
		if err := s.metrics.register(o.registerer); err != nil {
			return nil, fmt.Errorf("register scan metrics: %w", err)
		}
	}
	s.observeShape()
	return s, nil
}

// Read fetches fresh bytes for every region from mem. With keep, each
// region's prior buffer becomes its previous. Region failures never abort
// sibling regions; they are aggregated and returned after the pass, each
// carrying the region's base address. Cancellation aborts between regions.
func (s *Snapshot[L]) Read(ctx context.Context, mem MemoryReader, keep bool) error {
	var (
		mu        sync.Mutex
		bytesRead int
		failed    int
	)
	errs := multierror.New()
	if err := concurrency.ForEachJob(ctx, len(s.regions), s.parallelism, func(_ context.Context, i int) error {
		start := time.Now()
		data, err := s.regions[i].Read(mem, keep)
		s.metrics.readDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			s.metrics.readFailuresTotal.Inc()
			mu.Lock()
			errs.Add(err)
			failed++
			mu.Unlock()
			return nil
		}
		s.metrics.readBytesTotal.Add(float64(len(data)))
		mu.Lock()
		bytesRead += len(data)
		mu.Unlock()
		return nil
	}); err != nil {
		errs.Add(err)
	}
	s.log.Debugln("Read", len(s.regions), "regions,", humanize.Bytes(uint64(bytesRead)))
	if failed > 0 {
		s.log.Warn("Failed to read ", failed, " of ", len(s.regions), " regions")
	}
	return errs.Err()
}

// Filter applies pred to every valid element of every region, in parallel
// across regions.
func (s *Snapshot[L]) Filter(ctx context.Context, pred Predicate[L]) error {
	err := concurrency.ForEachJob(ctx, len(s.regions), s.parallelism, func(_ context.Context, i int) error {
		s.regions[i].Filter(pred)
		return nil
	})
	if err != nil {
		return err
	}
	s.observeShape()
	return nil
}

// Split replaces every region with its valid sub-runs and drops regions
// with no survivors. Region order stays ascending by base.
func (s *Snapshot[L]) Split() {
	next := make([]*Region[L], 0, len(s.regions))
	for _, r := range s.regions {
		next = append(next, r.SubRegions()...)
	}
	s.regions = next
	s.observeShape()
}

// Pass runs one full read→filter→split cycle and logs a summary. Per-region
// read failures leave those regions on their stale bytes, are still
// filtered, and are reported in the returned aggregate; only cancellation
// aborts the cycle.
func (s *Snapshot[L]) Pass(ctx context.Context, mem MemoryReader, pred Predicate[L]) error {
	start := time.Now()
	readErr := s.Read(ctx, mem, true)
	if ctx.Err() != nil {
		return readErr
	}
	if err := s.Filter(ctx, pred); err != nil {
		return err
	}
	s.Split()
	s.metrics.passesTotal.Inc()
	s.metrics.passDuration.Observe(time.Since(start).Seconds())
	s.log.Infoln("Pass complete:", len(s.regions), "regions,",
		humanize.Bytes(uint64(s.ByteSize())), "tracked,", s.ValidCount(), "candidates in", time.Since(start).Round(time.Millisecond))
	return readErr
}

// MarkAllValid revives every element of every region, the reset that starts
// a narrowing session.
func (s *Snapshot[L]) MarkAllValid() {
	for _, r := range s.regions {
		r.MarkAllValid()
	}
	s.observeShape()
}

// SetType applies one element interpretation to every region.
func (s *Snapshot[L]) SetType(t ElementType) {
	for _, r := range s.regions {
		r.SetType(t)
	}
}

// Regions returns a copy of the region list. Mutating a returned region
// still mutates snapshot state; the copy only protects the list itself.
func (s *Snapshot[L]) Regions() []*Region[L] {
	out := make([]*Region[L], len(s.regions))
	copy(out, s.regions)
	return out
}

// RegionCount returns the number of tracked regions.
func (s *Snapshot[L]) RegionCount() int {
	return len(s.regions)
}

// ByteSize returns the logical bytes covered by all regions.
func (s *Snapshot[L]) ByteSize() int {
	var total int
	for _, r := range s.regions {
		total += r.size
	}
	return total
}

// ValidCount returns the surviving candidates across all regions.
func (s *Snapshot[L]) ValidCount() uint {
	var total uint
	for _, r := range s.regions {
		total += r.ValidCount()
	}
	return total
}

// Elements yields every valid element across all regions in ascending
// address order.
func (s *Snapshot[L]) Elements() iter.Seq[Element[L]] {
	return func(yield func(Element[L]) bool) {
		for _, r := range s.regions {
			for e := range r.Elements() {
				if !yield(e) {
					return
				}
			}
		}
	}
}

func (s *Snapshot[L]) observeShape() {
	s.metrics.regions.Set(float64(len(s.regions)))
	s.metrics.trackedBytes.Set(float64(s.ByteSize()))
	s.metrics.validElements.Set(float64(s.ValidCount()))
}
