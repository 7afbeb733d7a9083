package scan_dump

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"memsift/pod"
	"memsift/process"
	"memsift/scan"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

const manifestFileName = "manifest.json"

type saveOptions struct {
	pid         process.ProcessID
	processName string
	parallelism int
}

// SaveOption configures Save.
type SaveOption func(*saveOptions)

// WithTarget records the scanned process in the manifest.
func WithTarget(pid process.ProcessID, name string) SaveOption {
	return func(o *saveOptions) {
		o.pid = pid
		o.processName = name
	}
}

// WithSaveParallelism sets how many segments are compressed and written at
// once.
func WithSaveParallelism(n int) SaveOption {
	return func(o *saveOptions) {
		o.parallelism = n
	}
}

// Save writes snap to dir as a manifest plus one segment file per region.
// Segments are written concurrently; the manifest is written last, so a dump
// with a readable manifest has all its segments on disk.
func Save[L any](ctx context.Context, dir string, snap *scan.Snapshot[L], opts ...SaveOption) error {
	o := saveOptions{parallelism: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parallelism <= 0 {
		o.parallelism = runtime.GOMAXPROCS(0)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	regions := snap.Regions()
	infos := make([]SegmentInfo, len(regions))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)
	for i, r := range regions {
		g.Go(func() error {
			st := r.State()
			seg, err := stateSegment(st)
			if err != nil {
				return fmt.Errorf("segment at %s: %w", st.Base.ToString(), err)
			}
			data := encodeSegment(seg)
			name := segmentFileName(st.Base)
			if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
				return fmt.Errorf("failed to write segment: %w", err)
			}
			infos[i] = SegmentInfo{
				File:     name,
				Base:     st.Base,
				Size:     st.Size,
				Checksum: xxhash.Sum64(data),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	manifest := Manifest{
		Version:     FormatVersion,
		CreatedAt:   time.Now().UTC(),
		PID:         o.pid,
		ProcessName: o.processName,
		LabelWidth:  pod.SizeOf[L](),
		Segments:    infos,
	}
	if len(regions) > 0 {
		manifest.ElementType = regions[0].Type().String()
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFileName), manifestJSON, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}
