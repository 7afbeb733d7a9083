package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"memsift/process"
	"memsift/process/memory_map"
	"memsift/scan"
	"memsift/scan_dump"

	"github.com/dustin/go-humanize"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to attach to")
	nameFlag := flag.String("name", "", "Process name to attach to (lowest PID wins)")
	outputFlag := flag.String("output", "", "Output directory for the dump")
	typeFlag := flag.String("type", "uint32", "Element type recorded with the dump")
	readsFlag := flag.Int("reads", 1, "Reads to take; two spaced reads give the dump history for offline changed/inc/dec passes")
	waitFlag := flag.Duration("wait", time.Second, "Wait between reads")
	freezeFlag := flag.Bool("freeze", false, "Suspend the target while each read runs")
	flag.Parse()

	if *outputFlag == "" {
		fmt.Println("Error: -output is required")
		flag.Usage()
		os.Exit(1)
	}
	if *pidFlag == 0 && *nameFlag == "" {
		fmt.Println("Error: either -pid or -name is required")
		flag.Usage()
		os.Exit(1)
	}

	et, err := scan.ParseElementType(*typeFlag)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var proc process.Process
	if *pidFlag != 0 {
		proc, err = getProcess(*pidFlag)
	} else {
		proc, err = getProcessByName(*nameFlag)
	}
	if err != nil {
		fmt.Printf("Error attaching: %v\n", err)
		os.Exit(1)
	}
	defer proc.Close()
	fmt.Printf("Attached to process %d\n", proc.GetPID())

	if err := proc.UpdateMemoryMap(); err != nil {
		fmt.Printf("Error reading memory map: %v\n", err)
		os.Exit(1)
	}
	items, err := proc.GetMemoryMap()
	if err != nil {
		fmt.Printf("Error reading memory map: %v\n", err)
		os.Exit(1)
	}

	snap, err := scan.FromMemoryMap[scan.Unlabeled](items, func(item memory_map.MemoryMapItem) bool {
		return item.IsReadable() && item.IsWritable()
	})
	if err != nil {
		fmt.Printf("Error seeding regions: %v\n", err)
		os.Exit(1)
	}
	snap.SetType(et)

	var freezer process.Freezer
	if *freezeFlag {
		fz, ok := proc.(process.Freezer)
		if !ok {
			fmt.Println("Warning: target cannot be frozen on this platform, reading live")
		} else {
			freezer = fz
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for i := 0; i < max(*readsFlag, 1); i++ {
		if i > 0 {
			select {
			case <-time.After(*waitFlag):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			fmt.Println("Interrupted")
			return
		}
		if err := read(ctx, snap, proc, freezer); err != nil && ctx.Err() == nil {
			fmt.Println("Warning: some regions could not be read, dumping the rest")
		}
	}
	if ctx.Err() != nil {
		fmt.Println("Interrupted")
		return
	}
	snap.MarkAllValid()

	fmt.Printf("Saving %d regions (%s) to %s...\n",
		snap.RegionCount(), humanize.Bytes(uint64(snap.ByteSize())), *outputFlag)
	if err := scan_dump.Save(ctx, *outputFlag, snap, scan_dump.WithTarget(proc.GetPID(), *nameFlag)); err != nil {
		fmt.Printf("Error saving dump: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Dump saved successfully.")
}

func read(ctx context.Context, snap *scan.Snapshot[scan.Unlabeled], proc process.Process, freezer process.Freezer) error {
	if freezer != nil {
		if err := freezer.Suspend(); err != nil {
			fmt.Printf("Warning: failed to suspend target: %v\n", err)
		} else {
			defer func() {
				if err := freezer.Resume(); err != nil {
					fmt.Printf("Warning: failed to resume target: %v\n", err)
				}
			}()
		}
	}
	return snap.Read(ctx, proc, true)
}
