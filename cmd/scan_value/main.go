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
	"memsift/session"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/common/model"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to attach to")
	nameFlag := flag.String("name", "", "Process name to attach to (lowest PID wins)")
	listFlag := flag.Bool("list", false, "List candidate processes and exit")
	typeFlag := flag.String("type", "uint32", "Element type (uint8..uint64, int8..int64, float32, float64, bytes:N)")
	passesFlag := flag.String("passes", "", "Comma-separated passes: eq=N, ne=N, gt=N, lt=N, changed, unchanged, inc, dec")
	sessionFlag := flag.String("session", "", "Session YAML file; flags fill in fields the file leaves unset")
	freezeFlag := flag.Bool("freeze", false, "Suspend the target while each pass reads it")
	waitFlag := flag.Duration("wait", time.Second, "Wait before each pass so the target's values can move")
	topFlag := flag.Int("top", 20, "Survivors to print")
	flag.Parse()

	if *listFlag {
		if err := listProcesses(); err != nil {
			fmt.Printf("Error listing processes: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sess := &session.Session{
		Target: *nameFlag,
		PID:    *pidFlag,
		Type:   *typeFlag,
		Freeze: *freezeFlag,
		Wait:   model.Duration(*waitFlag),
		Passes: session.SplitSpecs(*passesFlag),
	}
	if *sessionFlag != "" {
		loaded, err := session.LoadFile(*sessionFlag)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if loaded.PID == 0 {
			loaded.PID = *pidFlag
		}
		if loaded.Target == "" {
			loaded.Target = *nameFlag
		}
		if loaded.Type == "" {
			loaded.Type = *typeFlag
		}
		if loaded.Wait == 0 {
			loaded.Wait = model.Duration(*waitFlag)
		}
		if len(loaded.Passes) == 0 {
			loaded.Passes = session.SplitSpecs(*passesFlag)
		}
		if *freezeFlag {
			loaded.Freeze = true
		}
		sess = loaded
	}

	et, err := sess.ElementType()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	passes, err := session.Compile[scan.Unlabeled](sess.Passes, et)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	proc, err := attach(sess)
	if err != nil {
		fmt.Printf("Error attaching: %v\n", err)
		os.Exit(1)
	}
	defer proc.Close()
	fmt.Printf("Attached to process %d\n", proc.GetPID())

	var freezer process.Freezer
	if sess.Freeze {
		fz, ok := proc.(process.Freezer)
		if !ok {
			fmt.Println("Warning: target cannot be frozen on this platform, scanning live")
		} else {
			freezer = fz
		}
	}

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

	// Resume-on-exit matters more than fast shutdown: a SIGINT mid-pass
	// cancels the pass and unwinds through the deferred Resume.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := readTarget(ctx, snap, proc, freezer); err != nil && ctx.Err() == nil {
		fmt.Println("Warning: some regions could not be read, continuing with the rest")
	}
	if ctx.Err() != nil {
		fmt.Println("Interrupted")
		return
	}
	snap.MarkAllValid()
	fmt.Printf("Tracking %s across %d regions as %s\n",
		humanize.Bytes(uint64(snap.ByteSize())), snap.RegionCount(), et)

	for _, pass := range passes {
		sleep(ctx, time.Duration(sess.Wait))
		if ctx.Err() != nil {
			fmt.Println("Interrupted")
			return
		}
		if err := runPass(ctx, snap, proc, freezer, pass.Pred); err != nil && ctx.Err() == nil {
			fmt.Printf("Warning: pass %s: some regions could not be read\n", pass.Spec)
		}
		if ctx.Err() != nil {
			fmt.Println("Interrupted")
			return
		}
		fmt.Printf("Pass %-12s %8d candidates, %s in %d regions\n",
			pass.Spec, snap.ValidCount(), humanize.Bytes(uint64(snap.ByteSize())), snap.RegionCount())
		if snap.ValidCount() == 0 {
			fmt.Println("No candidates remain")
			return
		}
	}

	printSurvivors(snap, *topFlag)
}

func attach(sess *session.Session) (process.Process, error) {
	if sess.PID != 0 {
		return getProcess(sess.PID)
	}
	if sess.Target != "" {
		return getProcessByName(sess.Target)
	}
	return nil, fmt.Errorf("either -pid or -name is required")
}

// readTarget seeds every region once, under suspension when available so
// the bytes form one consistent view.
func readTarget(ctx context.Context, snap *scan.Snapshot[scan.Unlabeled], proc process.Process, freezer process.Freezer) error {
	defer suspend(freezer)()
	return snap.Read(ctx, proc, true)
}

func runPass(ctx context.Context, snap *scan.Snapshot[scan.Unlabeled], proc process.Process, freezer process.Freezer, pred scan.Predicate[scan.Unlabeled]) error {
	defer suspend(freezer)()
	return snap.Pass(ctx, proc, pred)
}

// suspend stops the target when a freezer is present and returns the matching
// resume. A failed suspend falls back to scanning live; the target must never
// stay stopped, so resume failures are loud.
func suspend(freezer process.Freezer) func() {
	if freezer == nil {
		return func() {}
	}
	if err := freezer.Suspend(); err != nil {
		fmt.Printf("Warning: failed to suspend target: %v\n", err)
		return func() {}
	}
	return func() {
		if err := freezer.Resume(); err != nil {
			fmt.Printf("Warning: failed to resume target: %v\n", err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func printSurvivors(snap *scan.Snapshot[scan.Unlabeled], top int) {
	fmt.Printf("%d candidates:\n", snap.ValidCount())
	n := 0
	for e := range snap.Elements() {
		if n >= top {
			fmt.Printf("  ... and %d more\n", int(snap.ValidCount())-top)
			break
		}
		fmt.Printf("  %s = %s\n", e.Address.ToString(), e.Type.Format(e.Current))
		n++
	}
}
