// snapshot_filter narrows a saved dump offline. Passes filter the stored
// bytes (history passes compare the dump's own current and previous reads),
// so no live target is involved and runs are repeatable.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"memsift/process"
	"memsift/scan"
	"memsift/scan_dump"
	"memsift/session"
)

func main() {
	dumpFlag := flag.String("dump", "", "Dump directory to load")
	passesFlag := flag.String("passes", "", "Comma-separated passes: eq=N, ne=N, gt=N, lt=N, changed, unchanged, inc, dec")
	typeFlag := flag.String("type", "", "Reinterpret elements as this type (default: the type the dump was taken with)")
	topFlag := flag.Int("top", 20, "Survivors to print")
	contextFlag := flag.Int("context", 0, "Bytes of surrounding dump memory to show per survivor")
	flag.Parse()

	if *dumpFlag == "" {
		fmt.Println("Error: -dump is required")
		flag.Usage()
		os.Exit(1)
	}
	if *passesFlag == "" {
		fmt.Println("Error: -passes is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	snap, err := scan_dump.Load[scan.Unlabeled](ctx, *dumpFlag)
	if err != nil {
		fmt.Printf("Error loading dump: %v\n", err)
		os.Exit(1)
	}

	reader, err := scan_dump.Open(*dumpFlag)
	if err != nil {
		fmt.Printf("Error opening dump: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	et, err := elementType(*typeFlag, reader.Manifest())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if *typeFlag != "" {
		snap.SetType(et)
	}

	passes, err := session.Compile[scan.Unlabeled](session.SplitSpecs(*passesFlag), et)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %d regions, %d candidates as %s\n", snap.RegionCount(), snap.ValidCount(), et)

	for _, pass := range passes {
		if err := snap.Filter(ctx, pass.Pred); err != nil {
			fmt.Printf("Error in pass %s: %v\n", pass.Spec, err)
			os.Exit(1)
		}
		snap.Split()
		fmt.Printf("Pass %-12s %8d candidates in %d regions\n",
			pass.Spec, snap.ValidCount(), snap.RegionCount())
		if snap.ValidCount() == 0 {
			fmt.Println("No candidates remain")
			return
		}
	}

	printSurvivors(snap, reader, *topFlag, *contextFlag)
}

// elementType prefers the explicit flag, then the type recorded in the
// manifest.
func elementType(flagValue string, manifest scan_dump.Manifest) (scan.ElementType, error) {
	if flagValue != "" {
		return scan.ParseElementType(flagValue)
	}
	if manifest.ElementType != "" {
		return scan.ParseElementType(manifest.ElementType)
	}
	return scan.DefaultElementType, nil
}

func printSurvivors(snap *scan.Snapshot[scan.Unlabeled], reader *scan_dump.DumpReader, top, contextBytes int) {
	fmt.Printf("%d candidates:\n", snap.ValidCount())
	n := 0
	for e := range snap.Elements() {
		if n >= top {
			fmt.Printf("  ... and %d more\n", int(snap.ValidCount())-top)
			break
		}
		fmt.Printf("  %s = %s%s\n", e.Address.ToString(), e.Type.Format(e.Current), contextOf(reader, e, contextBytes))
		n++
	}
}

// contextOf reads the dump bytes around a survivor. Survivors near a
// segment edge have no full window and print without one.
func contextOf(reader *scan_dump.DumpReader, e scan.Element[scan.Unlabeled], contextBytes int) string {
	if contextBytes <= 0 {
		return ""
	}
	start := e.Address - process.ProcessMemoryAddress(contextBytes)
	if start > e.Address {
		return "" // address arithmetic wrapped
	}
	window, err := reader.ReadMemory(start, process.ProcessMemorySize(2*contextBytes+e.Type.Width()))
	if err != nil {
		return ""
	}
	return "  |" + hex.EncodeToString(window) + "|"
}
