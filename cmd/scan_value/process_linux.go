//go:build linux

package main

import (
	"fmt"
	"sort"

	"memsift/process"
	"memsift/process_linux"
	"memsift/process_manage_linux"

	"github.com/dustin/go-humanize"
)

func getProcess(pid int) (process.Process, error) {
	return process_linux.NewWithPID(process.ProcessID(pid))
}

func getProcessByName(name string) (process.Process, error) {
	return process_linux.OpenByName(name)
}

func listProcesses() error {
	pm := process_manage_linux.NewProcessManager()
	procs, err := pm.ListProcesses()
	if err != nil {
		return err
	}
	sort.Slice(procs, func(i, j int) bool {
		return procs[i].PID < procs[j].PID
	})
	for _, p := range procs {
		fmt.Printf("%7d %-24s %-2s rss %s\n",
			p.PID, p.Name, p.State, humanize.Bytes(uint64(p.VmRSS)*1024))
	}
	return nil
}
