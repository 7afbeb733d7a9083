//go:build windows

package main

import (
	"fmt"

	"memsift/process"
	"memsift/process_windows"
)

func getProcess(pid int) (process.Process, error) {
	return process_windows.NewWithPID(process.ProcessID(pid))
}

func getProcessByName(name string) (process.Process, error) {
	return nil, fmt.Errorf("attach by name is not supported on windows, use -pid")
}

func listProcesses() error {
	return fmt.Errorf("process listing is not supported on windows")
}
