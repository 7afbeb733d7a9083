//go:build linux

package main

import (
	"memsift/process"
	"memsift/process_linux"
)

func getProcess(pid int) (process.Process, error) {
	return process_linux.NewWithPID(process.ProcessID(pid))
}

func getProcessByName(name string) (process.Process, error) {
	return process_linux.OpenByName(name)
}
