//go:build linux

// Package process_manage_linux walks /proc to list and inspect candidate
// scan targets and to signal them. It is the discovery layer behind the
// CLI's -name and -list modes; attachment itself lives in process_linux.
package process_manage_linux

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Process represents a system process
type Process struct {
	PID     int    `json:"pid"`
	PPID    int    `json:"ppid"`
	Name    string `json:"name"`
	State   string `json:"state"`
	VmSize  int64  `json:"vm_size"` // Virtual memory size in KB
	VmRSS   int64  `json:"vm_rss"`  // Resident set size in KB
	Threads int    `json:"threads"`
	Cmdline string `json:"cmdline"`
}

// ProcessManager handles process operations
type ProcessManager struct{}

// NewProcessManager creates a new ProcessManager instance
func NewProcessManager() *ProcessManager {
	return &ProcessManager{}
}

// ListProcesses returns a list of all running processes
func (pm *ProcessManager) ListProcesses() ([]Process, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("failed to read /proc: %w", err)
	}

	var processes []Process
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue // not a PID dir
		}
		proc, err := pm.getProcessInfo(pid)
		if err != nil {
			// Process vanished while we were reading, skip it
			continue
		}
		processes = append(processes, proc)
	}

	return processes, nil
}

// GetProcess returns information about a specific process
func (pm *ProcessManager) GetProcess(pid int) (Process, error) {
	return pm.getProcessInfo(pid)
}

// FindProcessesByName finds processes whose name contains the given string
func (pm *ProcessManager) FindProcessesByName(name string) ([]Process, error) {
	processes, err := pm.ListProcesses()
	if err != nil {
		return nil, err
	}

	var matches []Process
	for _, proc := range processes {
		if strings.Contains(proc.Name, name) {
			matches = append(matches, proc)
		}
	}

	return matches, nil
}

// SendSignal sends a specific signal to a process
func (pm *ProcessManager) SendSignal(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("failed to send signal %v to process %d: %w", sig, pid, err)
	}
	return nil
}

// Suspend stops a process with SIGSTOP so its memory holds still for a scan.
func (pm *ProcessManager) Suspend(pid int) error {
	return pm.SendSignal(pid, syscall.SIGSTOP)
}

// Resume continues a process stopped by Suspend
func (pm *ProcessManager) Resume(pid int) error {
	return pm.SendSignal(pid, syscall.SIGCONT)
}

// ProcessExists checks if a process with the given PID exists
func (pm *ProcessManager) ProcessExists(pid int) bool {
	_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid)))
	return err == nil
}

// getProcessInfo reads process information from /proc/[pid]/
func (pm *ProcessManager) getProcessInfo(pid int) (Process, error) {
	proc := Process{PID: pid}

	statPath := filepath.Join("/proc", strconv.Itoa(pid), "stat")
	statData, err := os.ReadFile(statPath)
	if err != nil {
		return proc, fmt.Errorf("failed to read %s: %w", statPath, err)
	}
	if err := parseStat(string(statData), &proc); err != nil {
		return proc, fmt.Errorf("failed to parse stat file: %w", err)
	}

	// Status and cmdline are best-effort extras.
	statusPath := filepath.Join("/proc", strconv.Itoa(pid), "status")
	if statusData, err := os.ReadFile(statusPath); err == nil {
		parseStatus(string(statusData), &proc)
	}

	cmdlinePath := filepath.Join("/proc", strconv.Itoa(pid), "cmdline")
	if cmdlineData, err := os.ReadFile(cmdlinePath); err == nil {
		proc.Cmdline = strings.TrimSpace(strings.ReplaceAll(string(cmdlineData), "\x00", " "))
	}

	return proc, nil
}

// parseStat parses a /proc/[pid]/stat line. The comm field is parenthesized
// and may itself contain spaces or parentheses, so fields are counted from
// the last closing parenthesis.
func parseStat(data string, proc *Process) error {
	close := strings.LastIndex(data, ")")
	open := strings.Index(data, "(")
	if open < 0 || close < 0 || close < open {
		return fmt.Errorf("invalid stat file format")
	}
	proc.Name = data[open+1 : close]

	fields := strings.Fields(data[close+1:])
	// state ppid pgrp session tty tpgid flags minflt cminflt majflt cmajflt
	// utime stime cutime cstime priority nice num_threads ...
	if len(fields) < 18 {
		return fmt.Errorf("invalid stat file format")
	}

	proc.State = fields[0]
	if ppid, err := strconv.Atoi(fields[1]); err == nil {
		proc.PPID = ppid
	}
	if threads, err := strconv.Atoi(fields[17]); err == nil {
		proc.Threads = threads
	}

	return nil
}

// parseStatus pulls memory figures out of /proc/[pid]/status
func parseStatus(data string, proc *Process) {
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		switch parts[0] {
		case "VmSize:":
			if size, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				proc.VmSize = size
			}
		case "VmRSS:":
			if rss, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				proc.VmRSS = rss
			}
		}
	}
}
