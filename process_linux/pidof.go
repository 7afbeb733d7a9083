//go:build linux

package process_linux

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"memsift/process"
)

// ListByName returns all processes whose comm or exe basename equals name.
// The match is case-sensitive, like pidof. The calling process is skipped.
func ListByName(name string) ([]process.ProcessInfo, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	selfPID := os.Getpid()
	var out []process.ProcessInfo

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}
		if pid == selfPID {
			continue
		}

		comm, _ := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		comm = bytes.TrimSpace(comm)
		exe, _ := os.Readlink(filepath.Join("/proc", e.Name(), "exe"))

		if string(comm) != name && (exe == "" || filepath.Base(exe) != name) {
			continue
		}

		info := process.ProcessInfo{
			PID:  process.ProcessID(pid),
			Name: string(comm),
			Exe:  exe,
		}
		if info.Name == "" && exe != "" {
			info.Name = filepath.Base(exe)
		}
		// State is best-effort; a vanished process still lists.
		if stat, err := os.ReadFile(filepath.Join("/proc", e.Name(), "stat")); err == nil {
			info.State = stateFromStat(stat)
		}
		out = append(out, info)
	}

	return out, nil
}

// OneByName returns the match with the lowest PID, or os.ErrNotExist if none.
func OneByName(name string) (process.ProcessInfo, error) {
	ps, err := ListByName(name)
	if err != nil {
		return process.ProcessInfo{}, err
	}
	if len(ps) == 0 {
		return process.ProcessInfo{}, os.ErrNotExist
	}
	// lowest PID for determinism
	minIdx := 0
	for i := 1; i < len(ps); i++ {
		if ps[i].PID < ps[minIdx].PID {
			minIdx = i
		}
	}
	return ps[minIdx], nil
}

// OpenByName attaches to the lowest-PID process matching name.
func OpenByName(name string) (process.Process, error) {
	info, err := OneByName(name)
	if err != nil {
		return nil, fmt.Errorf("find process %q: %w", name, err)
	}
	return NewWithPID(info.PID)
}

// stateFromStat pulls the single-letter state out of a /proc/[pid]/stat
// line. The comm field is parenthesized and may contain spaces, so the state
// is the first field after the closing parenthesis.
func stateFromStat(stat []byte) process.ProcessState {
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return ""
	}
	rest := bytes.Fields(stat[i+1:])
	if len(rest) == 0 {
		return ""
	}
	return process.ProcessState(rest[0])
}
