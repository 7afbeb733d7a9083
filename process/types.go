package process

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessState represents the state of a process
type ProcessState string

const (
	ProcessRunning    ProcessState = "R" // Running
	ProcessSleeping   ProcessState = "S" // Sleeping in an interruptible wait
	ProcessWaiting    ProcessState = "D" // Waiting in uninterruptible disk sleep
	ProcessZombie     ProcessState = "Z" // Zombie
	ProcessStopped    ProcessState = "T" // Stopped (on a signal)
	ProcessTracingStp ProcessState = "t" // Tracing stop
	ProcessDead       ProcessState = "X" // Dead
	ProcessIdle       ProcessState = "I" // Idle kernel thread
)

// ProcessInfo contains basic information about a discovered process
type ProcessInfo struct {
	PID   ProcessID    // Process ID
	Name  string       // Process name from /proc/[pid]/comm or the exe basename
	Exe   string       // Path to the executable
	State ProcessState // Process state (R, S, D, Z, etc.)
}
