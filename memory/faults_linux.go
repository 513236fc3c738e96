//go:build linux

package memory

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Faults holds the page fault counters of a process
type Faults struct {
	Minor uint64
	Major uint64
}

// Sub returns the faults that happened since prev
func (f Faults) Sub(prev Faults) Faults {
	return Faults{f.Minor - prev.Minor, f.Major - prev.Major}
}

// ProcStats reads fault counters of the running process with getrusage
type ProcStats struct{}

// Read returns the fault counters of pid. getrusage only reports the calling
// process, any other pid is refused.
func (p ProcStats) Read(pid int) (Faults, error) {
	if pid != os.Getpid() {
		return Faults{}, fmt.Errorf("fault counters only available for the running process %d, got %d", os.Getpid(), pid)
	}
	var ru unix.Rusage
	err := unix.Getrusage(unix.RUSAGE_SELF, &ru)
	if err != nil {
		return Faults{}, fmt.Errorf("getrusage failed: %v", err)
	}
	return Faults{Minor: uint64(ru.Minflt), Major: uint64(ru.Majflt)}, nil
}
