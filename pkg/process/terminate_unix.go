//go:build !windows

package process

import (
	"syscall"
	"time"
)

// SendTerminationSignal sends SIGTERM to the process group (negative PID),
// so the whole process tree is asked to shut down, not just the child.
// The isDead and timeout arguments only matter on Windows.
func SendTerminationSignal(pid int, isDead bool, timeout time.Duration) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}
