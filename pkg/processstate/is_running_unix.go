//go:build !windows

package processstate

import (
	"os"
	"syscall"

	"github.com/app-tools/appwarden/pkg/errors"
)

// IsProcessRunning reports whether a process with the given PID exists.
// It is used to verify liveness of the supervised service between probes
// and to confirm termination after a kill.
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, errors.NewValidationError("invalid PID", nil).WithContext("pid", pid)
	}

	// On Unix, FindProcess always succeeds regardless of whether the
	// process exists. Signal 0 performs the actual existence check.
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true, nil
	}
	if err.Error() == "os: process already finished" {
		return false, nil
	}
	errno, ok := err.(syscall.Errno)
	if !ok {
		return false, err
	}
	switch errno {
	case syscall.ESRCH:
		return false, nil
	case syscall.EPERM:
		// Process exists but belongs to another user.
		return true, nil
	}
	return false, err
}
