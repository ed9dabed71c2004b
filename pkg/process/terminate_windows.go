//go:build windows

package process

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/app-tools/appwarden/pkg/processstate"
)

// Console operations share process-wide state, serialize them.
var consoleOperationLock sync.Mutex

// SendTerminationSignal delivers Ctrl+Break to the child's process group.
// When the target is already dead it instead applies the AttachConsole
// dead-PID trick, which resets console signal state for the supervisor.
func SendTerminationSignal(pid int, isDead bool, timeout time.Duration) error {
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d", pid)
	}

	consoleOperationLock.Lock()
	defer consoleOperationLock.Unlock()

	if !isDead {
		isRunning, _ := processstate.IsProcessRunning(pid)
		isDead = !isRunning
	}

	dll, err := syscall.LoadDLL("kernel32.dll")
	if err != nil {
		return fmt.Errorf("failed to load kernel32.dll: %v", err)
	}
	defer dll.Release()

	if isDead {
		// AttachConsole is expected to fail for a dead PID; the attempt
		// alone resets the console state.
		if err := attachConsole(dll, pid); err != nil {
			return nil
		}
		return fmt.Errorf("AttachConsole unexpectedly succeeded for dead PID %d", pid)
	}

	return sendCtrlBreak(dll, pid, timeout)
}

func sendCtrlBreak(dll *syscall.DLL, pid int, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- generateConsoleCtrlEvent(dll, pid)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send Ctrl+Break to PID %d: %v", pid, err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout sending Ctrl+Break to PID %d after %v", pid, timeout)
	}
}

func attachConsole(dll *syscall.DLL, pid int) error {
	proc, err := dll.FindProc("AttachConsole")
	if err != nil {
		return err
	}

	result, _, err := proc.Call(uintptr(pid))
	if result == 0 {
		return err
	}
	return nil
}

func generateConsoleCtrlEvent(dll *syscall.DLL, pid int) error {
	proc, err := dll.FindProc("GenerateConsoleCtrlEvent")
	if err != nil {
		return err
	}

	result, _, err := proc.Call(
		uintptr(syscall.CTRL_BREAK_EVENT),
		uintptr(pid),
	)
	if result == 0 {
		return err
	}
	return nil
}
