package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/app-tools/appwarden/pkg/logging"
	"github.com/app-tools/appwarden/pkg/processstate"

	ps "github.com/mitchellh/go-ps"
)

type processProber struct {
	config ProcessConfig
	id     string
	logger logging.Logger
}

// Check verifies the process still exists. The process table lookup also
// yields the executable name for the message; when the lookup itself fails,
// a plain signal-0 liveness check decides.
func (p *processProber) Check(ctx context.Context) Result {
	start := time.Now()

	p.logger.Debugf("Performing process probe, id: %s, PID: %d", p.id, p.config.PID)

	proc, err := ps.FindProcess(p.config.PID)
	if err != nil {
		running, stateErr := processstate.IsProcessRunning(p.config.PID)
		if stateErr != nil {
			return newResult(start, false, fmt.Sprintf("process lookup failed: %v", stateErr))
		}
		if !running {
			return newResult(start, false, fmt.Sprintf("process not running: PID %d", p.config.PID))
		}
		return newResult(start, true, fmt.Sprintf("process is running: PID %d", p.config.PID))
	}

	if proc == nil {
		return newResult(start, false, fmt.Sprintf("process not running: PID %d", p.config.PID))
	}

	return newResult(start, true, fmt.Sprintf("process is running: PID %d (%s)", p.config.PID, proc.Executable()))
}
