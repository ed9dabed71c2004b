//go:build linux

package procinfo

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/app-tools/appwarden/pkg/errors"
)

// GetProcessUsage reads /proc/<pid>/status for memory and thread figures.
func GetProcessUsage(pid int) (*Usage, error) {
	if pid <= 0 {
		return nil, errors.NewValidationError("invalid PID", nil).WithContext("pid", pid)
	}

	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return nil, errors.NewNotFoundError("process status not available", err).WithContext("pid", pid)
	}

	usage := &Usage{Timestamp: time.Now()}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		switch fields[0] {
		case "VmRSS:":
			usage.MemoryRSS = parseKB(fields[1])
		case "VmSize:":
			usage.MemoryVirtual = parseKB(fields[1])
		case "Threads:":
			if n, err := strconv.Atoi(fields[1]); err == nil {
				usage.Threads = n
			}
		}
	}

	return usage, nil
}

func parseKB(value string) int64 {
	kb, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return kb * 1024
}
