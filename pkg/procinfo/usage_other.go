//go:build !linux

package procinfo

import "github.com/app-tools/appwarden/pkg/errors"

// GetProcessUsage is not implemented outside Linux. Callers treat the error
// as "no figures available" and carry on.
func GetProcessUsage(pid int) (*Usage, error) {
	return nil, errors.NewInternalError("process usage sampling is not supported on this platform", nil).WithContext("pid", pid)
}
