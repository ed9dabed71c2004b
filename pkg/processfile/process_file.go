package processfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/logging"
)

// DefaultAppName names the run-directory subfolder when none is configured.
const DefaultAppName = "appwarden"

// Config holds PID file placement settings.
type Config struct {
	// BaseDirectory overrides the OS default run directory.
	BaseDirectory string `yaml:"base_directory,omitempty"`

	// AppName names the subdirectory created under the run directory.
	AppName string `yaml:"app_name,omitempty"`
}

// Manager owns the supervised service's PID file: written after launch,
// removed after termination, readable by tooling inside the container.
type Manager struct {
	config Config
	logger logging.Logger
}

func NewManager(config Config, logger logging.Logger) *Manager {
	if config.AppName == "" {
		config.AppName = DefaultAppName
	}

	return &Manager{
		config: config,
		logger: logger,
	}
}

// PIDFilePath returns the PID file location for the given service name.
func (m *Manager) PIDFilePath(serviceName string) string {
	return filepath.Join(m.baseDirectory(), m.config.AppName, serviceName+".pid")
}

// WritePIDFile records the service's PID, creating the directory if needed.
func (m *Manager) WritePIDFile(serviceName string, pid int) error {
	path := m.PIDFilePath(serviceName)
	m.logger.Debugf("Writing PID file, service: %s, pid: %d, path: %s", serviceName, pid, path)

	if err := EnsurePIDFileDirectory(path); err != nil {
		return errors.NewIOError("PID file directory not usable", err).WithContext("pid_file", path)
	}

	content := fmt.Sprintf("%d\n", pid)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.NewIOError("failed to write PID file", err).WithContext("pid_file", path).WithContext("pid", pid)
	}

	m.logger.Infof("PID file written, service: %s, pid: %d, path: %s", serviceName, pid, path)
	return nil
}

// ReadPIDFile returns the PID recorded for the given service name.
func (m *Manager) ReadPIDFile(serviceName string) (int, error) {
	path := m.PIDFilePath(serviceName)

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.NewIOError("failed to read PID file", err).WithContext("pid_file", path)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, errors.NewValidationError("invalid PID in PID file: "+pidStr, err).WithContext("pid_file", path)
	}
	if pid <= 0 {
		return 0, errors.NewValidationError("PID in PID file must be positive: "+pidStr, nil).WithContext("pid_file", path)
	}

	return pid, nil
}

// RemovePIDFile deletes the service's PID file. A missing file is not an
// error: termination paths may race over cleanup.
func (m *Manager) RemovePIDFile(serviceName string) error {
	path := m.PIDFilePath(serviceName)

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewIOError("failed to remove PID file", err).WithContext("pid_file", path)
	}

	m.logger.Debugf("PID file removed, service: %s, path: %s", serviceName, path)
	return nil
}

func (m *Manager) baseDirectory() string {
	if m.config.BaseDirectory != "" {
		return m.config.BaseDirectory
	}

	switch runtime.GOOS {
	case "windows":
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = "C:\\ProgramData"
		}
		return programData

	case "darwin":
		return "/var/run"

	default:
		// Modern Linux uses /run, older systems /var/run.
		if _, err := os.Stat("/run"); err == nil {
			return "/run"
		}
		return "/var/run"
	}
}

// EnsurePIDFileDirectory makes sure the PID file's directory exists and is
// writable, creating it if necessary.
func EnsurePIDFileDirectory(pidFilePath string) error {
	dir := filepath.Dir(pidFilePath)

	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.NewIOError("failed to access PID file directory", err).WithContext("directory", dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewIOError("failed to create PID file directory", err).WithContext("directory", dir)
		}
	} else if !info.IsDir() {
		return errors.NewValidationError("PID file parent is not a directory", nil).WithContext("path", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		return errors.NewIOError("PID file directory is not writable", err).WithContext("directory", dir)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}
