package supervisor

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/app-tools/appwarden/pkg/errors"
)

// Defaults for the canonical payload: a web app serving its liveness
// endpoint on :8501.
const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 8501
	DefaultHealthPath = "/_stcore/health"
)

// ServiceSpec describes the one service process a Supervisor manages:
// what to launch and where it listens. The application behind the command
// is opaque; only the listen address and health path matter to supervision.
type ServiceSpec struct {
	// Name identifies the service in logs, metrics, and the PID file.
	Name string `yaml:"name"`

	// Command is the full argv, program name first.
	Command []string `yaml:"command"`

	// Environment is merged over the inherited environment.
	Environment map[string]string `yaml:"environment,omitempty"`

	// WorkingDirectory for the service. Empty means inherit.
	WorkingDirectory string `yaml:"working_directory,omitempty"`

	// Host the service binds. Defaults to 0.0.0.0.
	Host string `yaml:"host,omitempty"`

	// Port the service listens on. Defaults to 8501. The port is owned
	// exclusively by the service for the lifetime of the process.
	Port int `yaml:"port,omitempty"`

	// HealthPath is the liveness endpoint. Defaults to /_stcore/health.
	// The supervisor requests it verbatim and never rewrites it.
	HealthPath string `yaml:"health_path,omitempty"`
}

// withDefaults returns a copy with unset fields resolved.
func (s ServiceSpec) withDefaults() ServiceSpec {
	if s.Name == "" {
		s.Name = "service"
	}
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.HealthPath == "" {
		s.HealthPath = DefaultHealthPath
	}
	return s
}

// ListenAddress is the host:port the service is expected to bind.
func (s ServiceSpec) ListenAddress() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ProbeURL is the liveness endpoint as a client reaches it. Wildcard listen
// hosts resolve to loopback: probing happens over the network from inside
// the same container.
func (s ServiceSpec) ProbeURL() string {
	host := s.Host
	if host == "0.0.0.0" || host == "::" || host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(host, strconv.Itoa(s.Port)), s.HealthPath)
}

// ValidateServiceSpec validates a defaults-resolved spec.
func ValidateServiceSpec(spec ServiceSpec) error {
	if len(spec.Command) == 0 {
		return errors.NewValidationError("service command is required", nil)
	}
	if spec.Port <= 0 || spec.Port > 65535 {
		return errors.NewValidationError("service port must be between 1 and 65535", nil)
	}
	if !strings.HasPrefix(spec.HealthPath, "/") {
		return errors.NewValidationError("health path must start with '/': "+spec.HealthPath, nil)
	}
	return nil
}

// ServiceHandle identifies one launched service process. A handle is created
// exactly once per successful Start and remains valid until the process
// reaches terminated.
type ServiceHandle struct {
	// ID uniquely identifies this launch.
	ID string

	// PID of the service process.
	PID int

	StartTime time.Time

	// ListenAddress the service was configured to bind.
	ListenAddress string

	// ProbeURL the supervisor probes for liveness.
	ProbeURL string

	process *os.Process

	mu        sync.Mutex
	exitState *os.ProcessState
	waitErr   error

	// exitCh is closed once the process has exited, from any cause.
	exitCh chan struct{}
}

// Exited is closed once the service process has exited.
func (h *ServiceHandle) Exited() <-chan struct{} {
	return h.exitCh
}

func (h *ServiceHandle) hasExited() bool {
	select {
	case <-h.exitCh:
		return true
	default:
		return false
	}
}

// ExitResult reports how the process exited. Valid only after Exited is
// closed.
func (h *ServiceHandle) ExitResult() (*os.ProcessState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitState, h.waitErr
}

func (h *ServiceHandle) setExitResult(state *os.ProcessState, err error) {
	h.mu.Lock()
	h.exitState = state
	h.waitErr = err
	h.mu.Unlock()
}

// exitReason renders the exit for logs and termination events.
func (h *ServiceHandle) exitReason() string {
	state, err := h.ExitResult()
	if err != nil {
		return fmt.Sprintf("process wait failed: %v", err)
	}
	if state == nil {
		return "process exited"
	}
	return fmt.Sprintf("process exited: %v", state)
}
