package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/logging"
)

// DefaultTimeout bounds a single probe attempt when the configuration does
// not say otherwise.
const DefaultTimeout = 5 * time.Second

type Type string

const (
	TypeHTTP    Type = "http"
	TypeGRPC    Type = "grpc"
	TypeTCP     Type = "tcp"
	TypeExec    Type = "exec"
	TypeProcess Type = "process"
)

type HTTPConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
	// Service selects a registered service; empty asks about the server
	// as a whole, per the gRPC health protocol.
	Service string `yaml:"service,omitempty"`
}

type TCPConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type ExecConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

type ProcessConfig struct {
	PID int `yaml:"pid"`
}

type Config struct {
	Type Type `yaml:"type"`

	// HTTP probe
	HTTP HTTPConfig `yaml:"http,omitempty"`

	// GRPC probe
	GRPC GRPCConfig `yaml:"grpc,omitempty"`

	// TCP probe
	TCP TCPConfig `yaml:"tcp,omitempty"`

	// Exec probe
	Exec ExecConfig `yaml:"exec,omitempty"`

	// Process probe
	Process ProcessConfig `yaml:"process,omitempty"`

	// Timeout bounds one probe attempt. Zero means DefaultTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Result is the outcome of a single probe attempt. A failed probe is data,
// not an error: the caller decides what consecutive failures mean.
type Result struct {
	Healthy   bool
	Message   string
	Timestamp time.Time
	Latency   time.Duration
}

// Prober performs one liveness check per call. Implementations are safe for
// repeated use from a single supervision loop.
type Prober interface {
	Check(ctx context.Context) Result
}

// New builds a Prober for the configured type. The configuration is
// validated up front so a malformed probe never reaches a supervision loop.
func New(config Config, id string, logger logging.Logger) (Prober, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, errors.NewValidationError("invalid probe configuration", err).WithContext("id", id)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch config.Type {
	case TypeHTTP:
		return &httpProber{
			config:  config.HTTP,
			timeout: timeout,
			client:  &http.Client{},
			id:      id,
			logger:  logger,
		}, nil
	case TypeGRPC:
		return &grpcProber{
			config:  config.GRPC,
			timeout: timeout,
			id:      id,
			logger:  logger,
		}, nil
	case TypeTCP:
		return &tcpProber{
			config:  config.TCP,
			timeout: timeout,
			id:      id,
			logger:  logger,
		}, nil
	case TypeExec:
		return &execProber{
			config:  config.Exec,
			timeout: timeout,
			id:      id,
			logger:  logger,
		}, nil
	case TypeProcess:
		return &processProber{
			config: config.Process,
			id:     id,
			logger: logger,
		}, nil
	default:
		return nil, errors.NewValidationError("unsupported probe type: "+string(config.Type), nil).WithContext("id", id)
	}
}

func newResult(start time.Time, healthy bool, message string) Result {
	return Result{
		Healthy:   healthy,
		Message:   message,
		Timestamp: start,
		Latency:   time.Since(start),
	}
}
