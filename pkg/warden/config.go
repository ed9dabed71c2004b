// Package warden wires the supervisor, the probe loop, the admin endpoint,
// and the PID file into the container entrypoint process.
package warden

import (
	"os"
	"time"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/probe"
	"github.com/app-tools/appwarden/pkg/status"
	"github.com/app-tools/appwarden/pkg/supervisor"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file structure.
type Config struct {
	Warden  Options                `yaml:"warden"`
	Service supervisor.ServiceSpec `yaml:"service"`
}

// Options is warden-level configuration.
type Options struct {
	// AdminAddress serves /healthz, /status, and /metrics. Loopback by
	// default; the service's own port is the only published one.
	AdminAddress string `yaml:"admin_address,omitempty"`

	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`

	// GracePeriod between the termination signal and SIGKILL on shutdown.
	GracePeriod time.Duration `yaml:"grace_period,omitempty"`

	ProbeInterval     time.Duration `yaml:"probe_interval,omitempty"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout,omitempty"`
	ProbeInitialDelay time.Duration `yaml:"probe_initial_delay,omitempty"`

	// UnhealthyThreshold is the number of consecutive probe failures that
	// flips a healthy service to unhealthy.
	UnhealthyThreshold int `yaml:"unhealthy_threshold,omitempty"`

	// Probe overrides the liveness check. Unset means an HTTP probe
	// against the service's health endpoint.
	Probe *probe.Config `yaml:"probe,omitempty"`

	PIDFile PIDFileOptions `yaml:"pid_file,omitempty"`
}

// PIDFileOptions controls the PID file written for the supervised service.
type PIDFileOptions struct {
	Enabled bool `yaml:"enabled,omitempty"`

	// Directory overrides the platform default location.
	Directory string `yaml:"directory,omitempty"`
}

// LoadConfigFromFile loads warden configuration from a YAML file.
func LoadConfigFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	return &config, nil
}

// setConfigDefaults applies default values to configuration.
func setConfigDefaults(config *Config) {
	if config.Warden.AdminAddress == "" {
		config.Warden.AdminAddress = status.DefaultAddress
	}
	if config.Warden.LogLevel == "" {
		config.Warden.LogLevel = "info"
	}
	if config.Warden.LogFormat == "" {
		config.Warden.LogFormat = "console"
	}
	if config.Warden.GracePeriod == 0 {
		config.Warden.GracePeriod = supervisor.DefaultGracePeriod
	}
	if config.Warden.ProbeInterval == 0 {
		config.Warden.ProbeInterval = supervisor.DefaultProbeInterval
	}
	if config.Warden.ProbeTimeout == 0 {
		config.Warden.ProbeTimeout = supervisor.DefaultProbeTimeout
	}
	if config.Warden.UnhealthyThreshold == 0 {
		config.Warden.UnhealthyThreshold = supervisor.DefaultUnhealthyThreshold
	}

	if config.Service.Name == "" {
		config.Service.Name = "service"
	}
	if config.Service.Host == "" {
		config.Service.Host = supervisor.DefaultHost
	}
	if config.Service.Port == 0 {
		config.Service.Port = supervisor.DefaultPort
	}
	if config.Service.HealthPath == "" {
		config.Service.HealthPath = supervisor.DefaultHealthPath
	}
}

// ValidateConfig validates the entire configuration structure.
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if err := validateWardenOptions(&config.Warden); err != nil {
		return errors.NewValidationError("invalid warden configuration", err)
	}

	if err := validateServiceName(config.Service.Name); err != nil {
		return errors.NewValidationError("invalid service configuration", err)
	}
	if err := supervisor.ValidateServiceSpec(config.Service); err != nil {
		return errors.NewValidationError("invalid service configuration", err)
	}

	return nil
}

// ValidateConfigFile validates a configuration file without running it.
// Useful for configuration testing and CI pipelines.
func ValidateConfigFile(filename string) error {
	config, err := LoadConfigFromFile(filename)
	if err != nil {
		return err
	}
	return ValidateConfig(config)
}
