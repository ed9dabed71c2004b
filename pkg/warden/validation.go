package warden

import (
	"net"
	"strconv"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/probe"
)

// validateServiceName checks the name used in logs, metrics, and the PID
// file path.
func validateServiceName(name string) error {
	if name == "" {
		return errors.NewValidationError("service name cannot be empty", nil)
	}
	if len(name) > 64 {
		return errors.NewValidationError("service name cannot exceed 64 characters", nil)
	}
	for _, char := range name {
		if !isValidNameChar(char) {
			return errors.NewValidationError("service name contains invalid characters: only letters, numbers, hyphens, and underscores are allowed", nil)
		}
	}
	return nil
}

func isValidNameChar(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == '-' || char == '_'
}

func validateWardenOptions(options *Options) error {
	if err := validateNetworkAddress(options.AdminAddress); err != nil {
		return errors.NewValidationError("invalid admin address", err)
	}

	if err := validateLogLevel(options.LogLevel); err != nil {
		return err
	}
	if options.LogFormat != "console" && options.LogFormat != "json" {
		return errors.NewValidationError("invalid log format: "+options.LogFormat, nil).
			WithContext("valid_formats", "console, json")
	}

	if options.GracePeriod < 0 {
		return errors.NewValidationError("grace period cannot be negative", nil)
	}
	if options.ProbeInterval < 0 {
		return errors.NewValidationError("probe interval cannot be negative", nil)
	}
	if options.ProbeTimeout < 0 {
		return errors.NewValidationError("probe timeout cannot be negative", nil)
	}
	if options.ProbeInitialDelay < 0 {
		return errors.NewValidationError("probe initial delay cannot be negative", nil)
	}
	if options.UnhealthyThreshold < 1 {
		return errors.NewValidationError("unhealthy threshold must be at least 1", nil)
	}

	if options.Probe != nil {
		if err := validateProbeOverride(*options.Probe); err != nil {
			return err
		}
	}

	return nil
}

// validateProbeOverride checks the probe override for mistakes launch-time
// resolution cannot repair. Empty URLs, addresses, and PIDs are filled from
// the service spec at start.
func validateProbeOverride(config probe.Config) error {
	if config.Timeout < 0 {
		return errors.NewValidationError("probe timeout cannot be negative", nil)
	}

	switch config.Type {
	case "", probe.TypeHTTP, probe.TypeTCP, probe.TypeProcess:
		return nil
	case probe.TypeGRPC:
		if config.GRPC.Address == "" {
			return errors.NewValidationError("address is required for gRPC probe", nil)
		}
		return nil
	case probe.TypeExec:
		if config.Exec.Command == "" {
			return errors.NewValidationError("command is required for exec probe", nil)
		}
		return nil
	default:
		return errors.NewValidationError("unsupported probe type: "+string(config.Type), nil)
	}
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return errors.NewValidationError("invalid log level: "+level, nil).
			WithContext("valid_levels", "debug, info, warn, error")
	}
}

func validateNetworkAddress(address string) error {
	if address == "" {
		return errors.NewValidationError("network address cannot be empty", nil)
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return errors.NewValidationError("invalid network address format: "+address, err)
	}
	if host == "" {
		return errors.NewValidationError("host cannot be empty in address: "+address, nil)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.NewValidationError("invalid port in address: "+address, err)
	}
	if port <= 0 || port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535 in address: "+address, nil)
	}

	return nil
}
