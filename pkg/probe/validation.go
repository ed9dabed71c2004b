package probe

import "github.com/app-tools/appwarden/pkg/errors"

// ValidateConfig validates probe configuration
func ValidateConfig(config Config) error {
	if config.Timeout < 0 {
		return errors.NewValidationError("probe timeout cannot be negative", nil)
	}

	switch config.Type {
	case TypeHTTP:
		if config.HTTP.URL == "" {
			return errors.NewValidationError("URL is required for HTTP probe", nil)
		}

	case TypeGRPC:
		if config.GRPC.Address == "" {
			return errors.NewValidationError("address is required for gRPC probe", nil)
		}

	case TypeTCP:
		if config.TCP.Address == "" {
			return errors.NewValidationError("address is required for TCP probe", nil)
		}
		if config.TCP.Port <= 0 || config.TCP.Port > 65535 {
			return errors.NewValidationError("TCP port must be between 1 and 65535", nil)
		}

	case TypeExec:
		if config.Exec.Command == "" {
			return errors.NewValidationError("command is required for exec probe", nil)
		}

	case TypeProcess:
		if config.Process.PID <= 0 {
			return errors.NewValidationError("PID must be positive for process probe", nil)
		}

	default:
		return errors.NewValidationError("unsupported probe type: "+string(config.Type), nil)
	}

	return nil
}
