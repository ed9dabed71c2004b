package process

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/app-tools/appwarden/pkg/errors"
)

// ValidateExecutionConfig validates execution configuration
func ValidateExecutionConfig(config ExecutionConfig) error {
	if len(config.Command) == 0 {
		return errors.NewValidationError("command is required", nil)
	}

	if strings.TrimSpace(config.Command[0]) == "" {
		return errors.NewValidationError("command name cannot be empty", nil)
	}

	for key := range config.Environment {
		if key == "" || strings.Contains(key, "=") {
			return errors.NewValidationError("invalid environment variable name: "+key, nil)
		}
	}

	if config.WorkingDirectory != "" {
		if !filepath.IsAbs(config.WorkingDirectory) {
			return errors.NewValidationError("working directory must be an absolute path", nil)
		}

		if info, err := os.Stat(config.WorkingDirectory); err != nil {
			return errors.NewValidationError("working directory not accessible: "+config.WorkingDirectory, err)
		} else if !info.IsDir() {
			return errors.NewValidationError("working directory is not a directory: "+config.WorkingDirectory, nil)
		}
	}

	return nil
}
