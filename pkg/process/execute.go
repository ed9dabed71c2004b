package process

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/logging"
)

// ExecutionConfig describes how to launch the supervised service process.
type ExecutionConfig struct {
	// Command is the full argv, program name first. A bare program name is
	// resolved through PATH, a path is used as given.
	Command []string `yaml:"command"`

	// Environment is merged over the inherited environment. Keys present
	// here override inherited values.
	Environment map[string]string `yaml:"environment,omitempty"`

	// WorkingDirectory for the child. Empty means inherit the current one.
	WorkingDirectory string `yaml:"working_directory,omitempty"`
}

// ExecuteCmd launches the configured process and returns its handle together
// with a reader over the combined stdout+stderr stream.
type ExecuteCmd func(ctx context.Context) (*os.Process, io.ReadCloser, error)

func NewExecuteCmd(execution ExecutionConfig, id string, logger logging.Logger) ExecuteCmd {
	return func(ctx context.Context) (*os.Process, io.ReadCloser, error) {
		if ctx == nil {
			logger.Errorf("Context cannot be nil, id: %s", id)
			return nil, nil, errors.NewValidationError("context cannot be nil", nil).WithContext("id", id)
		}

		if err := ValidateExecutionConfig(execution); err != nil {
			logger.Errorf("Execution configuration validation failed, id: %s, error: %v", id, err)
			return nil, nil, errors.NewValidationError("invalid execution configuration", err).WithContext("id", id)
		}

		path, err := resolveExecutable(execution.Command[0])
		if err != nil {
			return nil, nil, errors.NewLaunchError("executable not found", err).WithContext("id", id).WithContext("command", execution.Command[0])
		}

		logger.Debugf("Executing process, id: %s, path: '%s', args: %v, working directory: '%s'",
			id, path, execution.Command[1:], execution.WorkingDirectory)

		cmd := exec.CommandContext(ctx, path, execution.Command[1:]...)
		cmd.Dir = execution.WorkingDirectory
		cmd.Env = mergedEnvironment(execution.Environment)

		// Platform-specific setup is handled in execute_unix.go or execute_windows.go
		setupProcessAttributes(cmd)

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, nil, errors.NewLaunchError("failed to create stdout pipe", err).WithContext("id", id)
		}
		cmd.Stderr = cmd.Stdout

		if err := cmd.Start(); err != nil {
			return nil, nil, errors.NewLaunchError("failed to start the process", err).WithContext("id", id).WithContext("command", execution.Command[0])
		}

		logger.Infof("Successfully executed process, id: %s, PID: %d", id, cmd.Process.Pid)

		return cmd.Process, stdout, nil
	}
}

// resolveExecutable locates the program through PATH. When an explicit path
// exists but lacks execute permission, as happens with freshly unpacked
// entrypoints, the execute bits are set and resolution is retried.
func resolveExecutable(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err == nil {
		return path, nil
	}

	if !strings.ContainsAny(name, `/\`) {
		return "", err
	}

	info, statErr := os.Stat(name)
	if statErr != nil {
		return "", err
	}
	if chmodErr := os.Chmod(name, info.Mode()|0111); chmodErr != nil {
		return "", err
	}
	return exec.LookPath(name)
}

// mergedEnvironment layers the configured variables over the inherited
// environment. Later entries win, so overrides go last.
func mergedEnvironment(overrides map[string]string) []string {
	env := os.Environ()
	if len(overrides) == 0 {
		return env
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		env = append(env, key+"="+overrides[key])
	}
	return env
}
