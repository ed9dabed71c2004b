package process

import (
	"context"
	"io"
	"runtime"
	"testing"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewLogger("test: ", logging.LogFuncs{})
}

// echoCommand returns an OS-appropriate command that prints message and exits.
func echoCommand(message string) []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/c", "echo " + message}
	}
	return []string{"/bin/sh", "-c", "echo " + message}
}

// printEnvCommand returns an OS-appropriate command that prints the value of
// the given environment variable and exits.
func printEnvCommand(name string) []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/c", "echo %" + name + "%"}
	}
	return []string{"/bin/sh", "-c", "echo $" + name}
}

func TestNewExecuteCmd_Success(t *testing.T) {
	execute := NewExecuteCmd(ExecutionConfig{
		Command: echoCommand("ready"),
	}, "test-service", testLogger())

	proc, stdout, err := execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, proc)
	require.NotNil(t, stdout)
	assert.Greater(t, proc.Pid, 0)

	output, err := io.ReadAll(stdout)
	require.NoError(t, err)
	assert.Contains(t, string(output), "ready")

	state, err := proc.Wait()
	require.NoError(t, err)
	assert.True(t, state.Success())
}

func TestNewExecuteCmd_EnvironmentOverride(t *testing.T) {
	execute := NewExecuteCmd(ExecutionConfig{
		Command:     printEnvCommand("APP_GREETING"),
		Environment: map[string]string{"APP_GREETING": "hello-from-warden"},
	}, "test-service", testLogger())

	proc, stdout, err := execute(context.Background())
	require.NoError(t, err)

	output, err := io.ReadAll(stdout)
	require.NoError(t, err)
	assert.Contains(t, string(output), "hello-from-warden")

	_, err = proc.Wait()
	require.NoError(t, err)
}

func TestNewExecuteCmd_WorkingDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	var command []string
	if runtime.GOOS == "windows" {
		command = []string{"cmd", "/c", "cd"}
	} else {
		command = []string{"/bin/sh", "-c", "pwd"}
	}

	execute := NewExecuteCmd(ExecutionConfig{
		Command:          command,
		WorkingDirectory: tmpDir,
	}, "test-service", testLogger())

	proc, stdout, err := execute(context.Background())
	require.NoError(t, err)

	output, err := io.ReadAll(stdout)
	require.NoError(t, err)
	assert.Contains(t, string(output), tmpDir)

	_, err = proc.Wait()
	require.NoError(t, err)
}

func TestNewExecuteCmd_ExecutableNotFound(t *testing.T) {
	execute := NewExecuteCmd(ExecutionConfig{
		Command: []string{"no-such-binary-anywhere-on-path"},
	}, "test-service", testLogger())

	proc, stdout, err := execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsLaunchError(err))
	assert.Nil(t, proc)
	assert.Nil(t, stdout)
}

func TestNewExecuteCmd_NilContext(t *testing.T) {
	execute := NewExecuteCmd(ExecutionConfig{
		Command: echoCommand("unused"),
	}, "test-service", testLogger())

	_, _, err := execute(nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestNewExecuteCmd_InvalidConfig(t *testing.T) {
	execute := NewExecuteCmd(ExecutionConfig{}, "test-service", testLogger())

	_, _, err := execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
