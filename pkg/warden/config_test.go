package warden

import (
	"os"
	"testing"
	"time"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/logging"
	"github.com/app-tools/appwarden/pkg/probe"
	"github.com/app-tools/appwarden/pkg/supervisor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewLogger("test: ", logging.LogFuncs{})
}

func writeConfigFile(t *testing.T, configYAML string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "wardend-*.yaml")
	require.NoError(t, err)

	_, err = tmpFile.WriteString(configYAML)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	return tmpFile.Name()
}

func TestLoadConfigFromFile(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name: "comprehensive_config",
			configYAML: `
warden:
  admin_address: "127.0.0.1:9500"
  log_level: "debug"
  log_format: "json"
  grace_period: "45s"
  probe_interval: "10s"
  probe_timeout: "2s"
  probe_initial_delay: "5s"
  unhealthy_threshold: 5
  pid_file:
    enabled: true
    directory: "/tmp/warden-test"

service:
  name: "demo-app"
  command: ["streamlit", "run", "app.py"]
  environment:
    STREAMLIT_SERVER_HEADLESS: "true"
  working_directory: "/srv/app"
  host: "0.0.0.0"
  port: 8501
  health_path: "/_stcore/health"
`,
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, "127.0.0.1:9500", config.Warden.AdminAddress)
				assert.Equal(t, "debug", config.Warden.LogLevel)
				assert.Equal(t, "json", config.Warden.LogFormat)
				assert.Equal(t, 45*time.Second, config.Warden.GracePeriod)
				assert.Equal(t, 10*time.Second, config.Warden.ProbeInterval)
				assert.Equal(t, 2*time.Second, config.Warden.ProbeTimeout)
				assert.Equal(t, 5*time.Second, config.Warden.ProbeInitialDelay)
				assert.Equal(t, 5, config.Warden.UnhealthyThreshold)
				assert.True(t, config.Warden.PIDFile.Enabled)
				assert.Equal(t, "/tmp/warden-test", config.Warden.PIDFile.Directory)

				assert.Equal(t, "demo-app", config.Service.Name)
				assert.Equal(t, []string{"streamlit", "run", "app.py"}, config.Service.Command)
				assert.Equal(t, "true", config.Service.Environment["STREAMLIT_SERVER_HEADLESS"])
				assert.Equal(t, "/srv/app", config.Service.WorkingDirectory)
				assert.Equal(t, 8501, config.Service.Port)
			},
		},
		{
			name: "minimal_config_gets_defaults",
			configYAML: `
service:
  command: ["python", "-m", "http.server"]
`,
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, "127.0.0.1:8500", config.Warden.AdminAddress)
				assert.Equal(t, "info", config.Warden.LogLevel)
				assert.Equal(t, "console", config.Warden.LogFormat)
				assert.Equal(t, supervisor.DefaultGracePeriod, config.Warden.GracePeriod)
				assert.Equal(t, supervisor.DefaultProbeInterval, config.Warden.ProbeInterval)
				assert.Equal(t, supervisor.DefaultProbeTimeout, config.Warden.ProbeTimeout)
				assert.Equal(t, supervisor.DefaultUnhealthyThreshold, config.Warden.UnhealthyThreshold)
				assert.False(t, config.Warden.PIDFile.Enabled)

				assert.Equal(t, "service", config.Service.Name)
				assert.Equal(t, "0.0.0.0", config.Service.Host)
				assert.Equal(t, 8501, config.Service.Port)
				assert.Equal(t, "/_stcore/health", config.Service.HealthPath)
			},
		},
		{
			name: "probe_override",
			configYAML: `
warden:
  probe:
    type: "tcp"
    timeout: "2s"

service:
  command: ["myapp"]
`,
			validate: func(t *testing.T, config *Config) {
				require.NotNil(t, config.Warden.Probe)
				assert.Equal(t, probe.TypeTCP, config.Warden.Probe.Type)
				assert.Equal(t, 2*time.Second, config.Warden.Probe.Timeout)
			},
		},
		{
			name: "invalid_yaml",
			configYAML: `
warden:
  admin_address: [unclosed
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename := writeConfigFile(t, tt.configYAML)

			config, err := LoadConfigFromFile(filename)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, config)
			} else {
				require.NoError(t, err)
				require.NotNil(t, config)
				if tt.validate != nil {
					tt.validate(t, config)
				}
			}
		})
	}
}

func TestLoadConfigFromFile_MissingFile(t *testing.T) {
	config, err := LoadConfigFromFile("/definitely/not/a/real/path.yaml")
	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))
	assert.Nil(t, config)
}

func validTestConfig() *Config {
	config := &Config{
		Service: supervisor.ServiceSpec{
			Name:    "demo-app",
			Command: []string{"/bin/echo", "hello"},
		},
	}
	setConfigDefaults(config)
	return config
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(config *Config)
		shouldErr bool
	}{
		{"valid_config", func(config *Config) {}, false},
		{"missing_command", func(config *Config) { config.Service.Command = nil }, true},
		{"service_name_with_path_separator", func(config *Config) { config.Service.Name = "demo/app" }, true},
		{"service_name_with_space", func(config *Config) { config.Service.Name = "demo app" }, true},
		{"admin_address_without_port", func(config *Config) { config.Warden.AdminAddress = "127.0.0.1" }, true},
		{"admin_address_bad_port", func(config *Config) { config.Warden.AdminAddress = "127.0.0.1:0" }, true},
		{"unknown_log_level", func(config *Config) { config.Warden.LogLevel = "verbose" }, true},
		{"unknown_log_format", func(config *Config) { config.Warden.LogFormat = "xml" }, true},
		{"negative_grace_period", func(config *Config) { config.Warden.GracePeriod = -time.Second }, true},
		{"negative_probe_interval", func(config *Config) { config.Warden.ProbeInterval = -time.Second }, true},
		{"zero_unhealthy_threshold", func(config *Config) { config.Warden.UnhealthyThreshold = 0 }, true},
		{"service_port_out_of_range", func(config *Config) { config.Service.Port = 70000 }, true},
		{
			name:      "probe_override_with_unknown_type",
			mutate:    func(config *Config) { config.Warden.Probe = &probe.Config{Type: "carrier-pigeon"} },
			shouldErr: true,
		},
		{
			name:      "grpc_probe_override_requires_address",
			mutate:    func(config *Config) { config.Warden.Probe = &probe.Config{Type: probe.TypeGRPC} },
			shouldErr: true,
		},
		{
			name: "http_probe_override_without_url_is_resolved_at_start",
			mutate: func(config *Config) {
				config.Warden.Probe = &probe.Config{Type: probe.TypeHTTP, Timeout: time.Second}
			},
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validTestConfig()
			tt.mutate(config)

			err := ValidateConfig(config)
			if tt.shouldErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestValidateConfigFile(t *testing.T) {
	valid := writeConfigFile(t, `
service:
  command: ["myapp", "--serve"]
`)
	assert.NoError(t, ValidateConfigFile(valid))

	invalid := writeConfigFile(t, `
warden:
  log_level: "verbose"

service:
  command: ["myapp"]
`)
	err := ValidateConfigFile(invalid)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
