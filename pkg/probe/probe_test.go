package probe

import (
	"testing"

	"github.com/app-tools/appwarden/pkg/errors"
	"github.com/app-tools/appwarden/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewLogger("test: ", logging.LogFuncs{})
}

func newTestProber(t *testing.T, config Config) Prober {
	t.Helper()

	prober, err := New(config, "test-service", testLogger())
	require.NoError(t, err)
	return prober
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		shouldErr bool
	}{
		{
			name: "http_prober",
			config: Config{
				Type: TypeHTTP,
				HTTP: HTTPConfig{URL: "http://127.0.0.1:8501/_stcore/health"},
			},
			shouldErr: false,
		},
		{
			name: "grpc_prober",
			config: Config{
				Type: TypeGRPC,
				GRPC: GRPCConfig{Address: "127.0.0.1:50051"},
			},
			shouldErr: false,
		},
		{
			name: "tcp_prober",
			config: Config{
				Type: TypeTCP,
				TCP:  TCPConfig{Address: "127.0.0.1", Port: 8501},
			},
			shouldErr: false,
		},
		{
			name: "exec_prober",
			config: Config{
				Type: TypeExec,
				Exec: ExecConfig{Command: "health-check.sh"},
			},
			shouldErr: false,
		},
		{
			name: "process_prober",
			config: Config{
				Type:    TypeProcess,
				Process: ProcessConfig{PID: 1234},
			},
			shouldErr: false,
		},
		{
			name:      "unsupported_type",
			config:    Config{Type: Type("carrier-pigeon")},
			shouldErr: true,
		},
		{
			name:      "empty_type",
			config:    Config{},
			shouldErr: true,
		},
		{
			name: "invalid_http_config",
			config: Config{
				Type: TypeHTTP,
			},
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober, err := New(tt.config, "test-service", testLogger())

			if tt.shouldErr {
				assert.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
				assert.Nil(t, prober)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, prober)
			}
		})
	}
}
