package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/app-tools/appwarden/pkg/logging"
	"github.com/app-tools/appwarden/pkg/logstream"
	"github.com/app-tools/appwarden/pkg/metrics"
	"github.com/app-tools/appwarden/pkg/probe"
	"github.com/app-tools/appwarden/pkg/supervisor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewLogger("test: ", logging.LogFuncs{})
}

type fakeSource struct {
	status supervisor.Status
	ok     bool
}

func (f *fakeSource) Snapshot() (supervisor.Status, bool) {
	return f.status, f.ok
}

func TestHandleHealthz(t *testing.T) {
	tests := []struct {
		name     string
		source   *fakeSource
		wantCode int
	}{
		{
			name:     "healthy_service_returns_200",
			source:   &fakeSource{status: supervisor.Status{State: supervisor.StateHealthy}, ok: true},
			wantCode: http.StatusOK,
		},
		{
			name:     "starting_service_returns_503",
			source:   &fakeSource{status: supervisor.Status{State: supervisor.StateStarting}, ok: true},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "unhealthy_service_returns_503",
			source:   &fakeSource{status: supervisor.Status{State: supervisor.StateUnhealthy}, ok: true},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "terminated_service_returns_503",
			source:   &fakeSource{status: supervisor.Status{State: supervisor.StateTerminated}, ok: true},
			wantCode: http.StatusServiceUnavailable,
		},
		{
			name:     "no_service_returns_503",
			source:   &fakeSource{},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer("", tt.source, testLogger())

			recorder := httptest.NewRecorder()
			server.handleHealthz(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, recorder.Code)
		})
	}
}

func TestHandleStatus_FullDocument(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	source := &fakeSource{
		status: supervisor.Status{
			ServiceName:         "demo-app",
			State:               supervisor.StateHealthy,
			PID:                 os.Getpid(),
			StartTime:           started,
			ConsecutiveFailures: 1,
			LastProbe: &probe.Result{
				Healthy:   true,
				Message:   "HTTP probe passed: 200 OK",
				Timestamp: time.Now(),
				Latency:   12 * time.Millisecond,
			},
			Output: logstream.Stats{Lines: 42, Bytes: 2048, LastLine: time.Now()},
		},
		ok: true,
	}

	server := NewServer("", source, testLogger())

	recorder := httptest.NewRecorder()
	server.handleStatus(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var document statusDocument
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &document))

	assert.True(t, document.Supervised)
	assert.Equal(t, "demo-app", document.ServiceName)
	assert.Equal(t, "healthy", document.State)
	assert.Equal(t, os.Getpid(), document.PID)
	assert.Greater(t, document.UptimeSeconds, 59.0)
	assert.Equal(t, 1, document.ConsecutiveFailures)

	require.NotNil(t, document.LastProbe)
	assert.True(t, document.LastProbe.Healthy)
	assert.InDelta(t, 12.0, document.LastProbe.LatencyMS, 0.01)

	require.NotNil(t, document.Output)
	assert.Equal(t, int64(42), document.Output.Lines)
	assert.Equal(t, int64(2048), document.Output.Bytes)
}

func TestHandleStatus_NoService(t *testing.T) {
	server := NewServer("", &fakeSource{}, testLogger())

	recorder := httptest.NewRecorder()
	server.handleStatus(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var document statusDocument
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &document))
	assert.False(t, document.Supervised)
	assert.Empty(t, document.State)
}

func TestServerLifecycle(t *testing.T) {
	metrics.SetServiceUp("lifecycle-test", true)

	source := &fakeSource{status: supervisor.Status{State: supervisor.StateHealthy}, ok: true}
	server := NewServer("127.0.0.1:0", source, testLogger())

	require.NoError(t, server.Start())
	defer server.Shutdown(context.Background())

	response, err := http.Get(fmt.Sprintf("http://%s/healthz", server.Addr()))
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusOK, response.StatusCode)

	response, err = http.Get(fmt.Sprintf("http://%s/metrics", server.Addr()))
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusOK, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "appwarden_service_up")

	require.NoError(t, server.Shutdown(context.Background()))
}

func TestServerStart_BadAddress(t *testing.T) {
	server := NewServer("256.256.256.256:99999", &fakeSource{}, testLogger())
	assert.Error(t, server.Start())
}
