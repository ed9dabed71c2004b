package supervisor

import (
	"testing"

	"github.com/app-tools/appwarden/pkg/errors"

	"github.com/stretchr/testify/assert"
)

func TestServiceSpecDefaults(t *testing.T) {
	spec := ServiceSpec{Command: []string{"streamlit", "run", "app.py"}}.withDefaults()

	assert.Equal(t, "service", spec.Name)
	assert.Equal(t, "0.0.0.0", spec.Host)
	assert.Equal(t, 8501, spec.Port)
	assert.Equal(t, "/_stcore/health", spec.HealthPath)
	assert.Equal(t, "0.0.0.0:8501", spec.ListenAddress())
}

func TestServiceSpecProbeURL(t *testing.T) {
	tests := []struct {
		name string
		spec ServiceSpec
		url  string
	}{
		{
			name: "wildcard_host_resolves_to_loopback",
			spec: ServiceSpec{Host: "0.0.0.0", Port: 8501, HealthPath: "/_stcore/health"},
			url:  "http://127.0.0.1:8501/_stcore/health",
		},
		{
			name: "ipv6_wildcard_resolves_to_loopback",
			spec: ServiceSpec{Host: "::", Port: 8501, HealthPath: "/_stcore/health"},
			url:  "http://127.0.0.1:8501/_stcore/health",
		},
		{
			name: "explicit_host_is_kept",
			spec: ServiceSpec{Host: "10.1.2.3", Port: 9000, HealthPath: "/healthz"},
			url:  "http://10.1.2.3:9000/healthz",
		},
		{
			name: "path_is_used_verbatim",
			spec: ServiceSpec{Host: "127.0.0.1", Port: 8501, HealthPath: "/api/v1/health?probe=1"},
			url:  "http://127.0.0.1:8501/api/v1/health?probe=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.url, tt.spec.ProbeURL())
		})
	}
}

func TestValidateServiceSpec(t *testing.T) {
	valid := ServiceSpec{Command: []string{"app"}}.withDefaults()

	tests := []struct {
		name      string
		mutate    func(spec *ServiceSpec)
		shouldErr bool
	}{
		{"valid_spec", func(spec *ServiceSpec) {}, false},
		{"missing_command", func(spec *ServiceSpec) { spec.Command = nil }, true},
		{"negative_port", func(spec *ServiceSpec) { spec.Port = -1 }, true},
		{"port_too_large", func(spec *ServiceSpec) { spec.Port = 70000 }, true},
		{"health_path_without_slash", func(spec *ServiceSpec) { spec.HealthPath = "health" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)

			err := ValidateServiceSpec(spec)
			if tt.shouldErr {
				assert.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
