package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProbe(t *testing.T) {
	RecordProbe("probe-test", true, 15*time.Millisecond)
	RecordProbe("probe-test", true, 20*time.Millisecond)
	RecordProbe("probe-test", false, 5*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(probesTotal.WithLabelValues("probe-test", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(probesTotal.WithLabelValues("probe-test", "failure")))
}

func TestSetLifecycleState_OneHot(t *testing.T) {
	SetLifecycleState("state-test", "starting")
	SetLifecycleState("state-test", "healthy")

	assert.Equal(t, 0.0, testutil.ToFloat64(lifecycleState.WithLabelValues("state-test", "starting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(lifecycleState.WithLabelValues("state-test", "healthy")))
	assert.Equal(t, 0.0, testutil.ToFloat64(lifecycleState.WithLabelValues("state-test", "unhealthy")))
	assert.Equal(t, 0.0, testutil.ToFloat64(lifecycleState.WithLabelValues("state-test", "terminated")))
}

func TestRecordTransition(t *testing.T) {
	RecordTransition("transition-test", "starting", "healthy")
	RecordTransition("transition-test", "healthy", "unhealthy")
	RecordTransition("transition-test", "healthy", "unhealthy")

	assert.Equal(t, 1.0, testutil.ToFloat64(stateTransitions.WithLabelValues("transition-test", "starting", "healthy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(stateTransitions.WithLabelValues("transition-test", "healthy", "unhealthy")))
}

func TestSetServiceUp(t *testing.T) {
	SetServiceUp("up-test", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(serviceUp.WithLabelValues("up-test")))

	SetServiceUp("up-test", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(serviceUp.WithLabelValues("up-test")))
}
