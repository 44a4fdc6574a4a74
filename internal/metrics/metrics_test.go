package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserverCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheus("test", reg)
	require.NoError(t, err)

	o.Recomputed("goal", false)
	o.Recomputed("goal", true)
	o.Recomputed("goal", true)
	o.NotificationsCreated("issue-comment", 2)
	o.NotificationsHealed("issue-comment", 1)
	o.NotificationsHealed("issue-comment", 0)
	o.StatusTransition("planned", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(o.recomputes.WithLabelValues("goal", "updated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.recomputes.WithLabelValues("goal", "skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.created.WithLabelValues("issue-comment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.healed.WithLabelValues("issue-comment")))
	assert.Equal(t, 1, testutil.CollectAndCount(o.statusElapsed))
}

func TestNewPrometheusReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheus("test", reg)
	require.NoError(t, err)
	second, err := NewPrometheus("test", reg)
	require.NoError(t, err)

	first.NotificationsCreated("goal-comment", 1)
	second.NotificationsCreated("goal-comment", 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(second.created.WithLabelValues("goal-comment")))
}

func TestNilAndNopObserversAreSafe(t *testing.T) {
	var o *PrometheusObserver
	o.Recomputed("goal", false)
	o.StatusTransition("done", time.Minute)
	Nop().NotificationsHealed("x", 3)
}
