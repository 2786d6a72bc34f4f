package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveCall("check_availability", "beauty", 20*time.Millisecond, true)
	c.ObserveCall("check_availability", "beauty", 20*time.Millisecond, false)
	c.ObserveRetry("check_availability")
	c.ObserveCacheHit()
	c.ObserveCacheMiss()
	c.ObservePlan(true, false)
	c.ObserveWorkflow("booking_flow", "completed")
	c.CallStarted()
	c.ObserveCapRejection()

	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.callsTotal.WithLabelValues("check_availability", "beauty", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.callsTotal.WithLabelValues("check_availability", "beauty", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.retriesTotal.WithLabelValues("check_availability")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.plansTotal.WithLabelValues("parallel", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.workflowsTotal.WithLabelValues("booking_flow", "completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.inFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.capRejections))

	c.CallFinished()
	assert.Equal(t, float64(0), testutil.ToFloat64(c.inFlight))
}
