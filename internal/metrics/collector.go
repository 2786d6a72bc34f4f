// Package metrics exposes Prometheus collectors for the engine. All
// metrics live under the "engine" namespace.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records dispatch, retry, cache and workflow metrics. It
// satisfies the middleware.CallMetrics interface.
type Collector struct {
	callsTotal     *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	retriesTotal   *prometheus.CounterVec
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	plansTotal     *prometheus.CounterVec
	workflowsTotal *prometheus.CounterVec
	inFlight       prometheus.Gauge
	capRejections  prometheus.Counter
}

// NewCollector registers the engine metrics with reg. A nil reg falls
// back to the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "function_calls_total",
			Help:      "Total function calls by function, domain and status.",
		}, []string{"function", "domain", "status"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "engine",
			Name:      "function_call_duration_seconds",
			Help:      "Function call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function", "domain"}),
		retriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "function_retries_total",
			Help:      "Total retry attempts by function.",
		}, []string{"function"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "result_cache_hits_total",
			Help:      "Result cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "result_cache_misses_total",
			Help:      "Result cache misses.",
		}),
		plansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "execution_plans_total",
			Help:      "Execution plans by mode and status.",
		}, []string{"mode", "status"}),
		workflowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "workflow_executions_total",
			Help:      "Workflow executions by workflow and status.",
		}, []string{"workflow", "status"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "engine",
			Name:      "calls_in_flight",
			Help:      "Function calls currently executing.",
		}),
		capRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "engine",
			Name:      "concurrency_cap_rejections_total",
			Help:      "Calls rejected because the concurrency cap was reached.",
		}),
	}
}

// ObserveCall implements middleware.CallMetrics.
func (c *Collector) ObserveCall(function, domain string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.callsTotal.WithLabelValues(function, domain, status).Inc()
	c.callDuration.WithLabelValues(function, domain).Observe(duration.Seconds())
}

// ObserveRetry counts one retry attempt for a function.
func (c *Collector) ObserveRetry(function string) {
	c.retriesTotal.WithLabelValues(function).Inc()
}

// ObserveCacheHit counts a result cache hit.
func (c *Collector) ObserveCacheHit() { c.cacheHits.Inc() }

// ObserveCacheMiss counts a result cache miss.
func (c *Collector) ObserveCacheMiss() { c.cacheMisses.Inc() }

// ObservePlan counts a finished execution plan.
func (c *Collector) ObservePlan(parallel, success bool) {
	mode := "sequential"
	if parallel {
		mode = "parallel"
	}
	status := "success"
	if !success {
		status = "failure"
	}
	c.plansTotal.WithLabelValues(mode, status).Inc()
}

// ObserveWorkflow counts a finished workflow execution.
func (c *Collector) ObserveWorkflow(workflowID, status string) {
	c.workflowsTotal.WithLabelValues(workflowID, status).Inc()
}

// CallStarted marks one call in flight.
func (c *Collector) CallStarted() { c.inFlight.Inc() }

// CallFinished marks one call done.
func (c *Collector) CallFinished() { c.inFlight.Dec() }

// ObserveCapRejection counts a call turned away at the concurrency cap.
func (c *Collector) ObserveCapRejection() { c.capRejections.Inc() }
