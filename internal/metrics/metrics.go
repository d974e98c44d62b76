// Package metrics exposes the job process's session lifecycle counters to
// Prometheus, following the Collector-plus-promhttp.Handler pattern used by
// the internal/metrics package in the raft-recovery sample.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the job process's Prometheus metrics.
type Collector struct {
	sessions   prometheus.Counter
	resets     prometheus.Counter
	callsOK    prometheus.Counter
	callsError prometheus.Counter
	jobAlive   prometheus.Gauge
	clientUp   prometheus.Gauge
}

// NewCollector builds and registers a Collector against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plantd_job_sessions_total",
			Help: "Number of sessions started by this job process.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plantd_job_resets_total",
			Help: "Number of times this job process has reset.",
		}),
		callsOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plantd_job_calls_total",
			Help: "Number of CALL requests handled, by outcome.",
			ConstLabels: prometheus.Labels{
				"outcome": "ok",
			},
		}),
		callsError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plantd_job_calls_total",
			Help: "Number of CALL requests handled, by outcome.",
			ConstLabels: prometheus.Labels{
				"outcome": "error",
			},
		}),
		jobAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plantd_job_alive",
			Help: "1 while the job process is alive, 0 once it gives up on an unacknowledged reset.",
		}),
		clientUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plantd_job_client_alive",
			Help: "1 while a client is attached to the current session.",
		}),
	}

	reg.MustRegister(c.sessions, c.resets, c.callsOK, c.callsError, c.jobAlive, c.clientUp)
	c.jobAlive.Set(1)

	return c
}

// SessionStarted records the start of a new session.
func (c *Collector) SessionStarted() { c.sessions.Inc() }

// Reset records a reset of the current session.
func (c *Collector) Reset() { c.resets.Inc() }

// CallCompleted records the outcome of a CALL dispatch.
func (c *Collector) CallCompleted(ok bool) {
	if ok {
		c.callsOK.Inc()
		return
	}
	c.callsError.Inc()
}

// SetJobAlive reflects the job_alive flag in the gauge.
func (c *Collector) SetJobAlive(alive bool) { c.jobAlive.Set(boolToFloat(alive)) }

// SetClientAlive reflects the client_alive flag in the gauge.
func (c *Collector) SetClientAlive(alive bool) { c.clientUp.Set(boolToFloat(alive)) }

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Handler returns the HTTP handler that serves the registered metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
