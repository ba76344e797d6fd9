/*
Copyright 2018 the Velero contributors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerMetrics contains Prometheus metrics for the restore server.
type ServerMetrics struct {
	metrics map[string]prometheus.Collector
}

const (
	metricNamespace = "gitops_restore"

	restoreAttemptTotal          = "restore_attempt_total"
	restoreSuccessTotal          = "restore_success_total"
	restoreFailedTotal           = "restore_failed_total"
	restoreValidationFailedTotal = "restore_validation_failed_total"
	restoreDurationSeconds       = "restore_duration_seconds"
	restorePhaseDurationSeconds  = "restore_phase_duration_seconds"
	restoresActive               = "restores_active"
	restoreResourcesTotal        = "restore_resources_total"
	gitopsSyncTimeoutTotal       = "gitops_sync_timeout_total"
	apiRequestTotal              = "api_request_total"
	apiRequestDurationSeconds    = "api_request_duration_seconds"

	// Labels
	scenarioLabel = "scenario"
	phaseLabel    = "phase"
	routeLabel    = "route"
	methodLabel   = "method"
	codeLabel     = "code"

	secondsInMinute = 60.0
)

// NewServerMetrics returns new ServerMetrics
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		metrics: map[string]prometheus.Collector{
			restoreAttemptTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      restoreAttemptTotal,
					Help:      "Total number of attempted restores",
				},
				[]string{scenarioLabel},
			),
			restoreSuccessTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      restoreSuccessTotal,
					Help:      "Total number of successful restores",
				},
				[]string{scenarioLabel},
			),
			restoreFailedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      restoreFailedTotal,
					Help:      "Total number of failed restores, by the phase they failed in",
				},
				[]string{scenarioLabel, phaseLabel},
			),
			restoreValidationFailedTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      restoreValidationFailedTotal,
					Help:      "Total number of restores that failed validations",
				},
				[]string{scenarioLabel},
			),
			restoreDurationSeconds: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricNamespace,
					Name:      restoreDurationSeconds,
					Help:      "Time taken to complete a restore, in seconds",
					Buckets: []float64{
						toSeconds(1 * time.Minute),
						toSeconds(5 * time.Minute),
						toSeconds(10 * time.Minute),
						toSeconds(30 * time.Minute),
						toSeconds(1 * time.Hour),
						toSeconds(2 * time.Hour),
						toSeconds(4 * time.Hour),
					},
				},
				[]string{scenarioLabel},
			),
			restorePhaseDurationSeconds: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricNamespace,
					Name:      restorePhaseDurationSeconds,
					Help:      "Time spent in each restore phase, in seconds",
					Buckets:   []float64{1, 5, 15, 30, secondsInMinute, 5 * secondsInMinute, 15 * secondsInMinute},
				},
				[]string{phaseLabel},
			),
			restoresActive: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: metricNamespace,
					Name:      restoresActive,
					Help:      "Current number of restores in progress",
				},
			),
			restoreResourcesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      restoreResourcesTotal,
					Help:      "Total number of resources written to the GitOps repository",
				},
				[]string{scenarioLabel},
			),
			gitopsSyncTimeoutTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      gitopsSyncTimeoutTotal,
					Help:      "Total number of restores whose GitOps sync did not settle in time",
				},
				[]string{scenarioLabel},
			),
			apiRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricNamespace,
					Name:      apiRequestTotal,
					Help:      "Total number of API requests",
				},
				[]string{routeLabel, methodLabel, codeLabel},
			),
			apiRequestDurationSeconds: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricNamespace,
					Name:      apiRequestDurationSeconds,
					Help:      "Time taken to serve API requests, in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{routeLabel},
			),
		},
	}
}

// RegisterAllMetrics registers all prometheus metrics.
func (m *ServerMetrics) RegisterAllMetrics() {
	for _, pm := range m.metrics {
		prometheus.MustRegister(pm)
	}
}

// InitScenario initializes counter metrics of a DR scenario.
func (m *ServerMetrics) InitScenario(scenario string) {
	for _, name := range []string{restoreAttemptTotal, restoreSuccessTotal, restoreValidationFailedTotal, restoreResourcesTotal, gitopsSyncTimeoutTotal} {
		if c, ok := m.metrics[name].(*prometheus.CounterVec); ok {
			c.WithLabelValues(scenario).Add(0)
		}
	}
}

// toSeconds translates a time.Duration value into a float64
// representing the number of seconds in that duration.
func toSeconds(d time.Duration) float64 {
	return float64(d / time.Second)
}

// RegisterRestoreAttempt records an attempt to restore a backup.
func (m *ServerMetrics) RegisterRestoreAttempt(scenario string) {
	if c, ok := m.metrics[restoreAttemptTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(scenario).Inc()
	}
}

// RegisterRestoreSuccess records a successful completion of a restore.
func (m *ServerMetrics) RegisterRestoreSuccess(scenario string) {
	if c, ok := m.metrics[restoreSuccessTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(scenario).Inc()
	}
}

// RegisterRestoreFailed records a restore that failed in the given phase.
func (m *ServerMetrics) RegisterRestoreFailed(scenario, phase string) {
	if c, ok := m.metrics[restoreFailedTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(scenario, phase).Inc()
	}
}

// RegisterRestoreValidationFailed records a restore that failed validation.
func (m *ServerMetrics) RegisterRestoreValidationFailed(scenario string) {
	if c, ok := m.metrics[restoreValidationFailedTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(scenario).Inc()
	}
}

// RegisterRestoreDuration records the duration of a finished restore.
func (m *ServerMetrics) RegisterRestoreDuration(scenario string, seconds float64) {
	if h, ok := m.metrics[restoreDurationSeconds].(*prometheus.HistogramVec); ok {
		h.WithLabelValues(scenario).Observe(seconds)
	}
}

// ObservePhaseDuration records the time a restore spent in a phase.
func (m *ServerMetrics) ObservePhaseDuration(phase string, seconds float64) {
	if h, ok := m.metrics[restorePhaseDurationSeconds].(*prometheus.HistogramVec); ok {
		h.WithLabelValues(phase).Observe(seconds)
	}
}

// SetActiveRestores records the number of restores in progress.
func (m *ServerMetrics) SetActiveRestores(n int) {
	if g, ok := m.metrics[restoresActive].(prometheus.Gauge); ok {
		g.Set(float64(n))
	}
}

// RegisterResourcesRestored adds to the number of restored resources.
func (m *ServerMetrics) RegisterResourcesRestored(scenario string, n int) {
	if c, ok := m.metrics[restoreResourcesTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(scenario).Add(float64(n))
	}
}

// RegisterSyncTimeout records a GitOps sync that did not settle in time.
func (m *ServerMetrics) RegisterSyncTimeout(scenario string) {
	if c, ok := m.metrics[gitopsSyncTimeoutTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(scenario).Inc()
	}
}

// RegisterAPIRequest records a served API request.
func (m *ServerMetrics) RegisterAPIRequest(route, method string, code int, duration time.Duration) {
	if c, ok := m.metrics[apiRequestTotal].(*prometheus.CounterVec); ok {
		c.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	}
	if h, ok := m.metrics[apiRequestDurationSeconds].(*prometheus.HistogramVec); ok {
		h.WithLabelValues(route).Observe(duration.Seconds())
	}
}
