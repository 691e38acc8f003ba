// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package gate

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/playgate/playgate/internal/auth"
)

// Rejection reason constants for gate metrics.
const (
	ReasonNamePattern  = "name_pattern"
	ReasonIPLimit      = "ip_limit"
	ReasonCaseMismatch = "case_mismatch"
	ReasonStoreError   = "store_error"
)

// Rejections is the counter for players turned away at the gate.
// Use RegisterMetrics to register this with a Prometheus registry.
var Rejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "playgate_gate_rejections_total",
		Help: "Total number of connections rejected at the login gate",
	},
	[]string{"reason"},
)

// SessionResumes is the counter for same-IP session auto-reconnects.
// Use RegisterMetrics to register this with a Prometheus registry.
var SessionResumes = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "playgate_session_resumes_total",
		Help: "Total number of sessions resumed without re-authentication",
	},
)

// Timeouts is the counter for players kicked by the timeout task.
// Use RegisterMetrics to register this with a Prometheus registry.
var Timeouts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "playgate_auth_timeouts_total",
		Help: "Total number of players kicked for overrunning the auth time budget",
	},
)

// RegisterMetrics registers gate package metrics with the given Prometheus
// registry. The authenticating-accounts gauge reads the bucket live.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer, bucket *auth.Bucket) {
	reg.MustRegister(Rejections)
	reg.MustRegister(SessionResumes)
	reg.MustRegister(Timeouts)

	if bucket != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "playgate_authenticating_accounts",
				Help: "Accounts currently mid-authentication",
			},
			func() float64 { return float64(bucket.Len()) },
		))
	}
}

// RecordRejection increments the rejection counter for a reason (use the
// Reason* constants).
func RecordRejection(reason string) {
	Rejections.WithLabelValues(reason).Inc()
}

// RecordSessionResume increments the session-resume counter.
func RecordSessionResume() {
	SessionResumes.Inc()
}

// RecordTimeout increments the auth-timeout counter.
func RecordTimeout() {
	Timeouts.Inc()
}
