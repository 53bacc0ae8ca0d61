// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Directions used as metric labels.
const (
	// FromClient labels data sent by the WebSocket client.
	FromClient = "client"

	// FromServer labels data sent by the upstream server.
	FromServer = "server"
)

// Metrics holds the Prometheus collectors updated by sessions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionsTotal  prometheus.Counter
	Frames         *prometheus.CounterVec
	Bytes          *prometheus.CounterVec
	Errors         *prometheus.CounterVec
	DialDuration   prometheus.Histogram
}

// NewMetrics creates the bridge collectors and registers them with reg.
// If reg is nil the collectors are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	const namespace = "wsbridge"
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of currently bridged WebSocket connections",
		}),
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of accepted WebSocket connections",
		}),
		Frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of frames translated",
		}, []string{"direction"}),
		Bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Total number of bytes received",
		}, []string{"direction"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of session errors",
		}, []string{"condition"}),
		DialDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dial_duration_seconds",
			Help:      "Time spent connecting to the upstream server",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30},
		}),
	}
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
	m.SessionsTotal.Inc()
}

func (m *Metrics) sessionEnded() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

func (m *Metrics) frame(direction string) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(direction).Inc()
}

func (m *Metrics) bytes(direction string, n int) {
	if m == nil {
		return
	}
	m.Bytes.WithLabelValues(direction).Add(float64(n))
}

func (m *Metrics) error(err error) {
	if m == nil || err == nil {
		return
	}
	m.Errors.WithLabelValues(condition(err)).Inc()
}

func (m *Metrics) dialed(start time.Time) {
	if m == nil {
		return
	}
	m.DialDuration.Observe(time.Since(start).Seconds())
}
