// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package ping

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/telekom/kestrel/internal/probe"
)

// metrics defines the metric collectors of a ping session
type metrics struct {
	rtt      *prometheus.HistogramVec
	sent     *prometheus.CounterVec
	received *prometheus.CounterVec
	loss     *prometheus.GaugeVec
}

// newMetrics initializes metric collectors of a ping session
func newMetrics() metrics {
	return metrics{
		rtt: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kestrel_ping_rtt_seconds",
				Help:    "Histogram of echo round-trip times in seconds.",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"target"},
		),
		sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_ping_requests_sent_total",
				Help: "Total number of echo requests sent to the target.",
			},
			[]string{"target"},
		),
		received: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_ping_replies_received_total",
				Help: "Total number of matching echo replies received from the target.",
			},
			[]string{"target"},
		),
		loss: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kestrel_ping_loss_ratio",
				Help: "Share of unanswered echo requests of the current run.",
			},
			[]string{"target"},
		),
	}
}

// List returns all metric collectors
func (m *metrics) List() []prometheus.Collector {
	return []prometheus.Collector{
		m.rtt,
		m.sent,
		m.received,
		m.loss,
	}
}

// Sent counts one transmitted request
func (m *metrics) Sent(target string) {
	m.sent.WithLabelValues(target).Inc()
}

// Observe records the outcome of one probe and the loss of the run so far
func (m *metrics) Observe(target string, res probe.Result, stats Statistics) {
	if res.Success() {
		m.received.WithLabelValues(target).Inc()
		m.rtt.WithLabelValues(target).Observe(res.Duration().Seconds())
	}
	if loss, ok := stats.Loss(); ok {
		m.loss.WithLabelValues(target).Set(loss / 100)
	}
}

