// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics defines the metric collectors of a traceroute session
type metrics struct {
	hops    *prometheus.GaugeVec
	reached *prometheus.GaugeVec
	hopLoss *prometheus.GaugeVec
	hopRTT  *prometheus.HistogramVec
}

// newMetrics initializes metric collectors of a traceroute session
func newMetrics() metrics {
	return metrics{
		hops: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kestrel_traceroute_hops",
				Help: "Number of hops probed on the path to the target.",
			},
			[]string{"target"},
		),
		reached: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kestrel_traceroute_reached",
				Help: "Specifies if the target answered the traceroute.",
			},
			[]string{"target"},
		),
		hopLoss: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kestrel_traceroute_hop_loss_ratio",
				Help: "Share of unanswered probes per hop.",
			},
			[]string{"target", "ttl"},
		),
		hopRTT: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kestrel_traceroute_hop_rtt_seconds",
				Help:    "Histogram of probe round-trip times per hop in seconds.",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"target", "ttl"},
		),
	}
}

// List returns all metric collectors
func (m *metrics) List() []prometheus.Collector {
	return []prometheus.Collector{
		m.hops,
		m.reached,
		m.hopLoss,
		m.hopRTT,
	}
}

// ObserveHop records the outcome of all probes of one hop
func (m *metrics) ObserveHop(target string, hop Hop) {
	ttl := strconv.Itoa(hop.TTL)
	m.hopLoss.WithLabelValues(target, ttl).Set(hop.Loss() / 100)
	for _, p := range hop.Probes {
		if p.Result.Success() {
			m.hopRTT.WithLabelValues(target, ttl).Observe(p.Result.Duration().Seconds())
		}
	}
}

// Set sets the metrics of one finished traceroute
func (m *metrics) Set(res Result) {
	m.hops.WithLabelValues(res.Target).Set(float64(len(res.Hops)))
	reached := 0.0
	if res.Reached() {
		reached = 1
	}
	m.reached.WithLabelValues(res.Target).Set(reached)
}
