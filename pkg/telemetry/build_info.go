// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	buildInfoMetricName = "kestrel_build_info"
	buildInfoHelp       = "Build metadata of the running kestrel binary. Always 1."
)

// newBuildInfo returns the kestrel_build_info info-style metric.
// It is set to 1 with the labels version and goversion.
// An empty version is reported as "dev".
func newBuildInfo(version string) prometheus.Collector {
	if version == "" {
		version = "dev"
	}
	info := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: buildInfoMetricName,
			Help: buildInfoHelp,
		},
		[]string{"version", "goversion"},
	)
	info.WithLabelValues(version, runtime.Version()).Set(1)
	return info
}
