// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"net/netip"

	mapset "github.com/deckarep/golang-set"
	"github.com/telekom/kestrel/internal/logger"
	"github.com/telekom/kestrel/internal/probe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// hopper is responsible for probing a single TTL of a traceroute.
type hopper struct {
	prober     probe.Prober
	names      *nameCache
	otelTracer trace.Tracer
	// dst is the resolved address of the target.
	dst  netip.Addr
	opts Options
	// newID draws a fresh identifier for every probe.
	newID func() uint16
}

// run sends the configured number of probes with the given TTL, one after
// the other, and aggregates their outcome. A timed out probe leaves a
// placeholder and does not stop the remaining ones.
//
// On error the returned hop holds the probes completed before it.
func (h *hopper) run(ctx context.Context, ttl int) (Hop, error) {
	ctx, hopSpan := h.otelTracer.Start(ctx, "traceroute.hop", trace.WithAttributes(
		attribute.String("traceroute.target.address", h.dst.String()),
		attribute.Int("traceroute.target.ttl", ttl),
	))
	defer hopSpan.End()
	log := logger.FromContext(ctx).With("ttl", ttl)

	hop := Hop{TTL: ttl, Probes: make([]Probe, 0, h.opts.Queries)}
	seen := mapset.NewThreadUnsafeSet()
	for q := range h.opts.Queries {
		res, err := h.prober.Probe(ctx, probe.Request{
			Destination: h.dst,
			TTL:         ttl,
			ID:          h.newID(),
			Seq:         uint16(q), // #nosec G115 // queries are far below 2^16
			PayloadSize: h.opts.PayloadSize,
			Timeout:     h.opts.Timeout,
		})
		if err != nil {
			hopSpan.RecordError(err)
			hopSpan.SetStatus(codes.Error, "Failed to execute hop probe")
			return hop, err
		}

		p := Probe{Result: res}
		if res.Success() {
			src := res.Reply.Source
			if !h.opts.Numeric {
				p.Name = h.names.resolveName(ctx, src)
			}
			if seen.Add(src) {
				hop.Addresses = append(hop.Addresses, src)
			}
			if src == h.dst {
				hop.Reached = true
			}
			log.DebugContext(ctx, "Probe answered", "query", q, "source", src, "rtt", res.RTT)
		} else {
			log.DebugContext(ctx, "Probe timed out", "query", q)
		}
		hop.Probes = append(hop.Probes, p)
	}

	hopSpan.SetAttributes(
		attribute.Int("traceroute.target.hop.answered", hop.Answered()),
		attribute.Bool("traceroute.target.reached", hop.Reached),
		attribute.Stringer("traceroute.target.hop", hop),
	)
	return hop, nil
}
