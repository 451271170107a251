// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"net"
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/telekom/kestrel/internal/logger"
	"github.com/telekom/kestrel/internal/probe"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "traceroute"

// Session sweeps the path to one target at a time.
type Session struct {
	prober   probe.Prober
	resolver probe.Resolver
	names    *nameCache
	opts     Options
	report   ReportFunc
	start    StartFunc
	metrics  metrics
	tracer   trace.Tracer
	newID    func() uint16
}

// SessionOption customizes a [Session].
type SessionOption func(*Session)

// WithResolver replaces [net.DefaultResolver] for target lookups.
func WithResolver(r probe.Resolver) SessionOption {
	return func(s *Session) {
		s.resolver = r
	}
}

// WithNameResolver replaces [net.DefaultResolver] for reverse lookups of hop addresses.
func WithNameResolver(r NameResolver) SessionOption {
	return func(s *Session) {
		s.names = newNameCache(r)
	}
}

// WithReporter registers a callback receiving every hop once it is complete.
func WithReporter(f ReportFunc) SessionOption {
	return func(s *Session) {
		s.report = f
	}
}

// WithStart registers a callback invoked once the target is resolved,
// before the first probe is sent.
func WithStart(f StartFunc) SessionOption {
	return func(s *Session) {
		s.start = f
	}
}

// NewSession returns a session sending its probes through p.
func NewSession(p probe.Prober, opts Options, sOpts ...SessionOption) *Session {
	s := &Session{
		prober:   p,
		resolver: net.DefaultResolver,
		names:    newNameCache(net.DefaultResolver),
		opts:     opts,
		report:   func(Hop) {},
		start:    func(string, netip.Addr) {},
		metrics:  newMetrics(),
		tracer:   otel.Tracer(tracerName),
		newID:    probe.NewID,
	}
	for _, o := range sOpts {
		o(s)
	}
	return s
}

// Collectors returns the prometheus collectors fed by the session.
func (s *Session) Collectors() []prometheus.Collector {
	return s.metrics.List()
}

// Run resolves target and probes one TTL after the other, starting at 1,
// until a hop is answered by the destination or [Options.MaxHops] is reached.
//
// A resolution failure returns [probe.ErrResolution] and no hops.
// A canceled run returns the hops probed so far together with ctx.Err(),
// the last one holding only the probes answered or timed out before.
func (s *Session) Run(ctx context.Context, target string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "traceroute.Run", trace.WithAttributes(
		attribute.String("traceroute.target", target),
		attribute.Int("traceroute.options.max_hops", s.opts.MaxHops),
		attribute.Int("traceroute.options.queries", s.opts.Queries),
		attribute.Stringer("traceroute.options.timeout", s.opts.Timeout),
		attribute.Bool("traceroute.options.numeric", s.opts.Numeric),
	))
	defer span.End()
	log := logger.FromContext(ctx).With("target", target)

	dst, err := probe.Resolve(ctx, s.resolver, target)
	if err != nil {
		log.DebugContext(ctx, "Failed to resolve target", "error", err)
		span.SetStatus(codes.Error, "Failed to resolve target")
		span.RecordError(err)
		return Result{}, err
	}
	span.SetAttributes(attribute.String("traceroute.address", dst.String()))

	res := Result{
		Target:     target,
		Address:    dst,
		MaxHops:    s.opts.MaxHops,
		PacketSize: packetSize(s.opts.PayloadSize),
		Hops:       make([]Hop, 0, min(s.opts.MaxHops, DefaultMaxHops)),
	}
	h := &hopper{
		prober:     s.prober,
		names:      s.names,
		otelTracer: s.tracer,
		dst:        dst,
		opts:       s.opts,
		newID:      s.newID,
	}

	log.DebugContext(ctx, "Starting traceroute", "address", dst, "maxHops", s.opts.MaxHops)
	s.start(target, dst)
	for ttl := 1; ttl <= s.opts.MaxHops; ttl++ {
		hop, hErr := h.run(ctx, ttl)
		if hErr != nil {
			if isInterrupt(hErr) && ctx.Err() != nil {
				if len(hop.Probes) > 0 {
					res.Hops = append(res.Hops, hop)
					s.report(hop)
				}
				log.DebugContext(ctx, "Traceroute interrupted", "hops", len(res.Hops), "error", hErr)
				span.AddEvent("Traceroute interrupted")
				return res, ctx.Err()
			}
			span.SetStatus(codes.Error, "Failed to probe hop")
			span.RecordError(hErr)
			return res, hErr
		}

		res.Hops = append(res.Hops, hop)
		s.metrics.ObserveHop(target, hop)
		s.report(hop)

		if hop.Reached {
			break
		}
	}

	s.metrics.Set(res)
	span.SetAttributes(
		attribute.Int("traceroute.hops", len(res.Hops)),
		attribute.Bool("traceroute.reached", res.Reached()),
	)
	logHops(ctx, res.Hops)
	return res, nil
}
