// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package ping

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/telekom/kestrel/internal/logger"
	"github.com/telekom/kestrel/internal/probe"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ping"

// Session sends sequential echo requests to one target.
type Session struct {
	prober   probe.Prober
	resolver probe.Resolver
	opts     Options
	report   ReportFunc
	start    StartFunc
	metrics  metrics
	tracer   trace.Tracer
	// newID draws the identifier shared by all requests of a run.
	newID func() uint16
}

// SessionOption customizes a [Session].
type SessionOption func(*Session)

// WithResolver replaces [net.DefaultResolver] for target lookups.
func WithResolver(r probe.Resolver) SessionOption {
	return func(s *Session) {
		s.resolver = r
	}
}

// WithReporter registers a callback receiving every probe's outcome.
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
		opts:     opts,
		report:   func(Event) {},
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

// Run resolves target and probes it until the configured count is reached,
// a probe times out or ctx is done.
//
// A resolution failure returns [probe.ErrResolution] and no statistics.
// A canceled run returns the statistics gathered so far together with ctx.Err().
func (s *Session) Run(ctx context.Context, target string) (Statistics, error) {
	ctx, span := s.tracer.Start(ctx, "ping.Run", trace.WithAttributes(
		attribute.String("ping.target", target),
		attribute.Int("ping.options.count", s.opts.Count),
		attribute.Stringer("ping.options.interval", s.opts.Interval),
		attribute.Stringer("ping.options.timeout", s.opts.Timeout),
		attribute.Int("ping.options.payload_size", s.opts.PayloadSize),
	))
	defer span.End()
	log := logger.FromContext(ctx).With("target", target)

	addr, err := probe.Resolve(ctx, s.resolver, target)
	if err != nil {
		log.DebugContext(ctx, "Failed to resolve target", "error", err)
		span.SetStatus(codes.Error, "Failed to resolve target")
		span.RecordError(err)
		return Statistics{}, err
	}
	span.SetAttributes(attribute.String("ping.address", addr.String()))

	stats := Statistics{Target: target, Address: addr, PayloadSize: s.opts.PayloadSize}
	id := s.newID()
	log.DebugContext(ctx, "Starting ping", "address", addr, "id", id, "count", s.opts.Count)
	s.start(target, addr)

	for i := 0; s.opts.Count < 0 || i < s.opts.Count; i++ {
		if i > 0 {
			if err = sleep(ctx, s.opts.Interval); err != nil {
				return s.interrupted(ctx, stats, err)
			}
		}

		seq := uint16(i) // #nosec G115 // sequence numbers wrap around
		stats.Sent++
		s.metrics.Sent(target)

		res, pErr := s.prober.Probe(ctx, probe.Request{
			Destination: addr,
			TTL:         probe.DefaultTTL,
			ID:          id,
			Seq:         seq,
			PayloadSize: s.opts.PayloadSize,
			Timeout:     s.opts.Timeout,
		})
		if pErr != nil {
			if ctx.Err() != nil {
				return s.interrupted(ctx, stats, pErr)
			}
			span.SetStatus(codes.Error, "Failed to probe target")
			span.RecordError(pErr)
			return stats, pErr
		}

		stats.record(res)
		s.metrics.Observe(target, res, stats)
		s.report(Event{Target: target, Address: addr, Seq: seq, Result: res})

		if res.TimedOut {
			// The first unanswered request ends the run.
			log.DebugContext(ctx, "Stopping after timeout", "seq", seq, "timeout", s.opts.Timeout)
			span.AddEvent("Request timed out", trace.WithAttributes(attribute.Int("ping.seq", int(seq))))
			break
		}
	}

	span.SetAttributes(
		attribute.Int("ping.sent", stats.Sent),
		attribute.Int("ping.received", stats.Received),
	)
	log.DebugContext(ctx, "Finished ping", "sent", stats.Sent, "received", stats.Received)
	return stats, nil
}

// interrupted finishes a run that was stopped from the outside.
func (s *Session) interrupted(ctx context.Context, stats Statistics, err error) (Statistics, error) {
	logger.FromContext(ctx).DebugContext(ctx, "Ping interrupted", "sent", stats.Sent, "received", stats.Received, "error", err)
	trace.SpanFromContext(ctx).AddEvent("Ping interrupted")
	return stats, ctx.Err()
}

// sleep waits for d or until ctx is done, whichever happens first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
