// Package traceroute discovers the path to a host with ICMP echo requests
// of increasing TTL.
//
// A [Session] resolves its target once and sweeps the TTL from 1 up to
// [Options.MaxHops]. At every TTL it sends [Options.Queries] sequential probes
// through a [probe.Prober], each with a fresh random identifier. Routers on
// the path answer with time exceeded messages, the destination itself with an
// echo reply.
//
// The result of each TTL is a [Hop]. Unanswered probes leave a "no response"
// slot and never abort the hop. The sweep stops at the first hop where a reply
// came from the destination address, or after the last allowed TTL.
//
// Key features:
//   - Reverse DNS names for every responding router, cached per session and
//     falling back to the numeric address, or skipped entirely in numeric mode
//   - Per-hop packet loss
//   - Hops streamed to an optional [ReportFunc] while the sweep runs
//   - OpenTelemetry spans for the sweep and every hop, and Prometheus metrics
//     per target
//
// Typical usage:
//
//	s := traceroute.NewSession(probe.NewProber(helper.RetryConfig{}), traceroute.DefaultOptions())
//	res, err := s.Run(ctx, "example.com")
//	// res.Hops holds one Hop per TTL, the last one Reached if the destination answered
package traceroute
