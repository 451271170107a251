// Package probe sends single ICMP echo requests and waits for the matching answer.
//
// A [Prober] opens a raw ICMP endpoint per probe, sets the outgoing TTL,
// transmits one echo request and reads datagrams until a reply carrying the
// request's identifier and sequence arrives or the probe's deadline passes.
// Datagrams that are not ours are dropped without extending the deadline.
//
// Expected outcomes are reported as a [Result]: either a reply with its
// round-trip time or a timeout. Only conditions that make every further probe
// pointless are returned as errors, most notably [ErrPermission] when the
// process lacks the NET_RAW capability.
//
// Typical usage:
//
//	dst, err := probe.Resolve(ctx, net.DefaultResolver, "example.com")
//	p := probe.NewProber(helper.RetryConfig{})
//	res, err := p.Probe(ctx, probe.Request{Destination: dst, TTL: 64, ID: 1, Seq: 0, PayloadSize: 56, Timeout: time.Second})
package probe
