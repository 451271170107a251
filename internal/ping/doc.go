// Package ping measures the round-trip latency to a single host.
//
// A [Session] resolves its target once and then issues sequential ICMP echo
// requests through a [probe.Prober], all tagged with one identifier and an
// incrementing sequence number. Every reply is handed to an optional
// [ReportFunc] and accumulated into [Statistics], which are returned when the
// run ends.
//
// The run ends after [Options.Count] probes, on the first probe that times
// out, or when the context is canceled. In the latter case the statistics
// gathered so far are returned together with the context's error, so callers
// can still print a summary.
//
// Typical usage:
//
//	s := ping.NewSession(probe.NewProber(helper.RetryConfig{}), ping.DefaultOptions(),
//		ping.WithReporter(func(e ping.Event) { fmt.Println(e.Result.RTT) }))
//	stats, err := s.Run(ctx, "example.com")
package ping
