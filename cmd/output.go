// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/netip"

	"github.com/telekom/kestrel/internal/packet"
	"github.com/telekom/kestrel/internal/ping"
	"github.com/telekom/kestrel/internal/traceroute"
	"github.com/telekom/kestrel/pkg/config"
	"gopkg.in/yaml.v3"
)

// encode writes v as a JSON or YAML document.
func encode(w io.Writer, format config.Output, v any) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// pingPrinter renders a ping run line by line.
type pingPrinter struct {
	w           io.Writer
	payloadSize int
}

func (p *pingPrinter) start(target string, addr netip.Addr) {
	fmt.Fprintf(p.w, "PING %s (%s): %d(%d) data bytes\n", target, addr, p.payloadSize, p.payloadSize+packet.HeaderLen)
}

func (p *pingPrinter) event(e ping.Event) {
	if e.Result.TimedOut {
		fmt.Fprintln(p.w, "Request timed out.")
		return
	}
	fmt.Fprintf(p.w, "%d bytes from %s: icmp_seq=%d ttl=%d time=%.2f ms\n",
		e.Bytes(), e.Result.Reply.Source, e.Seq, e.Result.Reply.TTL, e.Result.RTT)
}

func (p *pingPrinter) summary(s ping.Statistics) {
	loss, _ := s.Loss()
	fmt.Fprintf(p.w, "\n--- %s ping statistics ---\n", s.Target)
	fmt.Fprintf(p.w, "%d packets transmitted, %d packets received, %.1f%% packet loss\n", s.Sent, s.Received, loss)
	if s.Received > 0 {
		fmt.Fprintf(p.w, "round-trip min/avg/max/stddev = %.3f/%.3f/%.3f/%.3f ms\n", s.Min, s.Mean(), s.Max, s.StdDev())
	}
}

// tracePrinter renders a traceroute run hop by hop.
type tracePrinter struct {
	w    io.Writer
	opts traceroute.Options
	// loss appends the share of unanswered probes to every hop.
	loss bool
}

func (p *tracePrinter) start(target string, addr netip.Addr) {
	fmt.Fprintf(p.w, "traceroute to %s (%s), %d hops max, %d byte packets\n",
		target, addr, p.opts.MaxHops, p.opts.PayloadSize+packet.HeaderLen)
}

func (p *tracePrinter) hop(h traceroute.Hop) {
	if p.loss {
		fmt.Fprintf(p.w, "%s (%.1f%% loss)\n", h, h.Loss())
		return
	}
	fmt.Fprintln(p.w, h)
}
