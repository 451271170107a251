// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"errors"
	"fmt"
	"math"
	"net/netip"
	"strings"
	"time"

	"github.com/telekom/kestrel/internal/packet"
	"github.com/telekom/kestrel/internal/probe"
)

const (
	// DefaultMaxHops is the highest TTL probed.
	DefaultMaxHops = 64
	// DefaultQueries is the number of probes per hop.
	DefaultQueries = 3
	// DefaultTimeout is the time to wait for each probe's answer.
	DefaultTimeout = time.Second
	// DefaultPayloadSize is the number of payload bytes per echo request.
	DefaultPayloadSize = 44
)

// Options contains the configuration of a traceroute [Session].
type Options struct {
	// MaxHops is the maximum TTL to use for the traceroute.
	MaxHops int `json:"maxHops" yaml:"maxHops" mapstructure:"maxHops"`
	// Queries is the number of probes sent per hop.
	Queries int `json:"queries" yaml:"queries" mapstructure:"queries"`
	// Timeout is the timeout for each probe.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	// PayloadSize is the number of payload bytes after the ICMP header.
	PayloadSize int `json:"payloadSize" yaml:"payloadSize" mapstructure:"payloadSize"`
	// Numeric disables reverse DNS lookups of hop addresses.
	Numeric bool `json:"numeric" yaml:"numeric" mapstructure:"numeric"`
}

// DefaultOptions returns the options of a classic ICMP traceroute.
func DefaultOptions() Options {
	return Options{
		MaxHops:     DefaultMaxHops,
		Queries:     DefaultQueries,
		Timeout:     DefaultTimeout,
		PayloadSize: DefaultPayloadSize,
	}
}

// Validate checks the options and reports all violations at once.
func (o Options) Validate() error {
	var errs []error
	if o.MaxHops < 1 || o.MaxHops > math.MaxUint8 {
		errs = append(errs, fmt.Errorf("%w: max hops %d out of range [1, 255]", ErrInvalidOptions, o.MaxHops))
	}
	if o.Queries < 1 {
		errs = append(errs, fmt.Errorf("%w: queries must be greater than 0", ErrInvalidOptions))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be greater than 0", ErrInvalidOptions))
	}
	if o.PayloadSize < 0 {
		errs = append(errs, fmt.Errorf("%w: payload size must not be negative", ErrInvalidOptions))
	}
	return errors.Join(errs...)
}

// Result is the path to one target.
type Result struct {
	// Target is the host as given by the caller.
	Target string `json:"target" yaml:"target"`
	// Address is the resolved address of the target.
	Address netip.Addr `json:"address" yaml:"address"`
	// MaxHops is the highest TTL the sweep was allowed to use.
	MaxHops int `json:"maxHops" yaml:"maxHops"`
	// PacketSize is the size of each echo request without IP header.
	PacketSize int `json:"packetSize" yaml:"packetSize"`
	// Hops holds one entry per probed TTL in ascending order.
	Hops []Hop `json:"hops" yaml:"hops"`
}

// Reached reports whether the destination answered at the last hop.
func (r Result) Reached() bool {
	return len(r.Hops) > 0 && r.Hops[len(r.Hops)-1].Reached
}

// Probe is the outcome of a single probe of a [Hop].
type Probe struct {
	// Result is the reply or timeout of the probe.
	Result probe.Result `json:"result" yaml:"result"`
	// Name is the reverse DNS name of the responder, its numeric address
	// if it has none. It is empty for timeouts and in numeric mode.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

func (p Probe) String() string {
	if p.Result.TimedOut {
		return "*"
	}
	return fmt.Sprintf("%.3f ms", p.Result.RTT)
}

// Hop is the outcome of all probes sent with one TTL.
type Hop struct {
	// TTL is the time-to-live the probes were sent with.
	TTL int `json:"ttl" yaml:"ttl"`
	// Probes holds the outcome of every probe in sending order.
	Probes []Probe `json:"probes" yaml:"probes"`
	// Addresses are the distinct responders in order of their first answer.
	Addresses []netip.Addr `json:"addresses" yaml:"addresses"`
	// Reached is true if any probe was answered by the destination address.
	Reached bool `json:"reached" yaml:"reached"`
}

// Answered returns the number of probes that received a reply.
func (h Hop) Answered() int {
	n := 0
	for _, p := range h.Probes {
		if p.Result.Success() {
			n++
		}
	}
	return n
}

// Loss returns the share of unanswered probes in percent.
func (h Hop) Loss() float64 {
	if len(h.Probes) == 0 {
		return 0
	}
	return 100 * float64(len(h.Probes)-h.Answered()) / float64(len(h.Probes))
}

// String renders the hop as a traceroute line: the TTL, the last responder
// and the round-trip time or "*" of every probe.
func (h Hop) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%2d", h.TTL)

	if last, ok := h.lastAnswer(); ok {
		if last.Name != "" {
			fmt.Fprintf(&b, "  %s (%s)", last.Name, last.Result.Reply.Source)
		} else {
			fmt.Fprintf(&b, "  %s", last.Result.Reply.Source)
		}
	}

	for _, p := range h.Probes {
		b.WriteString("  ")
		b.WriteString(p.String())
	}
	return b.String()
}

// lastAnswer returns the last probe that received a reply.
func (h Hop) lastAnswer() (Probe, bool) {
	for i := len(h.Probes) - 1; i >= 0; i-- {
		if h.Probes[i].Result.Success() {
			return h.Probes[i], true
		}
	}
	return Probe{}, false
}

// ReportFunc receives every [Hop] as soon as all of its probes are done.
type ReportFunc func(Hop)

// StartFunc receives the target and its resolved address before probing starts.
type StartFunc func(target string, addr netip.Addr)

// packetSize returns the size of an echo request with the given payload.
func packetSize(payloadSize int) int {
	return payloadSize + packet.HeaderLen
}
