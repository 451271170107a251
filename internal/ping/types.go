// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package ping

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"time"

	"github.com/telekom/kestrel/internal/packet"
	"github.com/telekom/kestrel/internal/probe"
)

const (
	// DefaultCount lets a session run until it is interrupted.
	DefaultCount = -1
	// DefaultInterval is the pause between two probes.
	DefaultInterval = time.Second
	// DefaultPayloadSize is the number of payload bytes per echo request.
	DefaultPayloadSize = 56
	// DefaultTimeout is the time to wait for each reply.
	DefaultTimeout = 4 * time.Second
)

// ErrInvalidOptions is returned by [Options.Validate].
var ErrInvalidOptions = errors.New("invalid ping options")

// Options configure a ping [Session].
type Options struct {
	// Count is the number of probes to send. A negative count is unbounded.
	Count int `json:"count" yaml:"count" mapstructure:"count"`
	// Interval is the pause between two consecutive probes.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	// PayloadSize is the number of payload bytes after the ICMP header.
	PayloadSize int `json:"payloadSize" yaml:"payloadSize" mapstructure:"payloadSize"`
	// Timeout is the time to wait for a single reply.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// DefaultOptions returns the options of an unbounded run with one probe per second.
func DefaultOptions() Options {
	return Options{
		Count:       DefaultCount,
		Interval:    DefaultInterval,
		PayloadSize: DefaultPayloadSize,
		Timeout:     DefaultTimeout,
	}
}

// Validate checks the options and reports all violations at once.
func (o Options) Validate() error {
	var errs []error
	if o.Count == 0 {
		errs = append(errs, fmt.Errorf("%w: count must not be 0", ErrInvalidOptions))
	}
	if o.Interval < 0 {
		errs = append(errs, fmt.Errorf("%w: interval must not be negative", ErrInvalidOptions))
	}
	if o.PayloadSize < 0 {
		errs = append(errs, fmt.Errorf("%w: payload size must not be negative", ErrInvalidOptions))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be greater than 0", ErrInvalidOptions))
	}
	return errors.Join(errs...)
}

// Event is the outcome of a single probe, delivered while the session runs.
type Event struct {
	// Target is the host as given by the caller.
	Target string `json:"target" yaml:"target"`
	// Address is the resolved address of the target.
	Address netip.Addr `json:"address" yaml:"address"`
	// Seq is the sequence number of the probe.
	Seq uint16 `json:"seq" yaml:"seq"`
	// Result is the reply or timeout of the probe.
	Result probe.Result `json:"result" yaml:"result"`
}

// Bytes returns the length of the answer's ICMP message.
func (e Event) Bytes() int {
	return e.Result.Reply.PayloadLen + packet.HeaderLen
}

// ReportFunc receives the [Event] of every probe in sequence order.
type ReportFunc func(Event)

// StartFunc receives the target and its resolved address before probing starts.
type StartFunc func(target string, addr netip.Addr)

// Statistics summarize a ping run.
type Statistics struct {
	// Target is the host as given by the caller.
	Target string `json:"target" yaml:"target"`
	// Address is the resolved address of the target.
	Address netip.Addr `json:"address" yaml:"address"`
	// PayloadSize is the number of payload bytes per request.
	PayloadSize int `json:"payloadSize" yaml:"payloadSize"`
	// Sent is the number of transmitted echo requests.
	Sent int `json:"sent" yaml:"sent"`
	// Received is the number of matching replies.
	Received int `json:"received" yaml:"received"`
	// Min, Max and Sum of the round-trip times in milliseconds.
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
	Sum float64 `json:"sum" yaml:"sum"`
	// RTTs holds the round-trip time of every reply in arrival order.
	RTTs []float64 `json:"rtts" yaml:"rtts"`
}

// record adds the outcome of one probe. Sent is counted separately
// since a request is sent before its outcome is known.
func (s *Statistics) record(res probe.Result) {
	if res.TimedOut {
		return
	}
	if s.Received == 0 || res.RTT < s.Min {
		s.Min = res.RTT
	}
	if s.Received == 0 || res.RTT > s.Max {
		s.Max = res.RTT
	}
	s.Received++
	s.Sum += res.RTT
	s.RTTs = append(s.RTTs, res.RTT)
}

// Loss returns the share of unanswered requests in percent.
// It is undefined as long as nothing was sent.
func (s Statistics) Loss() (float64, bool) {
	if s.Sent == 0 {
		return 0, false
	}
	return 100 * (1 - float64(s.Received)/float64(s.Sent)), true
}

// Mean returns the average round-trip time, 0 without replies.
func (s Statistics) Mean() float64 {
	if s.Received == 0 {
		return 0
	}
	return s.Sum / float64(s.Received)
}

// StdDev returns the sample standard deviation of the round-trip times,
// 0 with fewer than two replies.
func (s Statistics) StdDev() float64 {
	n := len(s.RTTs)
	if n < 2 {
		return 0
	}
	mean := s.Mean()
	var sq float64
	for _, rtt := range s.RTTs {
		sq += (rtt - mean) * (rtt - mean)
	}
	return math.Sqrt(sq / float64(n-1))
}

// summary is the rendered form of [Statistics] including the derived values.
type summary struct {
	Target      string     `json:"target" yaml:"target"`
	Address     netip.Addr `json:"address" yaml:"address"`
	PayloadSize int        `json:"payloadSize" yaml:"payloadSize"`
	Sent        int        `json:"sent" yaml:"sent"`
	Received    int        `json:"received" yaml:"received"`
	Loss        *float64   `json:"loss" yaml:"loss"`
	Min         float64    `json:"min" yaml:"min"`
	Mean        float64    `json:"mean" yaml:"mean"`
	Max         float64    `json:"max" yaml:"max"`
	StdDev      float64    `json:"stddev" yaml:"stddev"`
	RTTs        []float64  `json:"rtts" yaml:"rtts"`
}

func (s Statistics) summarize() summary {
	sum := summary{
		Target:      s.Target,
		Address:     s.Address,
		PayloadSize: s.PayloadSize,
		Sent:        s.Sent,
		Received:    s.Received,
		Min:         s.Min,
		Mean:        s.Mean(),
		Max:         s.Max,
		StdDev:      s.StdDev(),
		RTTs:        s.RTTs,
	}
	if loss, ok := s.Loss(); ok {
		sum.Loss = &loss
	}
	return sum
}

// MarshalJSON adds loss, mean and standard deviation to the encoded statistics.
func (s Statistics) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.summarize())
}

// MarshalYAML adds loss, mean and standard deviation to the encoded statistics.
func (s Statistics) MarshalYAML() (any, error) {
	return s.summarize(), nil
}
