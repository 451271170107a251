// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"fmt"
	"math"
	"math/rand/v2"
	"net/netip"
	"time"

	"github.com/telekom/kestrel/internal/packet"
)

// DefaultTTL is the time-to-live of probes that are not hop limited.
const DefaultTTL = 64

// NewID returns a random echo identifier.
func NewID() uint16 {
	return uint16(rand.N(math.MaxUint16 + 1)) // #nosec G404 G115 // identifiers only disambiguate concurrent senders
}

// Request describes a single probe.
type Request struct {
	// Destination is the IPv4 address the echo request is sent to.
	Destination netip.Addr
	// TTL is the outgoing time-to-live.
	TTL int
	// ID and Seq tag the echo request; a reply must carry both to match.
	ID  uint16
	Seq uint16
	// PayloadSize is the number of payload bytes after the ICMP header.
	PayloadSize int
	// Timeout bounds the total time spent waiting for the reply.
	Timeout time.Duration
}

// Validate checks if the request can be sent.
func (r Request) Validate() error {
	if !r.Destination.Is4() {
		return fmt.Errorf("%w: destination %v is not an IPv4 address", errInvalidRequest, r.Destination)
	}
	if r.TTL < 1 || r.TTL > math.MaxUint8 {
		return fmt.Errorf("%w: ttl %d out of range [1, 255]", errInvalidRequest, r.TTL)
	}
	if r.PayloadSize < 0 || r.PayloadSize > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d out of range [0, %d]", errInvalidRequest, r.PayloadSize, maxPayloadSize)
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be greater than 0", errInvalidRequest)
	}
	return nil
}

func (r Request) echo() packet.EchoRequest {
	return packet.EchoRequest{ID: r.ID, Seq: r.Seq, TTL: r.TTL, PayloadSize: r.PayloadSize}
}

// Result is the outcome of one probe. It is either a reply or a timeout.
type Result struct {
	// Reply is the matching answer; zero if the probe timed out.
	Reply packet.EchoReply `json:"reply" yaml:"reply"`
	// RTT is the round-trip time in milliseconds, rounded to microseconds.
	RTT float64 `json:"rtt" yaml:"rtt"`
	// TimedOut is true if no matching reply arrived in time.
	TimedOut bool `json:"timedOut" yaml:"timedOut"`
}

// Success reports whether a matching reply was received.
func (r Result) Success() bool {
	return !r.TimedOut
}

// Duration returns the round-trip time as a [time.Duration].
func (r Result) Duration() time.Duration {
	return time.Duration(r.RTT * float64(time.Millisecond))
}

// roundTrip converts the elapsed time to milliseconds with three decimals.
func roundTrip(d time.Duration) float64 {
	const precision = 1000
	return math.Round(float64(d)/float64(time.Millisecond)*precision) / precision
}
