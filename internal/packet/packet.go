// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/net/ipv4"
)

// HeaderLen is the length of an ICMP echo header in bytes.
const HeaderLen = 8

var (
	// ErrMalformed is returned when a datagram is too short or its headers are inconsistent.
	ErrMalformed = errors.New("malformed ICMP datagram")
	// ErrUnrelated is returned for well-formed datagrams that cannot answer an echo request,
	// e.g. destination unreachable messages or our own outgoing requests on loopback.
	ErrUnrelated = errors.New("unrelated ICMP datagram")
)

// EchoRequest is an ICMP echo request before it is put on the wire.
type EchoRequest struct {
	// ID tags all requests of one sender.
	ID uint16
	// Seq is incremented per request of one sender.
	Seq uint16
	// TTL is the IP time-to-live the request is sent with.
	// It is applied on the socket, not part of the ICMP message.
	TTL int
	// PayloadSize is the number of filler bytes after the header.
	PayloadSize int
}

// Marshal returns the wire representation of the request with a valid checksum.
func (r EchoRequest) Marshal() []byte {
	size := max(r.PayloadSize, 0)
	b := make([]byte, HeaderLen+size)
	b[0] = byte(ipv4.ICMPTypeEcho)
	b[1] = 0
	binary.BigEndian.PutUint16(b[4:6], r.ID)
	binary.BigEndian.PutUint16(b[6:8], r.Seq)
	for i := range size {
		b[HeaderLen+i] = byte(i)
	}
	binary.BigEndian.PutUint16(b[2:4], Checksum(b))
	return b
}

// Checksum computes the RFC 1071 internet checksum of b.
// An odd trailing byte is padded with zero.
func Checksum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

// EchoReply is an answer to an echo request, sent either by the
// destination (echo reply) or by a router on the path (time exceeded).
type EchoReply struct {
	// Source is the address of the answering host.
	Source netip.Addr `json:"source" yaml:"source"`
	// TTL is the time-to-live left in the reply's own IP header.
	TTL int `json:"ttl" yaml:"ttl"`
	// Type is either [ipv4.ICMPTypeEchoReply] or [ipv4.ICMPTypeTimeExceeded].
	Type ipv4.ICMPType `json:"type" yaml:"type"`
	// ID and Seq identify the request this reply belongs to.
	ID  uint16 `json:"id" yaml:"id"`
	Seq uint16 `json:"seq" yaml:"seq"`
	// PayloadLen is the length of the ICMP message after its header.
	PayloadLen int `json:"payloadLen" yaml:"payloadLen"`
	// ReceivedAt is the time the datagram was read from the socket.
	ReceivedAt time.Time `json:"receivedAt" yaml:"receivedAt"`
}

// Matches reports whether the reply answers the request with the given id and sequence.
func (r EchoReply) Matches(id, seq uint16) bool {
	return r.ID == id && r.Seq == seq
}

// Parse decodes a raw IPv4 datagram carrying an ICMP message.
//
// Echo replies yield the identifier and sequence of their own header, time
// exceeded messages those of the echo request quoted in their body.
// Any other message results in [ErrUnrelated], truncated or inconsistent
// datagrams in [ErrMalformed].
func Parse(raw []byte, receivedAt time.Time) (EchoReply, error) {
	h, err := ipv4.ParseHeader(raw)
	if err != nil {
		return EchoReply{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if h.Version != ipv4.Version || h.Len < ipv4.HeaderLen {
		return EchoReply{}, fmt.Errorf("%w: ip version %d, header length %d", ErrMalformed, h.Version, h.Len)
	}
	if h.Protocol != ipv4.ICMPTypeEcho.Protocol() {
		return EchoReply{}, fmt.Errorf("%w: ip protocol %d", ErrUnrelated, h.Protocol)
	}
	if len(raw) < h.Len+HeaderLen {
		return EchoReply{}, fmt.Errorf("%w: %d bytes cannot hold an icmp header", ErrMalformed, len(raw))
	}
	if h.TotalLen > len(raw) {
		return EchoReply{}, fmt.Errorf("%w: truncated to %d of %d bytes", ErrMalformed, len(raw), h.TotalLen)
	}
	if h.TotalLen >= h.Len+HeaderLen {
		raw = raw[:h.TotalLen]
	}

	src, ok := netip.AddrFromSlice(h.Src.To4())
	if !ok {
		return EchoReply{}, fmt.Errorf("%w: invalid source address %v", ErrMalformed, h.Src)
	}

	msg := raw[h.Len:]
	reply := EchoReply{
		Source:     src,
		TTL:        h.TTL,
		Type:       ipv4.ICMPType(msg[0]),
		PayloadLen: len(msg) - HeaderLen,
		ReceivedAt: receivedAt,
	}

	switch reply.Type {
	case ipv4.ICMPTypeEchoReply:
		reply.ID = binary.BigEndian.Uint16(msg[4:6])
		reply.Seq = binary.BigEndian.Uint16(msg[6:8])
	case ipv4.ICMPTypeTimeExceeded:
		id, seq, err := quotedEcho(msg[HeaderLen:])
		if err != nil {
			return EchoReply{}, err
		}
		reply.ID, reply.Seq = id, seq
	default:
		return EchoReply{}, fmt.Errorf("%w: icmp type %v", ErrUnrelated, reply.Type)
	}
	return reply, nil
}

// quotedEcho extracts identifier and sequence from the original datagram
// quoted in the body of an ICMP error message.
func quotedEcho(quoted []byte) (id, seq uint16, err error) {
	if len(quoted) < ipv4.HeaderLen {
		return 0, 0, fmt.Errorf("%w: quoted datagram of %d bytes", ErrMalformed, len(quoted))
	}
	hl := int(quoted[0]&0x0f) << 2
	if hl < ipv4.HeaderLen || len(quoted) < hl+HeaderLen {
		return 0, 0, fmt.Errorf("%w: quoted header length %d", ErrMalformed, hl)
	}
	if quoted[9] != byte(ipv4.ICMPTypeEcho.Protocol()) {
		return 0, 0, fmt.Errorf("%w: quoted protocol %d", ErrUnrelated, quoted[9])
	}

	inner := quoted[hl:]
	if ipv4.ICMPType(inner[0]) != ipv4.ICMPTypeEcho {
		return 0, 0, fmt.Errorf("%w: quoted icmp type %d", ErrUnrelated, inner[0])
	}
	return binary.BigEndian.Uint16(inner[4:6]), binary.BigEndian.Uint16(inner[6:8]), nil
}
