// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package test forges raw IPv4 datagrams as they are read from a raw ICMP socket.
package test

import (
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Local is the address the forged datagrams are addressed to.
var Local = netip.MustParseAddr("192.0.2.1")

// EchoReply returns an echo reply sent by src that answers the request id/seq.
func EchoReply(t testing.TB, src netip.Addr, ttl uint8, id, seq uint16, payloadSize int) []byte {
	t.Helper()
	return serialize(t,
		ipLayer(src, Local, ttl),
		&layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0),
			Id:       id,
			Seq:      seq,
		},
		gopacket.Payload(make([]byte, payloadSize)),
	)
}

// TimeExceeded returns a time exceeded message sent by router for the echo
// request id/seq that was on its way to dst.
func TimeExceeded(t testing.TB, router, dst netip.Addr, ttl uint8, id, seq uint16) []byte {
	t.Helper()
	return errorMessage(t, layers.ICMPv4TypeTimeExceeded, layers.ICMPv4CodeTTLExceeded, router, dst, ttl, id, seq)
}

// Unreachable returns a destination unreachable message sent by router
// for the echo request id/seq that was on its way to dst.
func Unreachable(t testing.TB, router, dst netip.Addr, ttl uint8, id, seq uint16) []byte {
	t.Helper()
	return errorMessage(t, layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodeHost, router, dst, ttl, id, seq)
}

// EchoRequest returns an echo request from src to dst as seen on loopback.
func EchoRequest(t testing.TB, src, dst netip.Addr, id, seq uint16) []byte {
	t.Helper()
	return serialize(t,
		ipLayer(src, dst, 64),
		&layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
			Id:       id,
			Seq:      seq,
		},
	)
}

// errorMessage builds an ICMP error quoting the original echo request.
func errorMessage(t testing.TB, typ, code uint8, router, dst netip.Addr, ttl uint8, id, seq uint16) []byte {
	t.Helper()
	quoted := serialize(t,
		ipLayer(Local, dst, 1),
		&layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
			Id:       id,
			Seq:      seq,
		},
	)
	return serialize(t,
		ipLayer(router, Local, ttl),
		&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(typ, code)},
		gopacket.Payload(quoted),
	)
}

func ipLayer(src, dst netip.Addr, ttl uint8) *layers.IPv4 {
	return &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      ttl,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    src.AsSlice(),
		DstIP:    dst.AsSlice(),
	}
}

func serialize(t testing.TB, l ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, l...); err != nil {
		t.Fatalf("failed to serialize datagram: %v", err)
	}
	return buf.Bytes()
}
