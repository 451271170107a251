// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

// endpoint is a network endpoint able to send ICMP messages
// and to read whole IPv4 datagrams including their header.
type endpoint interface {
	// SetTTL sets the time-to-live of outgoing datagrams.
	SetTTL(ttl int) error
	// WriteTo sends the ICMP message b to dst.
	WriteTo(b []byte, dst net.Addr) (int, error)
	// SetReadDeadline bounds all pending and future calls to ReadDatagram.
	SetReadDeadline(t time.Time) error
	// ReadDatagram reads the next IPv4 datagram into b.
	ReadDatagram(b []byte) (int, error)
	// Close releases the endpoint.
	Close() error
}

// rawEndpoint is an [endpoint] backed by a raw ip4:icmp socket.
// It requires NET_RAW capabilities to be created successfully.
type rawEndpoint struct {
	// conn is the raw IP connection used to send and receive ICMP messages.
	conn *net.IPConn
	// pc is used to set socket options on conn.
	pc *ipv4.PacketConn
	// rawConn gives access to the socket to read datagrams with their IP header,
	// which [net.IPConn.ReadFrom] strips.
	rawConn syscall.RawConn
}

// listenRaw opens a raw ICMP socket on all local IPv4 addresses.
func listenRaw() (endpoint, error) {
	conn, err := net.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return nil, err
	}

	ipConn, ok := conn.(*net.IPConn)
	if !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected connection type %T", conn)
	}

	rc, err := ipConn.SyscallConn()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to get RawConn: %w", err)
	}

	return &rawEndpoint{
		conn:    ipConn,
		pc:      ipv4.NewPacketConn(ipConn),
		rawConn: rc,
	}, nil
}

func (e *rawEndpoint) SetTTL(ttl int) error {
	return e.pc.SetTTL(ttl)
}

func (e *rawEndpoint) WriteTo(b []byte, dst net.Addr) (int, error) {
	return e.conn.WriteTo(b, dst)
}

func (e *rawEndpoint) SetReadDeadline(t time.Time) error {
	return e.conn.SetReadDeadline(t)
}

// ReadDatagram waits until a datagram is readable and receives it with its IP header.
// Waiting honors the read deadline, which surfaces as [os.ErrDeadlineExceeded].
func (e *rawEndpoint) ReadDatagram(b []byte) (int, error) {
	var n int
	var opErr error
	err := e.rawConn.Read(func(fd uintptr) bool {
		n, _, opErr = unix.Recvfrom(int(fd), b, unix.MSG_DONTWAIT)
		// Returning false makes the poller wait for the next datagram.
		return !errors.Is(opErr, unix.EAGAIN) && !errors.Is(opErr, unix.EWOULDBLOCK)
	})
	if err != nil {
		return 0, err
	}
	if opErr != nil {
		return 0, fmt.Errorf("failed to receive datagram: %w", opErr)
	}
	return n, nil
}

// Close closes the underlying connection.
func (e *rawEndpoint) Close() error {
	return e.conn.Close()
}
