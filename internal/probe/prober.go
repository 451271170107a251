// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/telekom/kestrel/internal/helper"
	"github.com/telekom/kestrel/internal/logger"
	"github.com/telekom/kestrel/internal/packet"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// mtuSize is the smallest read buffer, large enough for any error message
	// quoting a request.
	mtuSize = 1500
	// maxIPHeaderLen is the length of an IPv4 header carrying all options.
	maxIPHeaderLen = 60
	// maxPayloadSize is the largest payload that fits into an IPv4 datagram
	// together with the IP and ICMP headers.
	maxPayloadSize = 65535 - 20 - packet.HeaderLen
)

var _ Prober = (*rawProber)(nil)

// Prober sends a single echo request and waits for its answer.
//
//go:generate go tool moq -out prober_moq.go . Prober
type Prober interface {
	// Probe transmits the request and blocks until a matching reply arrived,
	// the request's timeout elapsed or ctx is done.
	// A timeout is not an error; it is reported via [Result.TimedOut].
	Probe(ctx context.Context, req Request) (Result, error)
}

type rawProber struct {
	// listen opens a fresh endpoint for every probe.
	listen func() (endpoint, error)
	// retry configures retries of failed transmissions.
	retry helper.RetryConfig
}

// NewProber returns a [Prober] that sends its requests over raw ICMP sockets.
// Failed transmissions are retried according to rc; timeouts never are.
func NewProber(rc helper.RetryConfig) Prober {
	return &rawProber{
		listen: listenRaw,
		retry:  rc,
	}
}

// Probe opens an endpoint, sends the echo request and waits for the reply.
// The endpoint is closed on every return path.
func (p *rawProber) Probe(ctx context.Context, req Request) (Result, error) {
	log := logger.FromContext(ctx).With("destination", req.Destination, "ttl", req.TTL, "id", req.ID, "seq", req.Seq)
	span := trace.SpanFromContext(ctx)

	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	ep, err := p.listen()
	if err != nil {
		if isPermissionError(err) {
			return Result{}, wrapError(ctx, fmt.Errorf("%w: %w", ErrPermission, err), "failed to open ICMP endpoint")
		}
		return Result{}, wrapError(ctx, err, "failed to open ICMP endpoint")
	}
	defer func() {
		if cErr := ep.Close(); cErr != nil {
			log.DebugContext(ctx, "Failed to close ICMP endpoint", "error", cErr)
		}
	}()

	if err = ep.SetTTL(req.TTL); err != nil {
		return Result{}, wrapError(ctx, err, "failed to set ttl %d", req.TTL)
	}

	sentAt, err := p.send(ctx, ep, req)
	if err != nil {
		return Result{}, wrapError(ctx, err, "failed to send echo request")
	}
	span.AddEvent("Echo request sent", trace.WithAttributes(
		attribute.Int("probe.ttl", req.TTL),
		attribute.Int("probe.id", int(req.ID)),
		attribute.Int("probe.seq", int(req.Seq)),
	))

	// The deadline is computed once; reading past unrelated datagrams does not extend it.
	deadline := sentAt.Add(req.Timeout)
	if err = ep.SetReadDeadline(deadline); err != nil {
		return Result{}, wrapError(ctx, err, "failed to set read deadline")
	}
	stop := context.AfterFunc(ctx, func() {
		// Unblock a pending read, the context error is reported below.
		_ = ep.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	buf := make([]byte, max(mtuSize, maxIPHeaderLen+packet.HeaderLen+req.PayloadSize))
	for {
		n, rErr := ep.ReadDatagram(buf)
		receivedAt := time.Now()
		if rErr != nil {
			if cErr := ctx.Err(); cErr != nil {
				log.DebugContext(ctx, "Probe interrupted", "error", cErr)
				return Result{}, cErr
			}
			if isTimeout(rErr) {
				log.DebugContext(ctx, "No matching reply before deadline", "timeout", req.Timeout)
				span.AddEvent("Probe timed out")
				return Result{TimedOut: true}, nil
			}
			return Result{}, wrapError(ctx, rErr, "failed to read from ICMP endpoint")
		}

		reply, pErr := packet.Parse(buf[:n], receivedAt)
		if pErr != nil {
			log.DebugContext(ctx, "Ignoring datagram", "reason", pErr)
			continue
		}
		if !reply.Matches(req.ID, req.Seq) {
			log.DebugContext(ctx, "Ignoring reply of another request",
				"source", reply.Source, "replyID", reply.ID, "replySeq", reply.Seq)
			continue
		}

		res := Result{Reply: reply, RTT: roundTrip(receivedAt.Sub(sentAt))}
		log.DebugContext(ctx, "Received matching reply", "source", reply.Source, "type", reply.Type, "rtt", res.RTT)
		span.AddEvent("Reply received", trace.WithAttributes(
			attribute.String("probe.reply.source", reply.Source.String()),
			attribute.Stringer("probe.reply.type", reply.Type),
			attribute.Float64("probe.reply.rtt_ms", res.RTT),
		))
		return res, nil
	}
}

// send marshals the request and writes it to the endpoint.
// It returns the time the request left the socket.
func (p *rawProber) send(ctx context.Context, ep endpoint, req Request) (time.Time, error) {
	msg := req.echo().Marshal()
	dst := &net.IPAddr{IP: req.Destination.AsSlice()}

	var sentAt time.Time
	err := helper.Retry(func(context.Context) error {
		_, err := ep.WriteTo(msg, dst)
		if isPermissionError(err) {
			// EPERM on send means a local firewall dropped the datagram.
			return helper.Permanent(fmt.Errorf("%w: %w", ErrPermission, err))
		}
		if err != nil {
			return err
		}
		sentAt = time.Now()
		return nil
	}, p.retry)(ctx)
	return sentAt, err
}

// isTimeout reports whether err was caused by an exceeded read deadline.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
