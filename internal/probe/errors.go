// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/telekom/kestrel/internal/logger"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sys/unix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrPermission is returned when the raw ICMP endpoint cannot be opened due to
	// missing privileges. No probe can succeed without NET_RAW, so it is never retried.
	ErrPermission = errors.New("no NET_RAW capabilities, raw ICMP sockets require elevated privileges")
	// ErrResolution is returned when a target name does not resolve to an IPv4 address.
	ErrResolution = errors.New("failed to resolve target")
	// errInvalidRequest is returned for requests that cannot be put on the wire.
	errInvalidRequest = errors.New("invalid probe request")
)

// isPermissionError reports whether err was caused by missing privileges.
func isPermissionError(err error) bool {
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}

// wrapError wraps an error with a message and logs it.
// It also records the error in the current OpenTelemetry span.
func wrapError(ctx context.Context, err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)
	caser := cases.Title(language.English)

	log.ErrorContext(ctx, caser.String(fmt.Sprintf(msg, args...)), "error", err)
	span.SetStatus(codes.Error, fmt.Sprintf(msg, args...))
	span.RecordError(err)
	return fmt.Errorf("%s: %w", fmt.Sprintf(msg, args...), err)
}
