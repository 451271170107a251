// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
)

// ErrInvalidOptions is returned by [Options.Validate].
var ErrInvalidOptions = errors.New("invalid traceroute options")

// isInterrupt checks if the error was caused by the
// caller giving up on the traceroute.
func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
