// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package kestrel

import "errors"

// ErrShutdown holds any errors that may
// have occurred during shutdown of the kestrel
type ErrShutdown struct {
	errAPI     error
	errMetrics error
}

// HasError returns true if any of the errors are set
func (e ErrShutdown) HasError() bool {
	return e.errAPI != nil || e.errMetrics != nil
}

func (e ErrShutdown) Error() string {
	if err := errors.Join(e.errAPI, e.errMetrics); err != nil {
		return err.Error()
	}
	return "no shutdown errors"
}
