// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
)

// ErrServeAPI is returned when the api server stops unexpectedly.
var ErrServeAPI = errors.New("failed to serve api")

// ErrInvalidAddress is returned when the listening address is not a host:port.
type ErrInvalidAddress struct {
	Address string
	Err     error
}

func (e *ErrInvalidAddress) Error() string {
	return fmt.Sprintf("invalid listening address %q: %v", e.Address, e.Err)
}

func (e *ErrInvalidAddress) Unwrap() error {
	return e.Err
}
