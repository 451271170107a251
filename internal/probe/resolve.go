// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/telekom/kestrel/internal/logger"
)

// Resolver looks up the addresses of a host. [net.Resolver] implements it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Resolve returns the IPv4 address of target, which is either an address
// literal or a host name. Names resolving to several addresses yield the first one.
// All failures wrap [ErrResolution].
func Resolve(ctx context.Context, r Resolver, target string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(target); err == nil {
		addr = addr.Unmap()
		if !addr.Is4() {
			return netip.Addr{}, fmt.Errorf("%w: %s is not an IPv4 address", ErrResolution, target)
		}
		return addr, nil
	}

	addrs, err := r.LookupNetIP(ctx, "ip4", target)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %s: %w", ErrResolution, target, err)
	}
	for _, addr := range addrs {
		if addr = addr.Unmap(); addr.Is4() {
			logger.FromContext(ctx).DebugContext(ctx, "Resolved target", "target", target, "address", addr, "candidates", len(addrs))
			return addr, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("%w: %s has no IPv4 address", ErrResolution, target)
}
