// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"net/netip"
	"strings"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/telekom/kestrel/internal/logger"
)

// NameResolver performs reverse DNS lookups. [net.Resolver] implements it.
type NameResolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// nameCache remembers the reverse DNS names of hop addresses,
// so routers answering several probes are looked up once.
type nameCache struct {
	resolver NameResolver
	names    cmap.ConcurrentMap[netip.Addr, string]
}

func newNameCache(r NameResolver) *nameCache {
	return &nameCache{
		resolver: r,
		names:    cmap.NewWithCustomShardingFunction[netip.Addr, string](fnv32),
	}
}

// resolveName performs a reverse DNS lookup for the given address.
// If the lookup fails or returns no names, it returns the numeric address.
func (c *nameCache) resolveName(ctx context.Context, addr netip.Addr) string {
	if name, ok := c.names.Get(addr); ok {
		return name
	}

	name := addr.String()
	names, err := c.resolver.LookupAddr(ctx, addr.String())
	switch {
	case err != nil:
		logger.FromContext(ctx).DebugContext(ctx, "Reverse lookup failed", "address", addr, "error", err)
	case len(names) > 0:
		name = strings.TrimSuffix(names[0], ".")
	}

	c.names.Set(addr, name)
	return name
}

// fnv32 hashes an address with FNV-1 to pick its shard.
func fnv32(key netip.Addr) uint32 {
	const prime32 = uint32(16777619)
	hash := uint32(2166136261)
	for _, b := range key.AsSlice() {
		hash *= prime32
		hash ^= uint32(b)
	}
	return hash
}

// logHops logs the hops in a structured format.
func logHops(ctx context.Context, hops []Hop) {
	log := logger.FromContext(ctx)
	for _, hop := range hops {
		log.DebugContext(ctx, hop.String(), "ttl", hop.TTL, "reached", hop.Reached, "loss", hop.Loss())
	}
}
