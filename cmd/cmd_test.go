// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/kestrel/internal/helper"
	"github.com/telekom/kestrel/internal/packet"
	"github.com/telekom/kestrel/internal/ping"
	"github.com/telekom/kestrel/internal/probe"
	"github.com/telekom/kestrel/internal/traceroute"
	"github.com/telekom/kestrel/pkg/config"
	"golang.org/x/net/ipv4"
	"gopkg.in/yaml.v3"
)

const destination = "192.0.2.1"

// executeCmd runs the kestrel command tree with the given arguments
// and returns what it printed to stdout.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())

	c := BuildCmd("test")
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(io.Discard)
	c.SetArgs(args)
	err := c.ExecuteContext(t.Context())
	return out.String(), err
}

// withProber replaces the raw socket transport for the duration of the test.
func withProber(t *testing.T, p probe.Prober) {
	t.Helper()
	orig := newProber
	newProber = func(helper.RetryConfig) probe.Prober { return p }
	t.Cleanup(func() { newProber = orig })
}

// withResolver replaces the target lookup for the duration of the test.
func withResolver(t *testing.T, r probe.Resolver) {
	t.Helper()
	orig := resolver
	resolver = r
	t.Cleanup(func() { resolver = orig })
}

type resolverFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

func (f resolverFunc) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	return f(ctx, network, host)
}

// answering returns a prober simulating a destination distance hops away.
// Routers before it answer with time exceeded.
func answering(distance int, rtt float64) *probe.ProberMock {
	return &probe.ProberMock{
		ProbeFunc: func(_ context.Context, req probe.Request) (probe.Result, error) {
			reply := packet.EchoReply{
				Source:     req.Destination,
				TTL:        64,
				Type:       ipv4.ICMPTypeEchoReply,
				ID:         req.ID,
				Seq:        req.Seq,
				PayloadLen: req.PayloadSize,
			}
			if req.TTL < distance {
				reply.Source = router(req.TTL)
				reply.Type = ipv4.ICMPTypeTimeExceeded
			}
			return probe.Result{Reply: reply, RTT: rtt * float64(min(req.TTL, distance))}, nil
		},
	}
}

func router(ttl int) netip.Addr {
	return netip.AddrFrom4([4]byte{10, 0, 0, byte(ttl)})
}

func TestBuildCmd(t *testing.T) {
	c := BuildCmd("1.2.3")
	assert.Equal(t, "1.2.3", c.Version)

	var names []string
	for _, sub := range c.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"ping", "traceroute"})
}

func TestPing_Text(t *testing.T) {
	p := answering(1, 1.5)
	withProber(t, p)

	out, err := executeCmd(t, "ping", "-c", "2", "-i", "0s", destination)
	require.NoError(t, err)

	want := "PING 192.0.2.1 (192.0.2.1): 56(64) data bytes\n" +
		"64 bytes from 192.0.2.1: icmp_seq=0 ttl=64 time=1.50 ms\n" +
		"64 bytes from 192.0.2.1: icmp_seq=1 ttl=64 time=1.50 ms\n" +
		"\n--- 192.0.2.1 ping statistics ---\n" +
		"2 packets transmitted, 2 packets received, 0.0% packet loss\n" +
		"round-trip min/avg/max/stddev = 1.500/1.500/1.500/0.000 ms\n"
	assert.Equal(t, want, out)
	assert.Len(t, p.ProbeCalls(), 2)
}

func TestPing_Timeout(t *testing.T) {
	p := &probe.ProberMock{
		ProbeFunc: func(context.Context, probe.Request) (probe.Result, error) {
			return probe.Result{TimedOut: true}, nil
		},
	}
	withProber(t, p)

	out, err := executeCmd(t, "ping", "-c", "3", "-i", "0s", "-s", "16", destination)
	require.NoError(t, err)

	want := "PING 192.0.2.1 (192.0.2.1): 16(24) data bytes\n" +
		"Request timed out.\n" +
		"\n--- 192.0.2.1 ping statistics ---\n" +
		"1 packets transmitted, 0 packets received, 100.0% packet loss\n"
	assert.Equal(t, want, out)
	assert.Len(t, p.ProbeCalls(), 1)
}

func TestPing_JSON(t *testing.T) {
	withProber(t, answering(1, 2))

	out, err := executeCmd(t, "ping", "-c", "3", "-i", "0s", "-o", "json", destination)
	require.NoError(t, err)

	var got struct {
		Target   string    `json:"target"`
		Sent     int       `json:"sent"`
		Received int       `json:"received"`
		Loss     float64   `json:"loss"`
		RTTs     []float64 `json:"rtts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, destination, got.Target)
	assert.Equal(t, 3, got.Sent)
	assert.Equal(t, 3, got.Received)
	assert.InDelta(t, 0.0, got.Loss, 1e-9)
	assert.Equal(t, []float64{2, 2, 2}, got.RTTs)
}

func TestPing_Errors(t *testing.T) {
	t.Run("missing privileges", func(t *testing.T) {
		withProber(t, &probe.ProberMock{
			ProbeFunc: func(context.Context, probe.Request) (probe.Result, error) {
				return probe.Result{}, probe.ErrPermission
			},
		})
		out, err := executeCmd(t, "ping", "-c", "1", destination)
		require.ErrorIs(t, err, probe.ErrPermission)
		assert.Contains(t, err.Error(), "CAP_NET_RAW")
		assert.NotContains(t, out, "statistics")
	})

	t.Run("invalid options", func(t *testing.T) {
		p := answering(1, 1)
		withProber(t, p)
		_, err := executeCmd(t, "ping", "-c", "0", destination)
		require.ErrorIs(t, err, ping.ErrInvalidOptions)
		assert.Empty(t, p.ProbeCalls())
	})

	t.Run("unresolvable target", func(t *testing.T) {
		p := answering(1, 1)
		withProber(t, p)
		_, err := executeCmd(t, "ping", "-c", "1", "2001:db8::1")
		require.ErrorIs(t, err, probe.ErrResolution)
		assert.Empty(t, p.ProbeCalls())
	})

	t.Run("missing destination", func(t *testing.T) {
		_, err := executeCmd(t, "ping")
		assert.Error(t, err)
	})
}

func TestPing_ConfigSources(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		p := answering(1, 1)
		withProber(t, p)
		t.Setenv("KESTREL_PING_COUNT", "1")

		_, err := executeCmd(t, "ping", "-i", "0s", destination)
		require.NoError(t, err)
		assert.Len(t, p.ProbeCalls(), 1)
	})

	t.Run("config file", func(t *testing.T) {
		p := answering(1, 1)
		withProber(t, p)
		path := filepath.Join(t.TempDir(), "kestrel.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ping:\n  count: 2\n  interval: 0s\n  payloadSize: 8\n"), 0o600))

		out, err := executeCmd(t, "--config", path, "ping", destination)
		require.NoError(t, err)
		require.Len(t, p.ProbeCalls(), 2)
		assert.Equal(t, 8, p.ProbeCalls()[0].Req.PayloadSize)
		assert.Contains(t, out, "8(16) data bytes")
	})

	t.Run("flags win over config file", func(t *testing.T) {
		p := answering(1, 1)
		withProber(t, p)
		path := filepath.Join(t.TempDir(), "kestrel.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ping:\n  count: 5\n"), 0o600))

		_, err := executeCmd(t, "--config", path, "ping", "-c", "1", destination)
		require.NoError(t, err)
		assert.Len(t, p.ProbeCalls(), 1)
	})
}

func TestTraceroute_Text(t *testing.T) {
	p := answering(2, 1)
	withProber(t, p)

	out, err := executeCmd(t, "traceroute", "-n", "-q", "2", "-S", destination)
	require.NoError(t, err)

	want := "traceroute to 192.0.2.1 (192.0.2.1), 64 hops max, 52 byte packets\n" +
		" 1  10.0.0.1  1.000 ms  1.000 ms (0.0% loss)\n" +
		" 2  192.0.2.1  2.000 ms  2.000 ms (0.0% loss)\n"
	assert.Equal(t, want, out)

	calls := p.ProbeCalls()
	require.Len(t, calls, 4)
	assert.Equal(t, 2, calls[3].Req.TTL)
	assert.Equal(t, traceroute.DefaultTimeout, calls[0].Req.Timeout)
}

func TestTraceroute_YAML(t *testing.T) {
	withProber(t, answering(3, 1))

	out, err := executeCmd(t, "traceroute", "-n", "-m", "10", "-s", "0", "-o", "yaml", destination)
	require.NoError(t, err)

	var got struct {
		Target     string `yaml:"target"`
		MaxHops    int    `yaml:"maxHops"`
		PacketSize int    `yaml:"packetSize"`
		Hops       []struct {
			TTL       int      `yaml:"ttl"`
			Addresses []string `yaml:"addresses"`
			Reached   bool     `yaml:"reached"`
		} `yaml:"hops"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, destination, got.Target)
	assert.Equal(t, 10, got.MaxHops)
	assert.Equal(t, 8, got.PacketSize)
	require.Len(t, got.Hops, 3)
	assert.Equal(t, []string{"10.0.0.1"}, got.Hops[0].Addresses)
	assert.True(t, got.Hops[2].Reached)
}

func TestTraceroute_InvalidOptions(t *testing.T) {
	p := answering(1, 1)
	withProber(t, p)

	_, err := executeCmd(t, "traceroute", "-m", "0", destination)
	assert.Error(t, err)
	assert.Empty(t, p.ProbeCalls())
}

func TestInterruptedDuringResolution(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "ping text", args: []string{"ping", "-c", "1", "host.example"}},
		{name: "ping json", args: []string{"ping", "-c", "1", "-o", "json", "host.example"}},
		{name: "traceroute text", args: []string{"traceroute", "host.example"}},
		{name: "traceroute yaml", args: []string{"traceroute", "-o", "yaml", "host.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := answering(1, 1)
			withProber(t, p)
			withResolver(t, resolverFunc(func(context.Context, string, string) ([]netip.Addr, error) {
				return nil, context.Canceled
			}))

			out, err := executeCmd(t, tt.args...)
			require.NoError(t, err)
			assert.Empty(t, out, "nothing is rendered for an unresolved target")
			assert.Empty(t, p.ProbeCalls())
		})
	}
}

func TestEncode_Text(t *testing.T) {
	assert.Error(t, encode(io.Discard, config.OutputText, struct{}{}))
}

func TestSessionError(t *testing.T) {
	errOther := errors.New("network is unreachable")
	tests := []struct {
		name    string
		err     error
		wantNil bool
	}{
		{name: "success", err: nil, wantNil: true},
		{name: "interrupted", err: context.Canceled, wantNil: true},
		{name: "permission", err: probe.ErrPermission},
		{name: "other", err: errOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sessionError(tt.err)
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
