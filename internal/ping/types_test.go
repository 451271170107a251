// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package ping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/kestrel/internal/probe"
	"gopkg.in/yaml.v3"
)

func TestStatistics_Record(t *testing.T) {
	var stats Statistics
	for _, res := range []probe.Result{
		{RTT: 21.5},
		{TimedOut: true},
		{RTT: 3.25},
		{RTT: 40},
	} {
		stats.Sent++
		stats.record(res)
	}

	assert.Equal(t, 4, stats.Sent)
	assert.Equal(t, 3, stats.Received)
	assert.InDelta(t, 3.25, stats.Min, 1e-9)
	assert.InDelta(t, 40, stats.Max, 1e-9)
	assert.InDelta(t, 64.75, stats.Sum, 1e-9)
	assert.Equal(t, []float64{21.5, 3.25, 40}, stats.RTTs)

	loss, ok := stats.Loss()
	require.True(t, ok)
	assert.InDelta(t, 25, loss, 1e-9)
}

func TestStatistics_Derived(t *testing.T) {
	tests := []struct {
		name       string
		stats      Statistics
		wantLoss   float64
		wantLossOK bool
		wantMean   float64
		wantStdDev float64
	}{
		{
			name:  "nothing sent",
			stats: Statistics{},
		},
		{
			name:       "all lost",
			stats:      Statistics{Sent: 4},
			wantLoss:   100,
			wantLossOK: true,
		},
		{
			name:       "single reply",
			stats:      Statistics{Sent: 1, Received: 1, Min: 7, Max: 7, Sum: 7, RTTs: []float64{7}},
			wantLossOK: true,
			wantMean:   7,
		},
		{
			name:       "spread replies",
			stats:      Statistics{Sent: 3, Received: 2, Min: 1, Max: 3, Sum: 4, RTTs: []float64{1, 3}},
			wantLoss:   100.0 / 3,
			wantLossOK: true,
			wantMean:   2,
			wantStdDev: 1.4142135623730951,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loss, ok := tt.stats.Loss()
			assert.Equal(t, tt.wantLossOK, ok)
			assert.InDelta(t, tt.wantLoss, loss, 1e-9)
			assert.InDelta(t, tt.wantMean, tt.stats.Mean(), 1e-9)
			assert.InDelta(t, tt.wantStdDev, tt.stats.StdDev(), 1e-9)
		})
	}
}

func TestStatistics_Marshal(t *testing.T) {
	stats := Statistics{
		Target:      target,
		Address:     destination,
		PayloadSize: 56,
		Sent:        2,
		Received:    2,
		Min:         10,
		Max:         30,
		Sum:         40,
		RTTs:        []float64{10, 30},
	}

	t.Run("json", func(t *testing.T) {
		b, err := json.Marshal(stats)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, "192.0.2.10", got["address"])
		assert.InDelta(t, 0.0, got["loss"], 1e-9)
		assert.InDelta(t, 20.0, got["mean"], 1e-9)
		assert.InDelta(t, 14.142, got["stddev"], 1e-3)
	})

	t.Run("yaml", func(t *testing.T) {
		b, err := yaml.Marshal(stats)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, yaml.Unmarshal(b, &got))
		assert.Equal(t, target, got["target"])
		assert.Equal(t, "192.0.2.10", got["address"])
		assert.EqualValues(t, 20, got["mean"])
	})

	t.Run("undefined loss", func(t *testing.T) {
		b, err := json.Marshal(Statistics{Target: target})
		require.NoError(t, err)
		assert.Contains(t, string(b), `"loss":null`)
	})
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "defaults", opts: DefaultOptions()},
		{name: "bounded", opts: Options{Count: 3, Interval: 0, PayloadSize: 0, Timeout: DefaultTimeout}},
		{name: "zero count", opts: Options{Count: 0, Timeout: DefaultTimeout}, wantErr: true},
		{name: "negative interval", opts: Options{Count: 1, Interval: -1, Timeout: DefaultTimeout}, wantErr: true},
		{name: "negative payload", opts: Options{Count: 1, PayloadSize: -1, Timeout: DefaultTimeout}, wantErr: true},
		{name: "no timeout", opts: Options{Count: 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
				return
			}
			assert.NoError(t, err)
		})
	}
}
