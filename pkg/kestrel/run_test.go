// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package kestrel

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/kestrel/pkg/api"
	"github.com/telekom/kestrel/pkg/config"
	"github.com/telekom/kestrel/pkg/telemetry"
)

// freeAddress returns a local address no one is listening on.
func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

// awaitStartup polls the url until it answers with 200 OK.
func awaitStartup(ctx context.Context, u string, failureTimeout time.Duration) ([]byte, error) {
	const backoff = 20 * time.Millisecond
	deadline := time.Now().Add(failureTimeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			body, rErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return body, rErr
			}
		}
		<-time.After(backoff)
	}
	return nil, errors.New("api did not become ready")
}

func TestKestrel_Run_JobResult(t *testing.T) {
	errJob := errors.New("probe failed")
	tests := []struct {
		name    string
		job     Job
		wantErr error
	}{
		{name: "job succeeds", job: func(context.Context) error { return nil }},
		{name: "job fails", job: func(context.Context) error { return errJob }, wantErr: errJob},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := New(config.New(), "test")
			err := k.Run(t.Context(), tt.job)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// TestKestrel_Run_ContextCancel tests that after a context cancels the job
// receives the cancellation and its error is returned.
func TestKestrel_Run_ContextCancel(t *testing.T) {
	k := New(config.New(), "test")
	ctx, cancel := context.WithCancel(t.Context())

	go func() {
		<-time.After(10 * time.Millisecond)
		cancel()
	}()

	err := k.Run(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKestrel_Run_ServesMetrics(t *testing.T) {
	cfg := config.New()
	cfg.Api = api.Config{ListeningAddress: freeAddress(t)}
	k := New(cfg, "1.0.0")

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "kestrel_job_total", Help: "test counter"})
	require.NoError(t, k.Register(counter))
	counter.Inc()

	var body []byte
	err := k.Run(t.Context(), func(ctx context.Context) error {
		var err error
		body, err = awaitStartup(ctx, "http://"+cfg.Api.ListeningAddress+"/metrics", 2*time.Second)
		return err
	})
	require.NoError(t, err)
	assert.Contains(t, string(body), "kestrel_job_total 1")
	assert.Contains(t, string(body), `kestrel_build_info{goversion=`)
}

// TestKestrel_Run_APIFailure tests that a failing api cancels the running job.
func TestKestrel_Run_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := config.New()
	cfg.Api = api.Config{ListeningAddress: srv.Listener.Addr().String()}
	k := New(cfg, "test")

	err := k.Run(t.Context(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("job was not canceled")
		}
	})
	assert.ErrorIs(t, err, api.ErrServeAPI)
}

func TestKestrel_Run_TracingFailure(t *testing.T) {
	cfg := config.New()
	cfg.Telemetry = telemetry.Config{Enabled: true, Exporter: "unsupported"}
	k := New(cfg, "test")

	called := false
	err := k.Run(t.Context(), func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called, "job must not run without tracing")
}

func TestKestrel_Register(t *testing.T) {
	k := New(config.New(), "test")
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "kestrel_duplicate_total", Help: "test counter"})

	require.NoError(t, k.Register(c))
	assert.Error(t, k.Register(c))
}

func TestErrShutdown(t *testing.T) {
	var e ErrShutdown
	assert.False(t, e.HasError())

	e.errMetrics = errors.New("flush failed")
	assert.True(t, e.HasError())
	assert.Equal(t, "flush failed", e.Error())
}
