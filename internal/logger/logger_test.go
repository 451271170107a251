// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		handlers []slog.Handler
		logLevel string
		want     slog.Level
	}{
		{name: "default handler and level", want: slog.LevelInfo},
		{name: "default handler with debug level", logLevel: "DEBUG", want: slog.LevelDebug},
		{name: "custom handler", handlers: []slog.Handler{slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})}, want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.logLevel)

			log := NewLogger(tt.handlers...)
			require.NotNil(t, log)
			assert.True(t, log.Enabled(t.Context(), tt.want))
			assert.False(t, log.Enabled(t.Context(), tt.want-1), "level below %v must be disabled", tt.want)
			if len(tt.handlers) > 0 {
				assert.Same(t, tt.handlers[0], log.Handler())
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := NewLogger(slog.NewJSONHandler(&buf, nil))

	ctx := IntoContext(t.Context(), want)
	assert.Same(t, want, FromContext(ctx))

	child, cancel := NewContextWithLogger(ctx)
	defer cancel()
	assert.Same(t, want, FromContext(child), "child context must inherit the parent logger")
	assert.NotEqual(t, ctx, child)

	cancel()
	assert.ErrorIs(t, child.Err(), context.Canceled)
}

func TestFromContext_Fallback(t *testing.T) {
	t.Setenv("LOG_FORMAT", "")
	for _, ctx := range []context.Context{nil, t.Context()} {
		log := FromContext(ctx)
		require.NotNil(t, log)
		_, ok := log.Handler().(*slog.JSONHandler)
		assert.True(t, ok, "fallback logger should use the JSON handler, got %T", log.Handler())
	}
}

func TestMiddleware(t *testing.T) {
	want := NewLogger(slog.NewTextHandler(&bytes.Buffer{}, nil))
	var got *slog.Logger
	handler := Middleware(IntoContext(t.Context(), want))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = r.Context().Value(logger{}).(*slog.Logger)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	assert.Same(t, want, got)
}

func TestNewHandler(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		level     string
		wantText  bool
		wantLevel slog.Level
	}{
		{name: "default", wantLevel: slog.LevelInfo},
		{name: "text debug", format: "TEXT", level: "DEBUG", wantText: true, wantLevel: slog.LevelDebug},
		{name: "lowercase text", format: "text", level: "error", wantText: true, wantLevel: slog.LevelError},
		{name: "json warn", format: "JSON", level: "WARN", wantLevel: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_FORMAT", tt.format)
			t.Setenv("LOG_LEVEL", tt.level)

			handler := newHandler()
			_, isText := handler.(*slog.TextHandler)
			assert.Equal(t, tt.wantText, isText, "unexpected handler type %T", handler)
			assert.True(t, handler.Enabled(t.Context(), tt.wantLevel))
		})
	}
}

func TestGetLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"UNKNOWN": slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, getLevel(input), "getLevel(%q)", input)
	}
}
