// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/grpc/credentials"
)

// Exporter selects where spans are sent to.
type Exporter string

const (
	// HTTP exports spans via OTLP over HTTP.
	HTTP Exporter = "http"
	// GRPC exports spans via OTLP over gRPC.
	GRPC Exporter = "grpc"
	// STDOUT writes spans to stdout.
	STDOUT Exporter = "stdout"
	// NOOP drops all spans.
	NOOP Exporter = "noop"
)

func (e Exporter) String() string {
	return string(e)
}

// Validate checks if the exporter is supported.
func (e Exporter) Validate() error {
	switch e {
	case HTTP, GRPC, STDOUT, NOOP, "":
		return nil
	default:
		return fmt.Errorf("unsupported exporter %q", e)
	}
}

// IsExporting reports whether the exporter sends spans to a collector.
func (e Exporter) IsExporting() bool {
	return e == HTTP || e == GRPC
}

// Create returns the span exporter configured by cfg.
func (e Exporter) Create(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	switch e {
	case HTTP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpointURL(cfg.Url),
			otlptracehttp.WithHeaders(authHeader(cfg.Token)),
		}
		if cfg.TLS.Enabled {
			tlsCfg, err := loadTLSConfig(cfg.TLS.CertPath)
			if err != nil {
				return nil, err
			}
			opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsCfg))
		} else {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case GRPC:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpointURL(cfg.Url),
			otlptracegrpc.WithHeaders(authHeader(cfg.Token)),
		}
		if cfg.TLS.Enabled {
			tlsCfg, err := loadTLSConfig(cfg.TLS.CertPath)
			if err != nil {
				return nil, err
			}
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tlsCfg)))
		} else {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case STDOUT:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case NOOP, "":
		return tracetest.NewNoopExporter(), nil
	default:
		return nil, e.Validate()
	}
}

// authHeader returns the bearer token header, none without a token.
func authHeader(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// loadTLSConfig returns a tls configuration trusting the system roots
// and, if given, the certificate at certPath.
func loadTLSConfig(certPath string) (*tls.Config, error) {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if certPath != "" {
		pem, err := os.ReadFile(certPath) // #nosec G304 // path is operator configuration
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificate found in %q", certPath)
		}
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
