// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability provides tracing setup and helpers.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	otelsdkresource "go.opentelemetry.io/otel/sdk/resource"
	otelsdktrace "go.opentelemetry.io/otel/sdk/trace"
	otelsemconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracerName is the instrumentation name of all docmap spans.
const tracerName = "github.com/FerretDB/docmap"

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// OtelOpts represents [SetupOtel] options.
type OtelOpts struct {
	Service  string
	Version  string
	Endpoint string // OTLP/HTTP host:port; empty disables export
	L        *zap.Logger
}

// SetupOtel configures the global OpenTelemetry tracer provider and propagator.
//
// Without an endpoint, spans are not exported and the returned function does nothing.
func SetupOtel(opts *OtelOpts) (ShutdownFunc, error) {
	if opts.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(opts.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := otelsdkresource.NewSchemaless(
		otelsemconv.ServiceNameKey.String(opts.Service),
		otelsemconv.ServiceVersionKey.String(opts.Version),
	)

	tp := otelsdktrace.NewTracerProvider(
		otelsdktrace.WithBatcher(exporter, otelsdktrace.WithBatchTimeout(time.Second)),
		otelsdktrace.WithResource(res),
	)

	if opts.L != nil {
		l := opts.L.Named("otel")
		otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
			l.Warn("OpenTelemetry error", zap.Error(err))
		}))
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns the global tracer for docmap spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
