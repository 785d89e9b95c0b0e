// Copyright (c) 2025 ADBC Drivers Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//         http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newSpanExporter creates the exporter named by kind. The OTLP exporters are
// configured through the standard OTEL_EXPORTER_OTLP_* environment variables.
// A nil exporter means tracing is off.
func newSpanExporter(ctx context.Context, kind string, w io.Writer) (sdktrace.SpanExporter, error) {
	switch kind {
	case "", "none":
		return nil, nil
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case "otlp", "otlp-grpc":
		return otlptracegrpc.New(ctx)
	case "otlp-http":
		return otlptracehttp.New(ctx)
	}
	return nil, fmt.Errorf("unknown trace exporter %q, expected none, stdout, otlp-grpc or otlp-http", kind)
}

// setupTracing installs a global tracer provider. The returned function
// flushes pending spans.
func setupTracing(ctx context.Context, kind string, w io.Writer) (func(context.Context) error, error) {
	exporter, err := newSpanExporter(ctx, kind, w)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		return func(context.Context) error { return nil }, nil
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
