// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package forecasting

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const forecastTracerName = "analog.forecasting"

// ForecastTracer provides OpenTelemetry tracing for forecast calls.
//
// Thread Safety: Safe for concurrent use.
type ForecastTracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewForecastTracer creates a new tracer.
//
// Inputs:
//   - logger: Logger for structured logging (can be nil for the default).
//   - enabled: Whether spans are emitted; when false every Start returns
//     a noop span.
//
// Outputs:
//   - *ForecastTracer: Tracer instance.
func NewForecastTracer(logger *slog.Logger, enabled bool) *ForecastTracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastTracer{
		tracer:  otel.Tracer(forecastTracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// StartRun starts a span covering an entire forecast call.
//
// Inputs:
//   - ctx: Parent context.
//   - members: Ensemble size N.
//   - variables: State dimension n.
//   - config: The forecast configuration.
//
// Outputs:
//   - context.Context: Context with span.
//   - trace.Span: The created span (noop if tracing disabled).
func (t *ForecastTracer) StartRun(ctx context.Context, members, variables int, config Config) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	return t.tracer.Start(ctx, "forecast.run",
		trace.WithAttributes(
			attribute.Int("forecast.members", members),
			attribute.Int("forecast.variables", variables),
			attribute.Int("forecast.k", config.K),
			attribute.String("forecast.regression", config.Regression.String()),
			attribute.String("forecast.sampling", config.Sampling.String()),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartBlock starts a span for one variable block.
//
// Inputs:
//   - ctx: Parent context (from StartRun).
//   - index: Block index within the pass.
//   - b: The block's context/target subsets.
//
// Outputs:
//   - context.Context: Context with span.
//   - trace.Span: The created span (noop if tracing disabled).
func (t *ForecastTracer) StartBlock(ctx context.Context, index int, b block) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	return t.tracer.Start(ctx, "forecast.block",
		trace.WithAttributes(
			attribute.Int("forecast.block.index", index),
			attribute.Int("forecast.block.context_vars", len(b.context)),
			attribute.Int("forecast.block.target_vars", len(b.target)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// RecordError marks the span failed and records the error.
func (t *ForecastTracer) RecordError(span trace.Span, err error) {
	if !t.enabled || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
