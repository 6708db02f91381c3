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
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/analog/pkg/logging"
	"github.com/AleutianAI/analog/pkg/validation"
)

// Forecaster applies the analog method to a state ensemble: for every
// member it retrieves the k nearest catalog analogs per variable block,
// estimates a local forecast distribution from their successors, and
// draws one sample from it.
//
// A Forecaster holds only read-only references (catalog, neighborhood,
// config); every Forecast call builds its own outputs.
//
// Thread Safety: Safe for concurrent use.
type Forecaster struct {
	catalog *Catalog
	hood    *Neighborhood
	config  Config

	logger *slog.Logger
	tracer *ForecastTracer
	seed   uint64
}

// New creates a Forecaster.
//
// Inputs:
//   - catalog: The analog/successor reference set.
//   - hood: The neighborhood specification; its dimension must match
//     the catalog's state dimension.
//   - config: Forecast configuration (validated here).
//
// Outputs:
//   - *Forecaster: Ready-to-use forecaster.
//   - error: Non-nil on invalid configuration, a dimension mismatch, or
//     k exceeding the catalog size. Nothing is partially processed.
func New(catalog *Catalog, hood *Neighborhood, config Config) (*Forecaster, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if hood == nil {
		return nil, fmt.Errorf("neighborhood cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if hood.Dim() != catalog.Dim() {
		return nil, fmt.Errorf("neighborhood dimension %d does not match catalog dimension %d", hood.Dim(), catalog.Dim())
	}
	if config.K > catalog.Len() {
		return nil, fmt.Errorf("%w: k=%d exceeds catalog size %d", ErrNeighborCount, config.K, catalog.Len())
	}

	return &Forecaster{
		catalog: catalog,
		hood:    hood,
		config:  config,
		logger:  logging.Default().Slog(),
		tracer:  NewForecastTracer(nil, false),
		seed:    uint64(time.Now().UnixNano()),
	}, nil
}

// WithLogger sets the logger.
func (f *Forecaster) WithLogger(logger *slog.Logger) *Forecaster {
	f.logger = logger
	return f
}

// WithTracer sets the tracer.
func (f *Forecaster) WithTracer(tracer *ForecastTracer) *Forecaster {
	f.tracer = tracer
	return f
}

// WithSeed fixes the base seed of the sampling step. Two Forecast calls
// over the same inputs and seed produce identical samples.
func (f *Forecaster) WithSeed(seed uint64) *Forecaster {
	f.seed = seed
	return f
}

// Forecast produces the one-step-ahead forecast of the ensemble.
//
// Inputs:
//   - ctx: Context; checked between blocks and members.
//   - ensemble: N x n current state ensemble. Read-only to this call.
//
// Outputs:
//   - *mat.Dense: N x n sampled forecast ensemble (one draw per member).
//   - *mat.Dense: N x n forecast mean ensemble.
//   - error: Non-nil on shape, configuration, or numerical failure; no
//     partial output is returned alongside an error.
func (f *Forecaster) Forecast(ctx context.Context, ensemble *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	if err := validation.ValidateEnsemble(ensemble, f.catalog.Dim()); err != nil {
		return nil, nil, fmt.Errorf("invalid ensemble: %w", err)
	}

	members, n := ensemble.Dims()
	runID := uuid.NewString()[:8]
	logger := f.logger.With(slog.String("run_id", runID))

	ctx, span := f.tracer.StartRun(ctx, members, n, f.config)
	defer span.End()

	start := time.Now()
	samples := mat.NewDense(members, n, nil)
	means := mat.NewDense(members, n, nil)

	blocks := f.hood.blocks()
	for bi, b := range blocks {
		if err := ctx.Err(); err != nil {
			f.tracer.RecordError(span, err)
			return nil, nil, err
		}

		bctx, bspan := f.tracer.StartBlock(ctx, bi, b)
		err := f.forecastBlock(bctx, bi, b, ensemble, samples, means)
		if err != nil {
			f.tracer.RecordError(bspan, err)
			bspan.End()
			f.tracer.RecordError(span, err)
			logger.Error("forecast failed",
				slog.Int("block", bi),
				slog.String("error", err.Error()),
			)
			return nil, nil, fmt.Errorf("block %d: %w", bi, err)
		}
		bspan.End()
	}

	logger.Debug("forecast complete",
		slog.Int("members", members),
		slog.Int("variables", n),
		slog.Int("blocks", len(blocks)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return samples, means, nil
}

// forecastBlock runs neighbor retrieval, estimation, and sampling for
// one block, writing the block's target columns of samples and means.
func (f *Forecaster) forecastBlock(ctx context.Context, blockIdx int, b block, ensemble, samples, means *mat.Dense) error {
	members, _ := ensemble.Dims()
	k := f.config.K

	index, err := newNeighborIndex(f.catalog, b.context, k)
	if err != nil {
		return err
	}

	// Stage 1: every member's k nearest analogs. The distances of all
	// members feed the block's kernel bandwidth, so this completes
	// before any estimation starts.
	neighbors := make([][]int, members)
	dists := mat.NewDense(members, k, nil)
	err = f.forEachMember(ctx, members, func(i int) error {
		query := make([]float64, len(b.context))
		for j, v := range b.context {
			query[j] = ensemble.At(i, v)
		}
		rows, d := index.nearest(query)
		neighbors[i] = rows
		dists.SetRow(i, d)
		return nil
	})
	if err != nil {
		return err
	}

	lambda := kernelBandwidth(dists)
	weights := kernelWeights(dists, lambda)

	// Stage 2: per-member estimation and sampling. Each member writes a
	// disjoint (member, target) slice of the outputs.
	return f.forEachMember(ctx, members, func(i int) error {
		est, err := f.estimateMember(b, ensemble.RawRowView(i), neighbors[i], weights.RawRowView(i))
		if err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
		sample, err := f.sampleMember(est, sampleSource(f.seed, blockIdx, i))
		if err != nil {
			return fmt.Errorf("member %d: %w", i, err)
		}
		for j, v := range b.target {
			means.Set(i, v, est.mean[j])
			samples.Set(i, v, sample[j])
		}
		return nil
	})
}
