// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package forecasting implements analog forecasting of a state ensemble.
//
// Analog forecasting propagates an ensemble of state vectors one step
// forward in time without a dynamical model. For each ensemble member it
// retrieves the k most similar historical states ("analogs") from a
// catalog, weights them with a Gaussian kernel on distance, turns the
// analogs' observed next steps ("successors") into a per-member forecast
// mean and covariance through one of three local regression strategies,
// and draws a sample from the resulting distribution.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                       Forecaster                           │
//	│  ┌───────────┐  ┌─────────────┐  ┌───────────┐  ┌───────┐  │
//	│  │   block   │→ │  neighbor   │→ │   local   │→ │sampler│  │
//	│  │ iterator  │  │  retrieval  │  │ estimator │  │       │  │
//	│  └───────────┘  └─────────────┘  └───────────┘  └───────┘  │
//	└────────────────────────────────────────────────────────────┘
//
// The block iterator yields one (context, target) variable subset per
// pass: a single pass over all variables when the neighborhood matrix is
// all ones ("global" mode), or one pass per variable otherwise ("local"
// mode). Neighbor retrieval builds a kd-tree over the catalog analogs
// restricted to the context variables and is shared read-only by the
// per-member stage. Blocks write disjoint output columns, and within a
// block each member is independent, so the member stage can run in
// parallel (see ParallelConfig).
//
// # Basic Usage
//
//	catalog, err := forecasting.NewCatalog(analogs, successors)
//	if err != nil { ... }
//	fc, err := forecasting.New(catalog, forecasting.GlobalNeighborhood(catalog.Dim()), forecasting.DefaultConfig())
//	if err != nil { ... }
//	samples, means, err := fc.WithSeed(42).Forecast(ctx, ensemble)
//
// # Reproducibility
//
// All randomness flows from a single caller-controllable seed (WithSeed).
// Per-member sampling streams are derived deterministically from the seed,
// the block index, and the member index, so results are stable regardless
// of whether the member stage runs serial or parallel.
//
// # Thread Safety
//
// A Forecaster is safe for concurrent Forecast calls: the catalog and
// neighborhood are read-only, and each call owns its outputs.
package forecasting
