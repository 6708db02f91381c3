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

	"golang.org/x/sync/errgroup"
)

// forEachMember runs fn for every ensemble member index.
//
// Members are independent within a block: each member's neighbor query,
// regression, and sampling touch only that member's row and write only
// that member's output cells, so the parallel path never aliases
// writes. With the parallel stage disabled the loop is plain serial,
// which keeps the call fully synchronous.
//
// Inputs:
//   - ctx: Context; a cancellation aborts remaining members.
//   - members: Ensemble size N.
//   - fn: Per-member work; the first error aborts the stage.
//
// Outputs:
//   - error: First error returned by fn, or the context error.
func (f *Forecaster) forEachMember(ctx context.Context, members int, fn func(i int) error) error {
	if !f.config.Parallel.Enabled {
		for i := 0; i < members; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.Parallel.MaxConcurrency)
	for i := 0; i < members; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}
